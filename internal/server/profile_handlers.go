package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"blogopen/internal/app"
	"blogopen/pkg/domain"
)

type brandProfileResponse struct {
	Ok bool `json:"ok"`
	app.BrandProfileView
}

type bloggerProfileResponse struct {
	Ok bool `json:"ok"`
	app.BloggerProfileView
}

func (s *Server) handleBrandProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	view, err := s.app.BrandProfile(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brandProfileResponse{Ok: true, BrandProfileView: view})
}

func (s *Server) handleBrandProfileUpdate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := s.parseProfileForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid form body")
		return
	}
	avatar, err := s.formAvatar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid avatar upload")
		return
	}
	upd := app.BrandUpdate{
		City:          formString(r, "city"),
		About:         formString(r, "about"),
		BrandName:     formString(r, "brand_name"),
		Sphere:        formString(r, "sphere"),
		Budget:        formString(r, "budget"),
		INN:           formString(r, "inn"),
		ContactPerson: formString(r, "contact_person"),
		Topics:        formTopics(r),
		Avatar:        avatar,
	}
	view, err := s.app.UpdateBrandProfile(user, upd)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brandProfileResponse{Ok: true, BrandProfileView: view})
}

func (s *Server) handleBloggerProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	view, err := s.app.BloggerProfile(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bloggerProfileResponse{Ok: true, BloggerProfileView: view})
}

func (s *Server) handleBloggerProfileUpdate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := s.parseProfileForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid form body")
		return
	}
	avatar, err := s.formAvatar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid avatar upload")
		return
	}
	upd := app.BloggerUpdate{
		City:        formString(r, "city"),
		About:       formString(r, "about"),
		Nickname:    formString(r, "nickname"),
		Platform:    formString(r, "platform"),
		PlatformURL: formString(r, "platform_url"),
		Followers:   formString(r, "followers"),
		Topic:       formString(r, "topic"),
		Formats:     formString(r, "formats"),
		INN:         formString(r, "inn"),
		Topics:      formTopics(r),
		Avatar:      avatar,
	}
	view, err := s.app.UpdateBloggerProfile(user, upd)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bloggerProfileResponse{Ok: true, BloggerProfileView: view})
}

// handleProfileAvatar serves the raw avatar image at
// /api/profiles/{id}/avatar.
func (s *Server) handleProfileAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	profileID, ok := strings.CutSuffix(rest, "/avatar")
	if !ok || profileID == "" || strings.Contains(profileID, "/") {
		http.NotFound(w, r)
		return
	}
	avatar, found, err := s.app.Avatar(profileID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "avatar not found")
		return
	}
	mime := avatar.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(avatar.Data)
}

func (s *Server) parseProfileForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(s.maxUploadBytes)
	}
	return r.ParseForm()
}

// formString distinguishes "field absent" from "field set to empty".
func formString(r *http.Request, name string) *string {
	if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
		v := vals[0]
		return &v
	}
	return nil
}

// formTopics splits a comma separated topics field into a clean list.
func formTopics(r *http.Request) *[]string {
	raw := formString(r, "topics")
	if raw == nil {
		return nil
	}
	parts := strings.Split(*raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			topics = append(topics, p)
		}
	}
	return &topics
}

func (s *Server) formAvatar(r *http.Request) (*app.AvatarUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes))
	if err != nil {
		return nil, err
	}
	// an empty part is treated the same as no upload at all
	if len(data) == 0 {
		return nil, nil
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return &app.AvatarUpload{
		Data:     data,
		Mime:     mime,
		Filename: header.Filename,
	}, nil
}
