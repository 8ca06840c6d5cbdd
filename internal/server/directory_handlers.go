package server

import (
	"net/http"
	"strconv"
	"strings"

	"blogopen/internal/app"
	"blogopen/pkg/domain"
)

type listResponse[T any] struct {
	Ok      bool `json:"ok"`
	Results []T  `json:"results"`
}

type bloggerPublicResponse struct {
	Ok bool `json:"ok"`
	app.BloggerCard
}

type brandPublicResponse struct {
	Ok bool `json:"ok"`
	app.BrandPublicView
}

func (s *Server) handleBloggersList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	filter := bloggerFilterFromQuery(r)
	cards, err := s.app.ListBloggers(user, filter)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[app.BloggerCard]{Ok: true, Results: cards})
}

func (s *Server) handleBrandsList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	cards, err := s.app.ListBrands(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[app.BrandCard]{Ok: true, Results: cards})
}

func (s *Server) handleBloggerPublic(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := pathID(r.URL.Path, "/api/bloggers/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	card, err := s.app.PublicBlogger(user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bloggerPublicResponse{Ok: true, BloggerCard: card})
}

func (s *Server) handleBrandPublic(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := pathID(r.URL.Path, "/api/brands/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	view, err := s.app.PublicBrand(user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brandPublicResponse{Ok: true, BrandPublicView: view})
}

// bloggerFilterFromQuery reads directory filters. Follower bounds that do
// not parse as integers are dropped rather than rejected.
func bloggerFilterFromQuery(r *http.Request) domain.BloggerFilter {
	q := r.URL.Query()
	filter := domain.BloggerFilter{
		City:     strings.TrimSpace(q.Get("city")),
		Platform: strings.TrimSpace(q.Get("platform")),
		Topic:    strings.TrimSpace(q.Get("topic")),
	}
	if raw := strings.TrimSpace(q.Get("followers_min")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.FollowersMin = &n
		}
	}
	if raw := strings.TrimSpace(q.Get("followers_max")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.FollowersMax = &n
		}
	}
	return filter
}

func pathID(path, prefix string) string {
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
