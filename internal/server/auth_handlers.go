package server

import (
	"encoding/json"
	"io"
	"net/http"

	"blogopen/internal/util"
	"blogopen/pkg/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type registerResponse struct {
	Ok     bool        `json:"ok"`
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Token  string      `json:"token"`
}

type sessionResponse struct {
	Ok    bool        `json:"ok"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ip := util.ClientIP(r, s.trusted)
	if s.registerLimiter != nil && !s.registerLimiter.Allow(ip) {
		audit("register rate limited", "ip", ip)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	user, profile, token, err := s.app.Register(req.Email, req.Password, req.Role)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, registerResponse{
		Ok:     true,
		UserID: user.ID,
		Email:  user.Email,
		Role:   profile.Role,
		Token:  token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ip := util.ClientIP(r, s.trusted)
	if s.loginLimiter != nil && !s.loginLimiter.Allow(ip) {
		audit("login rate limited", "ip", ip)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	user, profile, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		audit("login failed", "ip", ip)
		writeAppError(w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, sessionResponse{
		Ok:    true,
		Email: user.Email,
		Role:  profile.Role,
		Token: token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if token, ok := s.sessionToken(r); ok {
		if err := s.app.Logout(token); err != nil {
			writeAppError(w, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	profile, err := s.app.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Ok:    true,
		Email: user.Email,
		Role:  profile.Role,
	})
}
