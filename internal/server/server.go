package server

import (
	"net/http"
	"strings"

	"blogopen/internal/app"
	"blogopen/internal/ratelimit"
	"blogopen/internal/util"
	"blogopen/pkg/domain"
)

const defaultMaxUploadBytes = 5 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App             *app.App
	CookieName      string
	CookieSecure    bool
	AllowedOrigin   string
	TrustedProxies  *util.TrustedProxies
	RegisterLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter    *ratelimit.FixedWindowLimiter
	MaxUploadBytes  int64
}

// Server exposes the marketplace HTTP API.
type Server struct {
	app             *app.App
	cookieName      string
	cookieSecure    bool
	allowedOrigin   string
	trusted         *util.TrustedProxies
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	maxUploadBytes  int64
	mux             *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "bo_session"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		app:             cfg.App,
		cookieName:      cfg.CookieName,
		cookieSecure:    cfg.CookieSecure,
		allowedOrigin:   cfg.AllowedOrigin,
		trusted:         cfg.TrustedProxies,
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
		maxUploadBytes:  cfg.MaxUploadBytes,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithSecurityHeaders(h)
	h = util.WithCORS(s.allowedOrigin, h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/register", s.handleRegister)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.Handle("/api/me", s.authenticated(s.handleMe))

	// own profile
	s.mux.Handle("/api/brand/profile", s.authenticated(s.handleBrandProfile))
	s.mux.Handle("/api/brand/profile/update", s.authenticated(s.handleBrandProfileUpdate))
	s.mux.Handle("/api/blogger/profile", s.authenticated(s.handleBloggerProfile))
	s.mux.Handle("/api/blogger/profile/update", s.authenticated(s.handleBloggerProfileUpdate))

	// directory
	s.mux.Handle("/api/bloggers", s.authenticated(s.handleBloggersList))
	s.mux.Handle("/api/bloggers/", s.authenticated(s.handleBloggerPublic))
	s.mux.Handle("/api/brands", s.authenticated(s.handleBrandsList))
	s.mux.Handle("/api/brands/", s.authenticated(s.handleBrandPublic))

	// avatars are public so image tags can load them without credentials
	s.mux.HandleFunc("/api/profiles/", s.handleProfileAvatar)

	// chat, with aliases kept for older clients
	s.mux.Handle("/api/chat", s.authenticated(s.handleConversationsList))
	s.mux.Handle("/api/chat/", s.authenticated(s.chatSubtree("/api/chat/")))
	s.mux.Handle("/api/conversations", s.authenticated(s.handleConversationsList))
	s.mux.Handle("/api/conversations/", s.authenticated(s.chatSubtree("/api/conversations/")))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := s.sessionToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// sessionToken reads the session cookie first and falls back to a bearer
// header for non-browser clients.
func (s *Server) sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
