package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"blogopen/internal/storage"
	"blogopen/internal/store"
	"blogopen/internal/util"
	"blogopen/pkg/auth"
	"blogopen/pkg/domain"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	Store         store.Store
	Sessions      store.SessionStore
	Blobs         storage.BlobStore
}

// App wires storage, sessions, and marketplace logic together.
type App struct {
	store    store.Store
	sessions store.SessionStore
	blobs    storage.BlobStore
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for redis session strategy")
		}
		sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		blobs:    cfg.Blobs,
	}, nil
}

// Register creates an account with the given role, its profile and role
// extension, and logs the user in.
func (a *App) Register(email, password, roleRaw string) (domain.User, domain.Profile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, domain.Profile{}, "", ErrEmailAndPasswordRequired
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, domain.Profile{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("hash password: %w", err)
	}
	role := domain.ParseRole(roleRaw)
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		// a concurrent registration can slip past the check above and lose
		// on the unique index instead
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.User{}, domain.Profile{}, "", ErrEmailAlreadyExists
		}
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("save user: %w", err)
	}
	profile, err := a.EnsureProfile(user, role)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", err
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, profile, token, nil
}

// Login validates credentials and issues a session token. A missing profile
// is healed with a brand default.
func (a *App) Login(email, password string) (domain.User, domain.Profile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, domain.Profile{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, domain.Profile{}, "", ErrInvalidCredentials
	}
	profile, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", err
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, domain.Profile{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, profile, token, nil
}

// Logout invalidates a session token. Unknown tokens are ignored.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// EnsureProfile guarantees the user has a profile and the extension row for
// its role. It is safe to call on every authenticated request.
func (a *App) EnsureProfile(user domain.User, roleDefault domain.Role) (domain.Profile, error) {
	profile, ok, err := a.store.GetProfileByUserID(user.ID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !ok {
		now := time.Now().UTC()
		profile = domain.Profile{
			ID:        util.NewID(),
			UserID:    user.ID,
			Role:      roleDefault,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.store.SaveProfile(profile); err != nil {
			return domain.Profile{}, fmt.Errorf("save profile: %w", err)
		}
	}
	if profile.Role == "" {
		profile.Role = roleDefault
		profile.UpdatedAt = time.Now().UTC()
		if err := a.store.SaveProfile(profile); err != nil {
			return domain.Profile{}, fmt.Errorf("save profile: %w", err)
		}
	}
	if profile.Role == domain.RoleBrand {
		if _, ok, err := a.store.GetBrandExtension(profile.ID); err != nil {
			return domain.Profile{}, fmt.Errorf("fetch brand extension: %w", err)
		} else if !ok {
			if err := a.store.SaveBrandExtension(domain.BrandExtension{ProfileID: profile.ID}); err != nil {
				return domain.Profile{}, fmt.Errorf("save brand extension: %w", err)
			}
		}
	} else {
		if _, ok, err := a.store.GetBloggerExtension(profile.ID); err != nil {
			return domain.Profile{}, fmt.Errorf("fetch blogger extension: %w", err)
		} else if !ok {
			if err := a.store.SaveBloggerExtension(domain.BloggerExtension{ProfileID: profile.ID}); err != nil {
				return domain.Profile{}, fmt.Errorf("save blogger extension: %w", err)
			}
		}
	}
	return profile, nil
}
