package app

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"blogopen/pkg/domain"
)

// AvatarUpload carries one uploaded avatar image.
type AvatarUpload struct {
	Data     []byte
	Mime     string
	Filename string
}

// BrandProfileView is the owner's view of a brand profile.
type BrandProfileView struct {
	Role          domain.Role `json:"role"`
	Email         string      `json:"email"`
	City          string      `json:"city"`
	About         string      `json:"about"`
	AvatarURL     string      `json:"avatar_url"`
	BrandName     string      `json:"brand_name"`
	Sphere        string      `json:"sphere"`
	Budget        string      `json:"budget"`
	INN           string      `json:"inn"`
	ContactPerson string      `json:"contact_person"`
	Topics        []string    `json:"topics"`
}

// BloggerProfileView is the owner's view of a blogger profile. INN and
// Progress are never exposed to the other side.
type BloggerProfileView struct {
	Role        domain.Role `json:"role"`
	Email       string      `json:"email"`
	AvatarURL   string      `json:"avatar_url"`
	Nickname    string      `json:"nickname"`
	Platform    string      `json:"platform"`
	PlatformURL string      `json:"platform_url"`
	Followers   int         `json:"followers"`
	Topic       string      `json:"topic"`
	Formats     string      `json:"formats"`
	Topics      []string    `json:"topics"`
	INN         string      `json:"inn"`
	Progress    int         `json:"progress"`
}

// BrandUpdate applies partial changes to a brand profile. Nil means "leave
// as is"; a pointer to an empty string clears the field.
type BrandUpdate struct {
	City          *string
	About         *string
	BrandName     *string
	Sphere        *string
	Budget        *string
	INN           *string
	ContactPerson *string
	Topics        *[]string
	Avatar        *AvatarUpload
}

// BloggerUpdate applies partial changes to a blogger profile. Followers is
// the raw form value and is coerced leniently.
type BloggerUpdate struct {
	City        *string
	About       *string
	Nickname    *string
	Platform    *string
	PlatformURL *string
	Followers   *string
	Topic       *string
	Formats     *string
	INN         *string
	Topics      *[]string
	Avatar      *AvatarUpload
}

// BrandProfile returns the caller's brand profile, healing missing rows.
func (a *App) BrandProfile(user domain.User) (BrandProfileView, error) {
	profile, ext, err := a.brandOwned(user)
	if err != nil {
		return BrandProfileView{}, err
	}
	return a.brandView(user, profile, ext), nil
}

// UpdateBrandProfile applies a partial update and returns the fresh view.
func (a *App) UpdateBrandProfile(user domain.User, upd BrandUpdate) (BrandProfileView, error) {
	profile, ext, err := a.brandOwned(user)
	if err != nil {
		return BrandProfileView{}, err
	}
	if upd.City != nil {
		profile.City = *upd.City
	}
	if upd.About != nil {
		profile.About = *upd.About
	}
	if upd.Avatar != nil {
		if err := a.saveAvatar(profile.ID, *upd.Avatar); err != nil {
			return BrandProfileView{}, err
		}
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveProfile(profile); err != nil {
		return BrandProfileView{}, fmt.Errorf("save profile: %w", err)
	}

	if upd.BrandName != nil {
		ext.BrandName = *upd.BrandName
	}
	if upd.Sphere != nil {
		ext.Sphere = *upd.Sphere
	}
	if upd.Budget != nil {
		ext.Budget = *upd.Budget
	}
	if upd.INN != nil {
		ext.INN = *upd.INN
	}
	if upd.ContactPerson != nil {
		ext.ContactPerson = *upd.ContactPerson
	}
	if upd.Topics != nil {
		ext.Topics = *upd.Topics
	}
	if err := a.store.SaveBrandExtension(ext); err != nil {
		return BrandProfileView{}, fmt.Errorf("save brand extension: %w", err)
	}
	return a.brandView(user, profile, ext), nil
}

// BloggerProfile returns the caller's blogger profile, healing missing rows.
func (a *App) BloggerProfile(user domain.User) (BloggerProfileView, error) {
	profile, ext, err := a.bloggerOwned(user)
	if err != nil {
		return BloggerProfileView{}, err
	}
	return a.bloggerView(user, profile, ext)
}

// UpdateBloggerProfile applies a partial update and returns the fresh view.
func (a *App) UpdateBloggerProfile(user domain.User, upd BloggerUpdate) (BloggerProfileView, error) {
	profile, ext, err := a.bloggerOwned(user)
	if err != nil {
		return BloggerProfileView{}, err
	}
	if upd.City != nil {
		profile.City = *upd.City
	}
	if upd.About != nil {
		profile.About = *upd.About
	}
	if upd.Avatar != nil {
		if err := a.saveAvatar(profile.ID, *upd.Avatar); err != nil {
			return BloggerProfileView{}, err
		}
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveProfile(profile); err != nil {
		return BloggerProfileView{}, fmt.Errorf("save profile: %w", err)
	}

	if upd.Nickname != nil {
		ext.Nickname = *upd.Nickname
	}
	if upd.Platform != nil {
		ext.Platform = *upd.Platform
	}
	if upd.PlatformURL != nil {
		ext.PlatformURL = *upd.PlatformURL
	}
	if upd.Followers != nil {
		ext.Followers = coerceFollowers(*upd.Followers, ext.Followers)
	}
	if upd.Topic != nil {
		ext.Topic = *upd.Topic
	}
	if upd.Formats != nil {
		ext.Formats = *upd.Formats
	}
	if upd.INN != nil {
		ext.INN = *upd.INN
	}
	if upd.Topics != nil {
		ext.Topics = *upd.Topics
	}
	if err := a.store.SaveBloggerExtension(ext); err != nil {
		return BloggerProfileView{}, fmt.Errorf("save blogger extension: %w", err)
	}
	return a.bloggerView(user, profile, ext)
}

// Avatar returns the stored avatar bytes and mime for a profile.
func (a *App) Avatar(profileID string) (domain.Avatar, bool, error) {
	avatar, ok, err := a.store.GetAvatar(profileID)
	if err != nil || !ok {
		return domain.Avatar{}, ok, err
	}
	if len(avatar.Data) == 0 && a.blobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		data, err := a.blobs.Get(ctx, avatarKey(profileID))
		if err != nil {
			return domain.Avatar{}, false, fmt.Errorf("fetch avatar blob: %w", err)
		}
		avatar.Data = data
	}
	return avatar, true, nil
}

func (a *App) brandOwned(user domain.User) (domain.Profile, domain.BrandExtension, error) {
	profile, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return domain.Profile{}, domain.BrandExtension{}, err
	}
	if profile.Role != domain.RoleBrand {
		return domain.Profile{}, domain.BrandExtension{}, ErrRoleMismatch
	}
	ext, _, err := a.store.GetBrandExtension(profile.ID)
	if err != nil {
		return domain.Profile{}, domain.BrandExtension{}, fmt.Errorf("fetch brand extension: %w", err)
	}
	ext.ProfileID = profile.ID
	return profile, ext, nil
}

func (a *App) bloggerOwned(user domain.User) (domain.Profile, domain.BloggerExtension, error) {
	profile, err := a.EnsureProfile(user, domain.RoleBlogger)
	if err != nil {
		return domain.Profile{}, domain.BloggerExtension{}, err
	}
	if profile.Role != domain.RoleBlogger {
		return domain.Profile{}, domain.BloggerExtension{}, ErrRoleMismatch
	}
	ext, _, err := a.store.GetBloggerExtension(profile.ID)
	if err != nil {
		return domain.Profile{}, domain.BloggerExtension{}, fmt.Errorf("fetch blogger extension: %w", err)
	}
	ext.ProfileID = profile.ID
	return profile, ext, nil
}

func (a *App) brandView(user domain.User, profile domain.Profile, ext domain.BrandExtension) BrandProfileView {
	return BrandProfileView{
		Role:          profile.Role,
		Email:         user.Email,
		City:          profile.City,
		About:         profile.About,
		AvatarURL:     a.avatarURL(profile.ID),
		BrandName:     ext.BrandName,
		Sphere:        ext.Sphere,
		Budget:        ext.Budget,
		INN:           ext.INN,
		ContactPerson: ext.ContactPerson,
		Topics:        ext.Topics,
	}
}

func (a *App) bloggerView(user domain.User, profile domain.Profile, ext domain.BloggerExtension) (BloggerProfileView, error) {
	hasAvatar, err := a.store.HasAvatar(profile.ID)
	if err != nil {
		return BloggerProfileView{}, fmt.Errorf("check avatar: %w", err)
	}
	view := BloggerProfileView{
		Role:        profile.Role,
		Email:       user.Email,
		Nickname:    ext.Nickname,
		Platform:    ext.Platform,
		PlatformURL: ext.PlatformURL,
		Followers:   ext.Followers,
		Topic:       ext.Topic,
		Formats:     ext.Formats,
		Topics:      ext.Topics,
		INN:         ext.INN,
		Progress:    bloggerProgress(hasAvatar, ext),
	}
	if hasAvatar {
		view.AvatarURL = avatarPath(profile.ID)
	}
	return view, nil
}

func (a *App) saveAvatar(profileID string, up AvatarUpload) error {
	// an empty upload never creates or replaces an avatar
	if len(up.Data) == 0 {
		return nil
	}
	avatar := domain.Avatar{
		ProfileID: profileID,
		Mime:      up.Mime,
		Filename:  up.Filename,
		Data:      up.Data,
		UpdatedAt: time.Now().UTC(),
	}
	if a.blobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.blobs.Put(ctx, avatarKey(profileID), up.Data, up.Mime); err != nil {
			return fmt.Errorf("store avatar blob: %w", err)
		}
		avatar.Data = nil
	}
	if err := a.store.SaveAvatar(avatar); err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}
	return nil
}

func (a *App) avatarURL(profileID string) string {
	ok, err := a.store.HasAvatar(profileID)
	if err != nil || !ok {
		return ""
	}
	return avatarPath(profileID)
}

func avatarPath(profileID string) string {
	return "/api/profiles/" + profileID + "/avatar"
}

func avatarKey(profileID string) string {
	return "avatars/" + profileID
}

// coerceFollowers turns a raw form value into a follower count. Empty input
// resets to zero; anything unparsable or negative keeps the current value.
func coerceFollowers(raw string, current int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return current
	}
	return n
}

// bloggerProgress estimates profile completeness as a rounded percentage of
// eight tracked fields.
func bloggerProgress(hasAvatar bool, ext domain.BloggerExtension) int {
	fields := []bool{
		hasAvatar,
		strings.TrimSpace(ext.Nickname) != "",
		strings.TrimSpace(ext.Platform) != "",
		strings.TrimSpace(ext.PlatformURL) != "",
		ext.Followers != 0,
		strings.TrimSpace(ext.Topic) != "",
		strings.TrimSpace(ext.Formats) != "",
		strings.TrimSpace(ext.INN) != "",
	}
	filled := 0
	for _, f := range fields {
		if f {
			filled++
		}
	}
	return int(math.Round(float64(filled) / float64(len(fields)) * 100))
}
