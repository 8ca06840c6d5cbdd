package app

import (
	"fmt"

	"blogopen/pkg/domain"
)

// BloggerCard is what a brand sees about a blogger in the directory and on
// the public page. INN never appears here.
type BloggerCard struct {
	ID          string `json:"id"`
	AvatarURL   string `json:"avatar_url"`
	City        string `json:"city"`
	Nickname    string `json:"nickname"`
	Platform    string `json:"platform"`
	PlatformURL string `json:"platform_url"`
	Followers   int    `json:"followers"`
	Topic       string `json:"topic"`
	Formats     string `json:"formats"`
}

// BrandCard is what a blogger sees about a brand in the directory.
type BrandCard struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url"`
	City      string `json:"city"`
	About     string `json:"about"`
	BrandName string `json:"brand_name"`
	Sphere    string `json:"sphere"`
	Budget    string `json:"budget"`
}

// BrandPublicView is the public brand page shown to a blogger. It adds the
// contact person and drops the account email.
type BrandPublicView struct {
	ID            string `json:"id"`
	AvatarURL     string `json:"avatar_url"`
	City          string `json:"city"`
	About         string `json:"about"`
	BrandName     string `json:"brand_name"`
	Sphere        string `json:"sphere"`
	Budget        string `json:"budget"`
	ContactPerson string `json:"contact_person"`
}

// ListBloggers returns the filtered blogger directory. Brand accounts only.
func (a *App) ListBloggers(user domain.User, filter domain.BloggerFilter) ([]BloggerCard, error) {
	profile, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return nil, err
	}
	if profile.Role != domain.RoleBrand {
		return nil, ErrRoleMismatch
	}
	listings, err := a.store.ListBloggers(filter)
	if err != nil {
		return nil, fmt.Errorf("list bloggers: %w", err)
	}
	cards := make([]BloggerCard, 0, len(listings))
	for _, l := range listings {
		cards = append(cards, a.bloggerCard(l))
	}
	return cards, nil
}

// ListBrands returns the brand directory. Blogger accounts only.
func (a *App) ListBrands(user domain.User) ([]BrandCard, error) {
	profile, err := a.EnsureProfile(user, domain.RoleBlogger)
	if err != nil {
		return nil, err
	}
	if profile.Role != domain.RoleBlogger {
		return nil, ErrRoleMismatch
	}
	listings, err := a.store.ListBrands()
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	cards := make([]BrandCard, 0, len(listings))
	for _, l := range listings {
		card := BrandCard{
			ID:        l.Profile.ID,
			AvatarURL: a.avatarURL(l.Profile.ID),
			City:      l.Profile.City,
			About:     l.Profile.About,
			BrandName: l.Extension.BrandName,
			Sphere:    l.Extension.Sphere,
			Budget:    l.Extension.Budget,
		}
		if owner, ok, err := a.store.GetUserByID(l.Profile.UserID); err != nil {
			return nil, fmt.Errorf("fetch brand owner: %w", err)
		} else if ok {
			card.Email = owner.Email
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// PublicBlogger returns one blogger's public card. The id is tried as a
// profile id first and as the owning user's id second, which keeps old
// links from the directory working.
func (a *App) PublicBlogger(user domain.User, id string) (BloggerCard, error) {
	viewer, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return BloggerCard{}, err
	}
	if viewer.Role != domain.RoleBrand {
		return BloggerCard{}, ErrRoleMismatch
	}
	profile, ok, err := a.store.GetProfileByID(id)
	if err != nil {
		return BloggerCard{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !ok || profile.Role != domain.RoleBlogger {
		profile, ok, err = a.store.GetProfileByUserID(id)
		if err != nil {
			return BloggerCard{}, fmt.Errorf("fetch profile: %w", err)
		}
		if !ok || profile.Role != domain.RoleBlogger {
			return BloggerCard{}, ErrNotFound
		}
	}
	ext, _, err := a.store.GetBloggerExtension(profile.ID)
	if err != nil {
		return BloggerCard{}, fmt.Errorf("fetch blogger extension: %w", err)
	}
	return a.bloggerCard(domain.BloggerListing{Profile: profile, Extension: ext}), nil
}

// PublicBrand returns one brand's public page for a blogger viewer.
func (a *App) PublicBrand(user domain.User, id string) (BrandPublicView, error) {
	viewer, err := a.EnsureProfile(user, domain.RoleBlogger)
	if err != nil {
		return BrandPublicView{}, err
	}
	if viewer.Role != domain.RoleBlogger {
		return BrandPublicView{}, ErrRoleMismatch
	}
	profile, ok, err := a.store.GetProfileByID(id)
	if err != nil {
		return BrandPublicView{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !ok || profile.Role != domain.RoleBrand {
		return BrandPublicView{}, ErrNotFound
	}
	ext, _, err := a.store.GetBrandExtension(profile.ID)
	if err != nil {
		return BrandPublicView{}, fmt.Errorf("fetch brand extension: %w", err)
	}
	return BrandPublicView{
		ID:            profile.ID,
		AvatarURL:     a.avatarURL(profile.ID),
		City:          profile.City,
		About:         profile.About,
		BrandName:     ext.BrandName,
		Sphere:        ext.Sphere,
		Budget:        ext.Budget,
		ContactPerson: ext.ContactPerson,
	}, nil
}

func (a *App) bloggerCard(l domain.BloggerListing) BloggerCard {
	return BloggerCard{
		ID:          l.Profile.ID,
		AvatarURL:   a.avatarURL(l.Profile.ID),
		City:        l.Profile.City,
		Nickname:    l.Extension.Nickname,
		Platform:    l.Extension.Platform,
		PlatformURL: l.Extension.PlatformURL,
		Followers:   l.Extension.Followers,
		Topic:       l.Extension.Topic,
		Formats:     l.Extension.Formats,
	}
}
