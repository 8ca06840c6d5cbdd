package app

import (
	"errors"
	"testing"

	"blogopen/pkg/domain"
)

func seedBlogger(t *testing.T, a *App, email, city string, ext domain.BloggerExtension) domain.Profile {
	t.Helper()
	user, profile, _, err := a.Register(email, "secret", "blogger")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if city != "" {
		if _, err := a.UpdateBloggerProfile(user, BloggerUpdate{City: &city}); err != nil {
			t.Fatalf("set city for %s: %v", email, err)
		}
	}
	ext.ProfileID = profile.ID
	if err := a.store.SaveBloggerExtension(ext); err != nil {
		t.Fatalf("save extension for %s: %v", email, err)
	}
	return profile
}

func TestListBloggersFilters(t *testing.T) {
	a := newTestApp(t)
	brand, _, _, err := a.Register("brand@example.com", "secret", "brand")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}

	seedBlogger(t, a, "one@example.com", "Moscow", domain.BloggerExtension{
		Nickname: "one", Platform: "YouTube", Topic: "Tech reviews", Followers: 1000,
	})
	seedBlogger(t, a, "two@example.com", "moscow", domain.BloggerExtension{
		Nickname: "two", Platform: "Telegram", Topic: "cooking", Followers: 50000,
	})
	seedBlogger(t, a, "three@example.com", "Kazan", domain.BloggerExtension{
		Nickname: "three", Platform: "youtube", Topic: "tech news", Followers: 300,
	})

	all, err := a.ListBloggers(brand, domain.BloggerFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d bloggers, want 3", len(all))
	}
	if all[0].Nickname != "one" || all[2].Nickname != "three" {
		t.Fatalf("listing not in creation order: %+v", all)
	}

	// city matches case-insensitively and exactly
	byCity, err := a.ListBloggers(brand, domain.BloggerFilter{City: "MOSCOW"})
	if err != nil {
		t.Fatalf("filter city: %v", err)
	}
	if len(byCity) != 2 {
		t.Fatalf("city filter got %d, want 2", len(byCity))
	}

	// topic is a substring match
	byTopic, err := a.ListBloggers(brand, domain.BloggerFilter{Topic: "tech"})
	if err != nil {
		t.Fatalf("filter topic: %v", err)
	}
	if len(byTopic) != 2 {
		t.Fatalf("topic filter got %d, want 2", len(byTopic))
	}

	// filters compose
	min, max := 500, 2000
	combined, err := a.ListBloggers(brand, domain.BloggerFilter{
		Platform:     "youtube",
		FollowersMin: &min,
		FollowersMax: &max,
	})
	if err != nil {
		t.Fatalf("combined filter: %v", err)
	}
	if len(combined) != 1 || combined[0].Nickname != "one" {
		t.Fatalf("combined filter = %+v, want just one", combined)
	}
}

func TestListBrandsShowsCards(t *testing.T) {
	a := newTestApp(t)
	blogger, _, _, err := a.Register("blogger@example.com", "secret", "blogger")
	if err != nil {
		t.Fatalf("register blogger: %v", err)
	}
	brandUser, _, _, err := a.Register("brand@example.com", "secret", "brand")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}
	name := "Acme"
	city := "Berlin"
	if _, err := a.UpdateBrandProfile(brandUser, BrandUpdate{BrandName: &name, City: &city}); err != nil {
		t.Fatalf("update brand: %v", err)
	}

	cards, err := a.ListBrands(blogger)
	if err != nil {
		t.Fatalf("list brands: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %d brands, want 1", len(cards))
	}
	card := cards[0]
	if card.BrandName != "Acme" || card.City != "Berlin" || card.Email != "brand@example.com" {
		t.Fatalf("unexpected card: %+v", card)
	}
}

func TestPublicBloggerTwoStageLookup(t *testing.T) {
	a := newTestApp(t)
	brand, _, _, err := a.Register("brand@example.com", "secret", "brand")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}
	bloggerUser, bloggerProfile, _, err := a.Register("star@example.com", "secret", "blogger")
	if err != nil {
		t.Fatalf("register blogger: %v", err)
	}

	byProfile, err := a.PublicBlogger(brand, bloggerProfile.ID)
	if err != nil {
		t.Fatalf("lookup by profile id: %v", err)
	}
	if byProfile.ID != bloggerProfile.ID {
		t.Fatalf("card id = %q, want %q", byProfile.ID, bloggerProfile.ID)
	}

	// legacy links carry the user id instead of the profile id
	byUser, err := a.PublicBlogger(brand, bloggerUser.ID)
	if err != nil {
		t.Fatalf("lookup by user id: %v", err)
	}
	if byUser.ID != bloggerProfile.ID {
		t.Fatalf("user id lookup resolved to %q, want %q", byUser.ID, bloggerProfile.ID)
	}

	if _, err := a.PublicBlogger(brand, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing blogger: err = %v", err)
	}
	// a brand profile id is not a blogger
	brandProfile, _, _ := a.store.GetProfileByUserID(brand.ID)
	if _, err := a.PublicBlogger(brand, brandProfile.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("brand id as blogger: err = %v", err)
	}
}

func TestPublicBrandHidesEmailShowsContact(t *testing.T) {
	a := newTestApp(t)
	blogger, _, _, err := a.Register("blogger@example.com", "secret", "blogger")
	if err != nil {
		t.Fatalf("register blogger: %v", err)
	}
	brandUser, brandProfile, _, err := a.Register("brand@example.com", "secret", "brand")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}
	contact := "Jane Doe"
	if _, err := a.UpdateBrandProfile(brandUser, BrandUpdate{ContactPerson: &contact}); err != nil {
		t.Fatalf("update brand: %v", err)
	}

	view, err := a.PublicBrand(blogger, brandProfile.ID)
	if err != nil {
		t.Fatalf("public brand: %v", err)
	}
	if view.ContactPerson != "Jane Doe" {
		t.Fatalf("contact person = %q", view.ContactPerson)
	}

	if _, err := a.PublicBrand(blogger, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing brand: err = %v", err)
	}
}
