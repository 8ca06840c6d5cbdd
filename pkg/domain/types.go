package domain

import "time"

// Role distinguishes the two sides of the marketplace.
type Role string

const (
	RoleBrand   Role = "brand"
	RoleBlogger Role = "blogger"
)

// ParseRole normalizes a role string, falling back to brand for anything
// outside the known set.
func ParseRole(raw string) Role {
	if Role(raw) == RoleBlogger {
		return RoleBlogger
	}
	return RoleBrand
}

// User is an account identity. Credentials live here; everything shown to
// the other side of the marketplace lives on the Profile.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the per-account record shared by both roles.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	City      string    `json:"city"`
	About     string    `json:"about"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BrandExtension holds brand-only profile fields, 1:1 with a brand Profile.
type BrandExtension struct {
	ProfileID     string   `json:"profileId"`
	BrandName     string   `json:"brand_name"`
	Sphere        string   `json:"sphere"`
	Budget        string   `json:"budget"`
	INN           string   `json:"inn"`
	ContactPerson string   `json:"contact_person"`
	Topics        []string `json:"topics"`
}

// BloggerExtension holds blogger-only profile fields, 1:1 with a blogger
// Profile. Followers stays non-negative; the update path never writes a
// negative value.
type BloggerExtension struct {
	ProfileID   string   `json:"profileId"`
	Nickname    string   `json:"nickname"`
	Platform    string   `json:"platform"`
	PlatformURL string   `json:"platform_url"`
	Followers   int      `json:"followers"`
	Topic       string   `json:"topic"`
	Formats     string   `json:"formats"`
	Topics      []string `json:"topics"`
	INN         string   `json:"inn"`
}

// Avatar is the uploaded profile image. Data may be empty when the bytes
// live in object storage instead of the database row.
type Avatar struct {
	ProfileID string
	Mime      string
	Filename  string
	Data      []byte
	UpdatedAt time.Time
}

// Conversation is the single channel between one brand profile and one
// blogger profile. The (BrandID, BloggerID) pair is unique.
type Conversation struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brandId"`
	BloggerID string    `json:"bloggerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Participant reports whether a profile is on either side of the conversation.
func (c Conversation) Participant(profileID string) bool {
	return c.BrandID == profileID || c.BloggerID == profileID
}

// OtherParty returns the counterpart profile id for a participant.
func (c Conversation) OtherParty(profileID string) string {
	if c.BrandID == profileID {
		return c.BloggerID
	}
	return c.BrandID
}

// Message belongs to one conversation. Immutable after creation except for
// the two per-side read flags.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	ReadByBrand    bool      `json:"-"`
	ReadByBlogger  bool      `json:"-"`
}

// ReadBy reports the read flag for one side of the conversation.
func (m Message) ReadBy(side Role) bool {
	if side == RoleBrand {
		return m.ReadByBrand
	}
	return m.ReadByBlogger
}

// BloggerFilter narrows the blogger directory. Zero values mean "no
// constraint"; follower bounds are inclusive.
type BloggerFilter struct {
	City         string
	Platform     string
	Topic        string
	FollowersMin *int
	FollowersMax *int
}

// BloggerListing pairs a blogger profile with its extension for directory
// rendering.
type BloggerListing struct {
	Profile   Profile
	Extension BloggerExtension
}

// BrandListing pairs a brand profile with its extension.
type BrandListing struct {
	Profile   Profile
	Extension BrandExtension
}
