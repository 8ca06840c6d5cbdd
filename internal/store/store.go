package store

import (
	"errors"

	"blogopen/pkg/domain"
)

// ErrDuplicateEmail reports a violation of the unique email index. Callers
// translate it into their own conflict error.
var ErrDuplicateEmail = errors.New("email already taken")

// Store defines persistence operations for users, profiles, conversations,
// and messages.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// profiles
	SaveProfile(domain.Profile) error
	GetProfileByUserID(userID string) (domain.Profile, bool, error)
	GetProfileByID(id string) (domain.Profile, bool, error)

	// role extensions
	SaveBrandExtension(domain.BrandExtension) error
	GetBrandExtension(profileID string) (domain.BrandExtension, bool, error)
	SaveBloggerExtension(domain.BloggerExtension) error
	GetBloggerExtension(profileID string) (domain.BloggerExtension, bool, error)

	// directory
	ListBloggers(filter domain.BloggerFilter) ([]domain.BloggerListing, error)
	ListBrands() ([]domain.BrandListing, error)

	// avatars
	SaveAvatar(domain.Avatar) error
	GetAvatar(profileID string) (domain.Avatar, bool, error)
	HasAvatar(profileID string) (bool, error)

	// conversations
	GetOrCreateConversation(brandID, bloggerID string) (domain.Conversation, error)
	GetConversation(id string) (domain.Conversation, bool, error)
	ListConversationsByProfile(profileID string) ([]domain.Conversation, error)

	// messages
	AppendMessage(domain.Message) error
	ListMessages(conversationID string) ([]domain.Message, error)
	LastMessage(conversationID string) (domain.Message, bool, error)
	UnreadCount(conversationID string, side domain.Role, viewerID string) (int, error)
	MarkRead(conversationID string, side domain.Role, readerID string) error
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
