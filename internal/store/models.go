package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ProfileModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"uniqueIndex;not null"`
	Role      string    `gorm:"not null;index"`
	City      string
	About     string
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type BrandExtensionModel struct {
	ProfileID     string `gorm:"primaryKey"`
	BrandName     string
	Sphere        string
	Budget        string
	INN           string `gorm:"column:inn"`
	ContactPerson string
	Topics        datatypes.JSON `gorm:"type:jsonb"`
}

type BloggerExtensionModel struct {
	ProfileID   string `gorm:"primaryKey"`
	Nickname    string
	Platform    string
	PlatformURL string
	Followers   int `gorm:"not null;default:0;index"`
	Topic       string
	Formats     string
	Topics      datatypes.JSON `gorm:"type:jsonb"`
	INN         string         `gorm:"column:inn"`
}

// AvatarModel stores the uploaded image per profile. Data is empty when the
// bytes live in object storage.
type AvatarModel struct {
	ProfileID string `gorm:"primaryKey"`
	Mime      string `gorm:"not null"`
	Filename  string
	Data      []byte    `gorm:"type:bytea"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ConversationModel enforces at most one conversation per (brand, blogger)
// pair via the composite unique index.
type ConversationModel struct {
	ID        string    `gorm:"primaryKey"`
	BrandID   string    `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	BloggerID string    `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID             string    `gorm:"primaryKey"`
	ConversationID string    `gorm:"not null;index:idx_message_conv_created"`
	SenderID       string    `gorm:"not null;index"`
	Text           string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_message_conv_created"`
	ReadByBrand    bool      `gorm:"not null;default:false"`
	ReadByBlogger  bool      `gorm:"not null;default:false"`
}
