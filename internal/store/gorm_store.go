package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blogopen/internal/util"
	"blogopen/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ProfileModel{},
		&BrandExtensionModel{},
		&BloggerExtensionModel{},
		&AvatarModel{},
		&ConversationModel{},
		&MessageModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user. A concurrent registration of the
// same email loses on the unique index and surfaces as ErrDuplicateEmail.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "role"}),
	}).Create(&model).Error
	// id conflicts are absorbed above, so a duplicated key here can only be
	// the email index
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveProfile stores or updates a profile.
func (s *GormStore) SaveProfile(p domain.Profile) error {
	model := profileToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "city", "about", "updated_at"}),
	}).Create(&model).Error
}

// GetProfileByUserID returns the profile owned by a user.
func (s *GormStore) GetProfileByUserID(userID string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// GetProfileByID returns a profile by ID.
func (s *GormStore) GetProfileByID(id string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// SaveBrandExtension stores or updates brand-specific fields.
func (s *GormStore) SaveBrandExtension(ext domain.BrandExtension) error {
	model := brandExtToModel(ext)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"brand_name", "sphere", "budget", "inn", "contact_person", "topics"}),
	}).Create(&model).Error
}

// GetBrandExtension returns brand fields for a profile.
func (s *GormStore) GetBrandExtension(profileID string) (domain.BrandExtension, bool, error) {
	var model BrandExtensionModel
	if err := s.db.First(&model, "profile_id = ?", profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.BrandExtension{}, false, nil
		}
		return domain.BrandExtension{}, false, err
	}
	return brandExtFromModel(model), true, nil
}

// SaveBloggerExtension stores or updates blogger-specific fields.
func (s *GormStore) SaveBloggerExtension(ext domain.BloggerExtension) error {
	model := bloggerExtToModel(ext)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "platform", "platform_url", "followers", "topic", "formats", "topics", "inn"}),
	}).Create(&model).Error
}

// GetBloggerExtension returns blogger fields for a profile.
func (s *GormStore) GetBloggerExtension(profileID string) (domain.BloggerExtension, bool, error) {
	var model BloggerExtensionModel
	if err := s.db.First(&model, "profile_id = ?", profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.BloggerExtension{}, false, nil
		}
		return domain.BloggerExtension{}, false, err
	}
	return bloggerExtFromModel(model), true, nil
}

// ListBloggers returns blogger profiles matching the filter, in insertion
// order. Filters combine with AND; empty fields are skipped.
func (s *GormStore) ListBloggers(filter domain.BloggerFilter) ([]domain.BloggerListing, error) {
	tx := s.db.Model(&ProfileModel{}).
		Joins("JOIN blogger_extension_models ext ON ext.profile_id = profile_models.id").
		Where("profile_models.role = ?", string(domain.RoleBlogger))
	if city := strings.TrimSpace(filter.City); city != "" {
		tx = tx.Where("LOWER(profile_models.city) = LOWER(?)", city)
	}
	if platform := strings.TrimSpace(filter.Platform); platform != "" {
		tx = tx.Where("LOWER(ext.platform) = LOWER(?)", platform)
	}
	if topic := strings.TrimSpace(filter.Topic); topic != "" {
		tx = tx.Where("ext.topic ILIKE ?", "%"+escapeLike(topic)+"%")
	}
	if filter.FollowersMin != nil {
		tx = tx.Where("ext.followers >= ?", *filter.FollowersMin)
	}
	if filter.FollowersMax != nil {
		tx = tx.Where("ext.followers <= ?", *filter.FollowersMax)
	}
	var profiles []ProfileModel
	if err := tx.Order("profile_models.created_at ASC, profile_models.id ASC").
		Select("profile_models.*").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return s.bloggerListings(profiles)
}

// ListBrands returns all brand profiles in insertion order.
func (s *GormStore) ListBrands() ([]domain.BrandListing, error) {
	var profiles []ProfileModel
	if err := s.db.Where("role = ?", string(domain.RoleBrand)).
		Order("created_at ASC, id ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	exts := make(map[string]domain.BrandExtension, len(ids))
	if len(ids) > 0 {
		var models []BrandExtensionModel
		if err := s.db.Where("profile_id IN ?", ids).Find(&models).Error; err != nil {
			return nil, err
		}
		for _, m := range models {
			exts[m.ProfileID] = brandExtFromModel(m)
		}
	}
	res := make([]domain.BrandListing, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, domain.BrandListing{
			Profile:   profileFromModel(p),
			Extension: exts[p.ID],
		})
	}
	return res, nil
}

func (s *GormStore) bloggerListings(profiles []ProfileModel) ([]domain.BloggerListing, error) {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	exts := make(map[string]domain.BloggerExtension, len(ids))
	if len(ids) > 0 {
		var models []BloggerExtensionModel
		if err := s.db.Where("profile_id IN ?", ids).Find(&models).Error; err != nil {
			return nil, err
		}
		for _, m := range models {
			exts[m.ProfileID] = bloggerExtFromModel(m)
		}
	}
	res := make([]domain.BloggerListing, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, domain.BloggerListing{
			Profile:   profileFromModel(p),
			Extension: exts[p.ID],
		})
	}
	return res, nil
}

// SaveAvatar replaces the stored avatar as one unit.
func (s *GormStore) SaveAvatar(a domain.Avatar) error {
	model := AvatarModel{
		ProfileID: a.ProfileID,
		Mime:      a.Mime,
		Filename:  a.Filename,
		Data:      a.Data,
		UpdatedAt: a.UpdatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mime", "filename", "data", "updated_at"}),
	}).Create(&model).Error
}

// GetAvatar returns the stored avatar for a profile.
func (s *GormStore) GetAvatar(profileID string) (domain.Avatar, bool, error) {
	var model AvatarModel
	if err := s.db.First(&model, "profile_id = ?", profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Avatar{}, false, nil
		}
		return domain.Avatar{}, false, err
	}
	return domain.Avatar{
		ProfileID: model.ProfileID,
		Mime:      model.Mime,
		Filename:  model.Filename,
		Data:      model.Data,
		UpdatedAt: model.UpdatedAt,
	}, true, nil
}

// HasAvatar reports whether a profile has an avatar without loading bytes.
func (s *GormStore) HasAvatar(profileID string) (bool, error) {
	var count int64
	if err := s.db.Model(&AvatarModel{}).Where("profile_id = ?", profileID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetOrCreateConversation returns the conversation for a (brand, blogger)
// pair, creating it when absent. The insert uses ON CONFLICT DO NOTHING on
// the pair's unique index, so concurrent calls converge on one row.
func (s *GormStore) GetOrCreateConversation(brandID, bloggerID string) (domain.Conversation, error) {
	now := time.Now().UTC()
	model := ConversationModel{
		ID:        util.NewID(),
		BrandID:   brandID,
		BloggerID: bloggerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "blogger_id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return domain.Conversation{}, err
	}
	// Re-read: either this call inserted the row or a concurrent one did.
	var existing ConversationModel
	if err := s.db.Where("brand_id = ? AND blogger_id = ?", brandID, bloggerID).First(&existing).Error; err != nil {
		return domain.Conversation{}, err
	}
	return conversationFromModel(existing), nil
}

// GetConversation returns a conversation by ID.
func (s *GormStore) GetConversation(id string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// ListConversationsByProfile returns conversations where the profile is on
// either side, most recently active first.
func (s *GormStore) ListConversationsByProfile(profileID string) ([]domain.Conversation, error) {
	var models []ConversationModel
	if err := s.db.Where("brand_id = ? OR blogger_id = ?", profileID, profileID).
		Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		res = append(res, conversationFromModel(m))
	}
	return res, nil
}

// AppendMessage records a message and bumps the conversation's updated_at in
// the same transaction, so it resorts to the top of the list atomically.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return tx.Model(&ConversationModel{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

// ListMessages returns all messages of a conversation oldest first.
func (s *GormStore) ListMessages(conversationID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// LastMessage returns the newest message of a conversation.
func (s *GormStore) LastMessage(conversationID string) (domain.Message, bool, error) {
	var model MessageModel
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, err
	}
	return messageFromModel(model), true, nil
}

// UnreadCount counts messages from the other party still unread on the
// viewer's side.
func (s *GormStore) UnreadCount(conversationID string, side domain.Role, viewerID string) (int, error) {
	var count int64
	err := s.db.Model(&MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, viewerID).
		Where(readFlagColumn(side)+" = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// MarkRead flips the reader-side flag on all messages not authored by the
// reader. Idempotent.
func (s *GormStore) MarkRead(conversationID string, side domain.Role, readerID string) error {
	return s.db.Model(&MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, readerID).
		Update(readFlagColumn(side), true).Error
}

func readFlagColumn(side domain.Role) string {
	if side == domain.RoleBrand {
		return "read_by_brand"
	}
	return "read_by_blogger"
}

func escapeLike(raw string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(raw)
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

func profileToModel(p domain.Profile) ProfileModel {
	return ProfileModel{
		ID:        p.ID,
		UserID:    p.UserID,
		Role:      string(p.Role),
		City:      p.City,
		About:     p.About,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func profileFromModel(m ProfileModel) domain.Profile {
	return domain.Profile{
		ID:        m.ID,
		UserID:    m.UserID,
		Role:      domain.Role(m.Role),
		City:      m.City,
		About:     m.About,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func brandExtToModel(ext domain.BrandExtension) BrandExtensionModel {
	return BrandExtensionModel{
		ProfileID:     ext.ProfileID,
		BrandName:     ext.BrandName,
		Sphere:        ext.Sphere,
		Budget:        ext.Budget,
		INN:           ext.INN,
		ContactPerson: ext.ContactPerson,
		Topics:        topicsToJSON(ext.Topics),
	}
}

func brandExtFromModel(m BrandExtensionModel) domain.BrandExtension {
	return domain.BrandExtension{
		ProfileID:     m.ProfileID,
		BrandName:     m.BrandName,
		Sphere:        m.Sphere,
		Budget:        m.Budget,
		INN:           m.INN,
		ContactPerson: m.ContactPerson,
		Topics:        topicsFromJSON(m.Topics),
	}
}

func bloggerExtToModel(ext domain.BloggerExtension) BloggerExtensionModel {
	return BloggerExtensionModel{
		ProfileID:   ext.ProfileID,
		Nickname:    ext.Nickname,
		Platform:    ext.Platform,
		PlatformURL: ext.PlatformURL,
		Followers:   ext.Followers,
		Topic:       ext.Topic,
		Formats:     ext.Formats,
		Topics:      topicsToJSON(ext.Topics),
		INN:         ext.INN,
	}
}

func bloggerExtFromModel(m BloggerExtensionModel) domain.BloggerExtension {
	return domain.BloggerExtension{
		ProfileID:   m.ProfileID,
		Nickname:    m.Nickname,
		Platform:    m.Platform,
		PlatformURL: m.PlatformURL,
		Followers:   m.Followers,
		Topic:       m.Topic,
		Formats:     m.Formats,
		Topics:      topicsFromJSON(m.Topics),
		INN:         m.INN,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:        m.ID,
		BrandID:   m.BrandID,
		BloggerID: m.BloggerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
		ReadByBrand:    msg.ReadByBrand,
		ReadByBlogger:  msg.ReadByBlogger,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
		ReadByBrand:    m.ReadByBrand,
		ReadByBlogger:  m.ReadByBlogger,
	}
}

func topicsToJSON(topics []string) datatypes.JSON {
	if topics == nil {
		topics = []string{}
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func topicsFromJSON(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
