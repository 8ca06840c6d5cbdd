package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"blogopen/internal/util"
	"blogopen/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local runs
// without Postgres, and mirrors GormStore semantics including conversation
// pair uniqueness.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	profiles      map[string]domain.Profile
	profileByUser map[string]string // user ID -> profile ID
	profileOrder  []string
	brandExts     map[string]domain.BrandExtension
	bloggerExts   map[string]domain.BloggerExtension
	avatars       map[string]domain.Avatar
	convs         map[string]domain.Conversation
	convByPair    map[[2]string]string // (brand, blogger) -> conversation ID
	messages      map[string][]domain.Message
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		profiles:      make(map[string]domain.Profile),
		profileByUser: make(map[string]string),
		brandExts:     make(map[string]domain.BrandExtension),
		bloggerExts:   make(map[string]domain.BloggerExtension),
		avatars:       make(map[string]domain.Avatar),
		convs:         make(map[string]domain.Conversation),
		convByPair:    make(map[[2]string]string),
		messages:      make(map[string][]domain.Message),
	}
}

// SaveUser registers or updates a user. The email map stands in for the
// unique index.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.email[u.Email]; ok && owner != u.ID {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveProfile stores or replaces a profile and tracks insertion order.
func (m *MemoryStore) SaveProfile(p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; !exists {
		m.profileOrder = append(m.profileOrder, p.ID)
	}
	m.profiles[p.ID] = p
	m.profileByUser[p.UserID] = p.ID
	return nil
}

// GetProfileByUserID returns the profile owned by a user.
func (m *MemoryStore) GetProfileByUserID(userID string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.profileByUser[userID]; ok {
		p, exists := m.profiles[id]
		return p, exists, nil
	}
	return domain.Profile{}, false, nil
}

// GetProfileByID returns a profile by ID.
func (m *MemoryStore) GetProfileByID(id string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

// SaveBrandExtension stores or replaces brand fields.
func (m *MemoryStore) SaveBrandExtension(ext domain.BrandExtension) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brandExts[ext.ProfileID] = ext
	return nil
}

// GetBrandExtension returns brand fields for a profile.
func (m *MemoryStore) GetBrandExtension(profileID string) (domain.BrandExtension, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.brandExts[profileID]
	return ext, ok, nil
}

// SaveBloggerExtension stores or replaces blogger fields.
func (m *MemoryStore) SaveBloggerExtension(ext domain.BloggerExtension) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bloggerExts[ext.ProfileID] = ext
	return nil
}

// GetBloggerExtension returns blogger fields for a profile.
func (m *MemoryStore) GetBloggerExtension(profileID string) (domain.BloggerExtension, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.bloggerExts[profileID]
	return ext, ok, nil
}

// ListBloggers filters blogger profiles in insertion order.
func (m *MemoryStore) ListBloggers(filter domain.BloggerFilter) ([]domain.BloggerListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BloggerListing, 0)
	for _, id := range m.profileOrder {
		p, ok := m.profiles[id]
		if !ok || p.Role != domain.RoleBlogger {
			continue
		}
		ext := m.bloggerExts[id]
		if !matchesBloggerFilter(p, ext, filter) {
			continue
		}
		res = append(res, domain.BloggerListing{Profile: p, Extension: ext})
	}
	return res, nil
}

// ListBrands returns brand profiles in insertion order.
func (m *MemoryStore) ListBrands() ([]domain.BrandListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BrandListing, 0)
	for _, id := range m.profileOrder {
		p, ok := m.profiles[id]
		if !ok || p.Role != domain.RoleBrand {
			continue
		}
		res = append(res, domain.BrandListing{Profile: p, Extension: m.brandExts[id]})
	}
	return res, nil
}

func matchesBloggerFilter(p domain.Profile, ext domain.BloggerExtension, f domain.BloggerFilter) bool {
	if city := strings.TrimSpace(f.City); city != "" && !strings.EqualFold(p.City, city) {
		return false
	}
	if platform := strings.TrimSpace(f.Platform); platform != "" && !strings.EqualFold(ext.Platform, platform) {
		return false
	}
	if topic := strings.TrimSpace(f.Topic); topic != "" &&
		!strings.Contains(strings.ToLower(ext.Topic), strings.ToLower(topic)) {
		return false
	}
	if f.FollowersMin != nil && ext.Followers < *f.FollowersMin {
		return false
	}
	if f.FollowersMax != nil && ext.Followers > *f.FollowersMax {
		return false
	}
	return true
}

// SaveAvatar replaces the stored avatar as one unit.
func (m *MemoryStore) SaveAvatar(a domain.Avatar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avatars[a.ProfileID] = a
	return nil
}

// GetAvatar returns the stored avatar for a profile.
func (m *MemoryStore) GetAvatar(profileID string) (domain.Avatar, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.avatars[profileID]
	return a, ok, nil
}

// HasAvatar reports whether a profile has an avatar.
func (m *MemoryStore) HasAvatar(profileID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.avatars[profileID]
	return ok, nil
}

// GetOrCreateConversation returns the conversation for a pair, creating it
// when absent. The mutex stands in for the unique index.
func (m *MemoryStore) GetOrCreateConversation(brandID, bloggerID string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair := [2]string{brandID, bloggerID}
	if id, ok := m.convByPair[pair]; ok {
		return m.convs[id], nil
	}
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        util.NewID(),
		BrandID:   brandID,
		BloggerID: bloggerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.convs[conv.ID] = conv
	m.convByPair[pair] = conv.ID
	return conv, nil
}

// GetConversation returns a conversation by ID.
func (m *MemoryStore) GetConversation(id string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	return c, ok, nil
}

// ListConversationsByProfile returns the profile's conversations, most
// recently active first.
func (m *MemoryStore) ListConversationsByProfile(profileID string) ([]domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Conversation, 0)
	for _, c := range m.convs {
		if c.Participant(profileID) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})
	return res, nil
}

// AppendMessage records a message and bumps the conversation's updated_at
// under the same lock.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	if c, ok := m.convs[msg.ConversationID]; ok {
		c.UpdatedAt = msg.CreatedAt
		m.convs[msg.ConversationID] = c
	}
	return nil
}

// ListMessages returns all messages of a conversation oldest first.
func (m *MemoryStore) ListMessages(conversationID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	res := make([]domain.Message, len(msgs))
	copy(res, msgs)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// LastMessage returns the newest message of a conversation.
func (m *MemoryStore) LastMessage(conversationID string) (domain.Message, bool, error) {
	msgs, err := m.ListMessages(conversationID)
	if err != nil || len(msgs) == 0 {
		return domain.Message{}, false, err
	}
	return msgs[len(msgs)-1], true, nil
}

// UnreadCount counts messages from the other party still unread on the
// viewer's side.
func (m *MemoryStore) UnreadCount(conversationID string, side domain.Role, viewerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, msg := range m.messages[conversationID] {
		if msg.SenderID == viewerID {
			continue
		}
		if !msg.ReadBy(side) {
			count++
		}
	}
	return count, nil
}

// MarkRead flips the reader-side flag on all messages not authored by the
// reader.
func (m *MemoryStore) MarkRead(conversationID string, side domain.Role, readerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID == readerID {
			continue
		}
		if side == domain.RoleBrand {
			msgs[i].ReadByBrand = true
		} else {
			msgs[i].ReadByBlogger = true
		}
	}
	return nil
}
