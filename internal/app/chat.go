package app

import (
	"fmt"
	"strings"
	"time"

	"blogopen/internal/util"
	"blogopen/pkg/domain"
)

// ConversationEntry is one row of the conversation list, rendered for the
// requesting side.
type ConversationEntry struct {
	ID            string     `json:"id"`
	AvatarURL     string     `json:"avatar_url"`
	Title         string     `json:"title"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `json:"unread_count"`
}

// MessageView is one message rendered for a specific viewer.
type MessageView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	SenderID  string    `json:"sender_id"`
	IsMine    bool      `json:"is_mine"`
}

// StartConversation returns the conversation between the caller and the
// given profile, creating it on first contact. Exactly one side must be a
// brand.
func (a *App) StartConversation(user domain.User, otherProfileID string) (string, error) {
	me, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return "", err
	}
	other, ok, err := a.store.GetProfileByID(otherProfileID)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	if me.Role == other.Role {
		return "", ErrSameRoleConversation
	}
	brand, blogger := me, other
	if me.Role == domain.RoleBlogger {
		brand, blogger = other, me
	}
	conv, err := a.store.GetOrCreateConversation(brand.ID, blogger.ID)
	if err != nil {
		return "", fmt.Errorf("get or create conversation: %w", err)
	}
	return conv.ID, nil
}

// Conversations lists the caller's conversations, most recently active
// first, each titled after the other party.
func (a *App) Conversations(user domain.User) ([]ConversationEntry, error) {
	me, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return nil, err
	}
	convs, err := a.store.ListConversationsByProfile(me.ID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	entries := make([]ConversationEntry, 0, len(convs))
	for _, conv := range convs {
		otherID := conv.OtherParty(me.ID)
		title, err := a.displayName(otherID)
		if err != nil {
			return nil, err
		}
		entry := ConversationEntry{
			ID:        conv.ID,
			AvatarURL: a.avatarURL(otherID),
			Title:     title,
		}
		if last, ok, err := a.store.LastMessage(conv.ID); err != nil {
			return nil, fmt.Errorf("fetch last message: %w", err)
		} else if ok {
			entry.LastMessage = last.Text
			at := last.CreatedAt
			entry.LastMessageAt = &at
		}
		unread, err := a.store.UnreadCount(conv.ID, me.Role, me.ID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		entry.UnreadCount = unread
		entries = append(entries, entry)
	}
	return entries, nil
}

// Messages returns the full history of a conversation, oldest first.
func (a *App) Messages(user domain.User, conversationID string) ([]MessageView, error) {
	me, conv, err := a.participant(user, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := a.store.ListMessages(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{
			ID:        m.ID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
			SenderID:  m.SenderID,
			IsMine:    m.SenderID == me.ID,
		})
	}
	return views, nil
}

// SendMessage appends a message to a conversation the caller is part of.
// The sender's own side starts read; the recipient's side starts unread.
func (a *App) SendMessage(user domain.User, conversationID, text string) (MessageView, error) {
	me, conv, err := a.participant(user, conversationID)
	if err != nil {
		return MessageView{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return MessageView{}, ErrMessageTextRequired
	}
	now := time.Now().UTC()
	msg := domain.Message{
		ID:             util.NewID(),
		ConversationID: conv.ID,
		SenderID:       me.ID,
		Text:           text,
		CreatedAt:      now,
		ReadByBrand:    me.Role == domain.RoleBrand,
		ReadByBlogger:  me.Role == domain.RoleBlogger,
	}
	// the store bumps the conversation's updated_at alongside the append
	if err := a.store.AppendMessage(msg); err != nil {
		return MessageView{}, fmt.Errorf("append message: %w", err)
	}
	return MessageView{
		ID:        msg.ID,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
		SenderID:  msg.SenderID,
		IsMine:    true,
	}, nil
}

// MarkConversationRead clears the caller's unread counter. Idempotent.
func (a *App) MarkConversationRead(user domain.User, conversationID string) error {
	me, conv, err := a.participant(user, conversationID)
	if err != nil {
		return err
	}
	if err := a.store.MarkRead(conv.ID, me.Role, me.ID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (a *App) participant(user domain.User, conversationID string) (domain.Profile, domain.Conversation, error) {
	me, err := a.EnsureProfile(user, domain.RoleBrand)
	if err != nil {
		return domain.Profile{}, domain.Conversation{}, err
	}
	conv, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return domain.Profile{}, domain.Conversation{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return domain.Profile{}, domain.Conversation{}, ErrNotFound
	}
	if !conv.Participant(me.ID) {
		return domain.Profile{}, domain.Conversation{}, ErrForbidden
	}
	return me, conv, nil
}

// displayName picks the chat title for a profile: brand name or nickname
// when set, the account email otherwise.
func (a *App) displayName(profileID string) (string, error) {
	profile, ok, err := a.store.GetProfileByID(profileID)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	if !ok {
		return "", nil
	}
	var name string
	if profile.Role == domain.RoleBrand {
		ext, _, err := a.store.GetBrandExtension(profile.ID)
		if err != nil {
			return "", fmt.Errorf("fetch brand extension: %w", err)
		}
		name = ext.BrandName
	} else {
		ext, _, err := a.store.GetBloggerExtension(profile.ID)
		if err != nil {
			return "", fmt.Errorf("fetch blogger extension: %w", err)
		}
		name = ext.Nickname
	}
	if strings.TrimSpace(name) != "" {
		return name, nil
	}
	owner, ok, err := a.store.GetUserByID(profile.UserID)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", nil
	}
	return owner.Email, nil
}
