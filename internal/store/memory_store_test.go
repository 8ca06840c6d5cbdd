package store

import (
	"errors"
	"testing"
	"time"

	"blogopen/pkg/domain"
)

func TestGetOrCreateConversationReturnsSameRow(t *testing.T) {
	s := NewMemoryStore()
	first, err := s.GetOrCreateConversation("brand-1", "blogger-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.GetOrCreateConversation("brand-1", "blogger-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("pair produced two conversations: %q vs %q", first.ID, second.ID)
	}
	other, err := s.GetOrCreateConversation("brand-1", "blogger-2")
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("different pair should get its own conversation")
	}
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	s := NewMemoryStore()
	conv, err := s.GetOrCreateConversation("brand-1", "blogger-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC()
	msgs := []domain.Message{
		{ID: "m1", ConversationID: conv.ID, SenderID: "brand-1", Text: "hi", CreatedAt: now, ReadByBrand: true},
		{ID: "m2", ConversationID: conv.ID, SenderID: "blogger-1", Text: "hey", CreatedAt: now.Add(time.Second), ReadByBlogger: true},
	}
	for _, m := range msgs {
		if err := s.AppendMessage(m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	unread, err := s.UnreadCount(conv.ID, domain.RoleBrand, "brand-1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 1 {
		t.Fatalf("brand unread = %d, want 1", unread)
	}

	if err := s.MarkRead(conv.ID, domain.RoleBrand, "brand-1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ = s.UnreadCount(conv.ID, domain.RoleBrand, "brand-1")
	if unread != 0 {
		t.Fatalf("brand unread after mark = %d, want 0", unread)
	}
	// the blogger's side is untouched
	stored, _ := s.ListMessages(conv.ID)
	for _, m := range stored {
		if m.ID == "m1" && m.ReadByBlogger {
			t.Fatal("marking for brand must not flip the blogger flag")
		}
	}
}

func TestAppendMessageBumpsOrdering(t *testing.T) {
	s := NewMemoryStore()
	first, _ := s.GetOrCreateConversation("brand-1", "blogger-1")
	second, _ := s.GetOrCreateConversation("brand-1", "blogger-2")

	msg := domain.Message{
		ID:             "m1",
		ConversationID: first.ID,
		SenderID:       "brand-1",
		Text:           "hi",
		CreatedAt:      time.Now().UTC().Add(time.Hour),
	}
	if err := s.AppendMessage(msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	convs, err := s.ListConversationsByProfile("brand-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != first.ID {
		t.Fatalf("conversation with the newest message should sort first: %+v", convs)
	}
	if convs[1].ID != second.ID {
		t.Fatalf("unexpected ordering: %+v", convs)
	}
	if !convs[0].UpdatedAt.Equal(msg.CreatedAt) {
		t.Fatalf("updated_at = %v, want message time %v", convs[0].UpdatedAt, msg.CreatedAt)
	}
}

func TestSaveUserRejectsDuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveUser(domain.User{ID: "u-1", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	// same id may update, a different id hits the unique email
	if err := s.SaveUser(domain.User{ID: "u-1", Email: "dup@example.com"}); err != nil {
		t.Fatalf("update same user: %v", err)
	}
	err := s.SaveUser(domain.User{ID: "u-2", Email: "dup@example.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	s := NewMemorySessionStore()
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || uid != "user-1" {
		t.Fatalf("lookup = (%q, %v, %v)", uid, ok, err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token should be gone after delete")
	}
}
