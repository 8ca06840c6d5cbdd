package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"blogopen/internal/app"
	"blogopen/pkg/domain"
)

type startConversationResponse struct {
	Ok             bool   `json:"ok"`
	ConversationID string `json:"conversation_id"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Ok      bool            `json:"ok"`
	Message app.MessageView `json:"message"`
}

func (s *Server) handleConversationsList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.Conversations(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[app.ConversationEntry]{Ok: true, Results: entries})
}

// chatSubtree dispatches /with/{id}, /{id}/messages, and /{id}/read under
// the given route prefix. The prefix is passed in because the chat API is
// mounted twice for older clients.
func (s *Server) chatSubtree(prefix string) authHandler {
	return func(w http.ResponseWriter, r *http.Request, user domain.User) {
		rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 2 && parts[0] == "with" && parts[1] != "":
			s.handleStartConversation(w, r, user, parts[1])
		case len(parts) == 2 && parts[1] == "messages" && parts[0] != "":
			s.handleConversationMessages(w, r, user, parts[0])
		case len(parts) == 2 && parts[1] == "read" && parts[0] != "":
			s.handleConversationMarkRead(w, r, user, parts[0])
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request, user domain.User, profileID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	convID, err := s.app.StartConversation(user, profileID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startConversationResponse{Ok: true, ConversationID: convID})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request, user domain.User, convID string) {
	switch r.Method {
	case http.MethodGet:
		views, err := s.app.Messages(user, convID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[app.MessageView]{Ok: true, Results: views})
	case http.MethodPost:
		var req sendMessageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
			return
		}
		view, err := s.app.SendMessage(user, convID, req.Text)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sendMessageResponse{Ok: true, Message: view})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleConversationMarkRead(w http.ResponseWriter, r *http.Request, user domain.User, convID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.MarkConversationRead(user, convID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
