package handlers

import (
	"net/http"

	"github.com/wecube/server/internal/service"
	"github.com/wecube/server/internal/transport/http/middleware"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
}

func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// Ensure opens the caller's conversation with user_id, creating it if needed.
func (h *ConversationHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID string `json:"user_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	conv, err := h.conversationService.EnsureConversation(r.Context(), middleware.GetUserID(r.Context()), input.UserID)
	if err != nil {
		writeServiceError(w, "ensure conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.conversationService.ListConversations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.conversationService.GetConversation(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
