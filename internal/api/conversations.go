package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// defaultMessageLimit bounds transcript readback per request.
const defaultMessageLimit = 200

// conversationHandler serves conversation creation and transcript readback.
type conversationHandler struct {
	assistant     Assistant
	conversations ConversationReader
	logger        *slog.Logger
}

// createConversation handles POST /api/conversations.
func (h *conversationHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	id, err := h.assistant.CreateConversation(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"conversationId": id.String()})
}

type messageItem struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type messagesResponse struct {
	ConversationID string        `json:"conversationId"`
	Messages       []messageItem `json:"messages"`
}

// getMessages handles GET /api/conversations/{id}/messages.
func (h *conversationHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid conversation ID", h.logger)
		return
	}

	ok, err := h.conversations.Exists(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", h.logger)
		return
	}

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 1000", h.logger)
			return
		}
		limit = parsed
	}

	msgs, err := h.conversations.Messages(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]messageItem, len(msgs))
	for i, m := range msgs {
		items[i] = messageItem{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
	}
	writeJSON(w, http.StatusOK, messagesResponse{
		ConversationID: id.String(),
		Messages:       items,
	})
}
