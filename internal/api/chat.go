package api

import (
	"log/slog"
	"net/http"

	"github.com/saludplus/asistente/internal/assistant"
)

// chatHandler serves grounded chat, plain chat and raw retrieval search.
type chatHandler struct {
	assistant Assistant
	logger    *slog.Logger
}

type ragChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	TopK           int    `json:"topK,omitempty"`
}

// ragChatResponse deliberately carries no cache indicator: repeated
// identical questions inside the cache TTL must serialize to the same
// bytes. Whether an answer came from the cache is visible in the logs only.
type ragChatResponse struct {
	ConversationID string               `json:"conversationId"`
	Answer         string               `json:"answer"`
	Retrieved      int                  `json:"retrieved"`
	Threshold      float64              `json:"threshold"`
	Items          []assistant.Evidence `json:"items"`
}

// ragChat handles POST /api/chat/rag.
func (h *chatHandler) ragChat(w http.ResponseWriter, r *http.Request) {
	var req ragChatRequest
	if err := h.decode(w, r, maxChatBodyBytes, &req); err != nil {
		return
	}

	convID, err := parseConversationID(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_conversation_id", "conversationId must be a UUID", h.logger)
		return
	}

	res, err := h.assistant.RagChat(r.Context(), req.Message, convID, req.TopK)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if res.Cached {
		h.logger.Debug("rag chat served from cache", "conversation_id", res.ConversationID)
	}

	items := res.Items
	if items == nil {
		items = []assistant.Evidence{}
	}
	writeJSON(w, http.StatusOK, ragChatResponse{
		ConversationID: res.ConversationID.String(),
		Answer:         res.Answer,
		Retrieved:      res.Retrieved,
		Threshold:      res.Threshold,
		Items:          items,
	})
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

// chat handles POST /api/chat.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := h.decode(w, r, maxChatBodyBytes, &req); err != nil {
		return
	}

	convID, err := parseConversationID(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_conversation_id", "conversationId must be a UUID", h.logger)
		return
	}

	res, err := h.assistant.Chat(r.Context(), req.Message, convID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: res.ConversationID.String(),
		Answer:         res.Answer,
	})
}

type ragSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

type ragSearchItem struct {
	ChunkID    int64   `json:"chunkId"`
	DocumentID int64   `json:"documentId"`
	Idx        int     `json:"idx"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
	SourceURI  string  `json:"sourceUri,omitempty"`
}

type ragSearchResponse struct {
	Query     string          `json:"query"`
	Retrieved int             `json:"retrieved"`
	Items     []ragSearchItem `json:"items"`
}

// ragSearch handles POST /api/rag/search. Results carry no similarity
// threshold so operators can inspect the raw ranking.
func (h *chatHandler) ragSearch(w http.ResponseWriter, r *http.Request) {
	var req ragSearchRequest
	if err := h.decode(w, r, maxChatBodyBytes, &req); err != nil {
		return
	}

	hits, err := h.assistant.RagSearch(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]ragSearchItem, len(hits))
	for i, hit := range hits {
		items[i] = ragSearchItem{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Idx:        hit.Idx,
			Content:    hit.Content,
			Similarity: hit.Similarity,
			Title:      hit.Title,
			SourceURI:  hit.SourceURI,
		}
	}
	writeJSON(w, http.StatusOK, ragSearchResponse{
		Query:     req.Query,
		Retrieved: len(items),
		Items:     items,
	})
}

func (h *chatHandler) decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	return decodeBody(w, r, limit, dst, h.logger)
}
