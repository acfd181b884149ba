package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/saludplus/asistente/internal/assistant"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/ollama"
)

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy so headers are only sent after successful
// encoding; an encoding failure still yields a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		slog.Debug("failed to write response body", "error", err)
	}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "code", code)
	}
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeDomainError maps pipeline errors to HTTP status codes: validation
// sentinels to 400, unknown ids to 404, model/embedding dependency failures
// to 502, anything else to 500. Internal detail never reaches the client.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var statusErr *ollama.StatusError

	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty", logger)
	case errors.Is(err, assistant.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "empty_document", "title and content must not be empty", logger)
	case errors.Is(err, conversation.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", logger)
	case errors.Is(err, knowledge.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document_not_found", "document not found", logger)
	case errors.As(err, &statusErr), errors.Is(err, ollama.ErrMalformedResponse):
		logger.Error("model dependency failed", "error", err)
		writeError(w, http.StatusBadGateway, "model_unavailable", "language model service failed", logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
