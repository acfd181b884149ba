package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

const (
	// maxChatBodyBytes bounds chat and search request bodies.
	maxChatBodyBytes = 1 << 20
	// maxIngestBodyBytes bounds ingestion bodies; documents are larger
	// than chat turns.
	maxIngestBodyBytes = 8 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON decodes a JSON request body into dst, enforcing the size
// limit. Oversized bodies yield errBodyTooLarge.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// decodeBody reads a JSON body and writes the client error itself; a
// non-nil return means the response is already sent.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any, logger *slog.Logger) error {
	err := decodeJSON(w, r, limit, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
	default:
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
	}
	return err
}

// parseConversationID parses an optional conversation id. Empty means "start
// a new conversation" and maps to uuid.Nil.
func parseConversationID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing conversation id: %w", err)
	}
	return id, nil
}
