package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// knowledgeHandler serves knowledge-base administration.
type knowledgeHandler struct {
	assistant Assistant
	logger    *slog.Logger
}

type ingestTextRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURI string `json:"sourceUri,omitempty"`
	Type      string `json:"type,omitempty"`
}

type ingestTextResponse struct {
	DocumentID int64 `json:"documentId"`
	Chunks     int   `json:"chunks"`
}

// ingestText handles POST /api/ingest/text.
func (h *knowledgeHandler) ingestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decodeBody(w, r, maxIngestBodyBytes, &req, h.logger); err != nil {
		return
	}

	var sourceURI, docType *string
	if req.SourceURI != "" {
		sourceURI = &req.SourceURI
	}
	if req.Type != "" {
		docType = &req.Type
	}

	docID, chunks, err := h.assistant.IngestText(r.Context(), req.Title, req.Content, sourceURI, docType)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, ingestTextResponse{DocumentID: docID, Chunks: chunks})
}

type documentItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	SourceURI string    `json:"sourceUri,omitempty"`
	Type      string    `json:"type,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listDocumentsResponse struct {
	Documents []documentItem `json:"documents"`
}

// listDocuments handles GET /api/knowledge/documents.
func (h *knowledgeHandler) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.assistant.ListDocuments(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]documentItem, len(docs))
	for i, d := range docs {
		item := documentItem{ID: d.ID, Title: d.Title, UpdatedAt: d.UpdatedAt}
		if d.SourceURI != nil {
			item.SourceURI = *d.SourceURI
		}
		if d.Type != nil {
			item.Type = *d.Type
		}
		items[i] = item
	}
	writeJSON(w, http.StatusOK, listDocumentsResponse{Documents: items})
}

// deleteDocument handles DELETE /api/knowledge/documents/{id}. Chunks go
// with the document via the schema's cascade.
func (h *knowledgeHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid document ID", h.logger)
		return
	}

	if err := h.assistant.DeleteDocument(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
