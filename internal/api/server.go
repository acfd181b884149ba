// Package api exposes the assistant pipeline over a JSON HTTP surface:
// ingestion, grounded chat, raw retrieval search, plain chat, conversation
// readback and knowledge-base administration.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saludplus/asistente/internal/assistant"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/rag"
)

// Assistant is the pipeline surface the handlers call. Implemented by
// *assistant.Assistant.
type Assistant interface {
	RagChat(ctx context.Context, message string, conversationID uuid.UUID, topK int) (*assistant.RagChatResult, error)
	Chat(ctx context.Context, message string, conversationID uuid.UUID) (*assistant.ChatResult, error)
	IngestText(ctx context.Context, title, content string, sourceURI, docType *string) (int64, int, error)
	RagSearch(ctx context.Context, query string, topK int) ([]rag.Hit, error)
	CreateConversation(ctx context.Context) (uuid.UUID, error)
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// ConversationReader serves transcript readback. Implemented by
// *conversation.Store.
type ConversationReader interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Messages(ctx context.Context, id uuid.UUID, limit int) ([]conversation.Message, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        *slog.Logger
	Assistant     Assistant          // Required
	Conversations ConversationReader // Required
	Pool          *pgxpool.Pool      // Optional: nil disables pool ping in /ready
	CORSOrigins   []string           // Allowed origins for CORS
	TrustProxy    bool               // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst     int                // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Conversations == nil {
		return nil, errors.New("conversation reader is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{assistant: cfg.Assistant, logger: logger}
	kh := &knowledgeHandler{assistant: cfg.Assistant, logger: logger}
	vh := &conversationHandler{
		assistant:     cfg.Assistant,
		conversations: cfg.Conversations,
		logger:        logger,
	}

	mux := http.NewServeMux()

	// Chat and retrieval
	mux.HandleFunc("POST /api/chat/rag", ch.ragChat)
	mux.HandleFunc("POST /api/chat", ch.chat)
	mux.HandleFunc("POST /api/rag/search", ch.ragSearch)

	// Knowledge base
	mux.HandleFunc("POST /api/ingest/text", kh.ingestText)
	mux.HandleFunc("GET /api/knowledge/documents", kh.listDocuments)
	mux.HandleFunc("DELETE /api/knowledge/documents/{id}", kh.deleteDocument)

	// Conversations
	mux.HandleFunc("POST /api/conversations", vh.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", vh.getMessages)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes live outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
