// Package assistant orchestrates the SaludPlus member assistant: document
// ingestion, grounded question answering over the knowledge base, plain
// chat, and the conversation lifecycle around them.
//
// The orchestrator owns the control flow only. Chunking, embedding, vector
// search, prompt assembly, caching and persistence live in their own
// packages and are consumed here through small interfaces, so every
// collaborator can be replaced in tests.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/saludplus/asistente/internal/cache"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/ollama"
	"github.com/saludplus/asistente/internal/rag"
)

// chatSystemPrompt frames the non-grounded chat endpoint.
const chatSystemPrompt = "Eres un asistente breve y claro de SaludPlus. Responde en español."

// Generator produces a completion for a fully assembled prompt.
// Implemented by *ollama.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error)
}

// Embedder turns text into a vector. Implemented by *ollama.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns confidence-filtered evidence for a query.
// Implemented by *rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, requestedTopK int) ([]rag.Hit, float64, error)
	ClampTopK(requested int) int
}

// KnowledgeStore persists documents and chunks and serves raw
// nearest-neighbor search. Implemented by *knowledge.Store.
type KnowledgeStore interface {
	CreateDocument(ctx context.Context, title string, sourceURI, docType *string) (int64, error)
	InsertChunk(ctx context.Context, documentID int64, idx int, content string, embedding []float32) error
	Search(ctx context.Context, embedding []float32, limit int) ([]rag.Hit, error)
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// ConversationStore persists the transcript. Implemented by
// *conversation.Store.
type ConversationStore interface {
	Create(ctx context.Context) (uuid.UUID, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Append(ctx context.Context, id uuid.UUID, role, content string) error
}

// ResponseCache memoizes grounded answers. Implemented by
// *cache.ResponseCache.
type ResponseCache interface {
	Get(key string) (string, bool)
	Set(key, payload string)
}

// Config tunes the orchestrator. Zero fields fall back to the package
// defaults of the components they feed.
type Config struct {
	Temperature   float64
	ContextWindow int
	ChunkMaxChars int
	ChunkOverlap  int
}

// Assistant wires the pipeline together.
//
// Assistant is safe for concurrent use; all mutable state lives in its
// collaborators.
type Assistant struct {
	generator     Generator
	embedder      Embedder
	retriever     Retriever
	knowledge     KnowledgeStore
	conversations ConversationStore
	cache         ResponseCache
	cfg           Config
	logger        *slog.Logger
}

// New creates an Assistant. logger may be nil.
func New(
	generator Generator,
	embedder Embedder,
	retriever Retriever,
	knowledgeStore KnowledgeStore,
	conversations ConversationStore,
	responseCache ResponseCache,
	cfg Config,
	logger *slog.Logger,
) *Assistant {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 4096
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = rag.DefaultChunkMaxChars
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = rag.DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Assistant{
		generator:     generator,
		embedder:      embedder,
		retriever:     retriever,
		knowledge:     knowledgeStore,
		conversations: conversations,
		cache:         responseCache,
		cfg:           cfg,
		logger:        logger,
	}
}

// Evidence is one supporting chunk returned alongside a grounded answer.
type Evidence struct {
	ChunkID    int64   `json:"chunkId"`
	DocumentID int64   `json:"documentId"`
	Idx        int     `json:"idx"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
	SourceURI  string  `json:"sourceUri,omitempty"`
}

// RagChatResult is the outcome of one grounded chat turn.
type RagChatResult struct {
	ConversationID uuid.UUID
	Answer         string
	Retrieved      int
	Threshold      float64
	Cached         bool
	Items          []Evidence
}

// cachedAnswer is the JSON payload stored in the response cache. The
// conversation id is deliberately absent: a cached answer is reusable
// across conversations.
type cachedAnswer struct {
	Answer    string     `json:"answer"`
	Retrieved int        `json:"retrieved"`
	Threshold float64    `json:"threshold"`
	Items     []Evidence `json:"items"`
}

// RagChat answers a member question grounded in the knowledge base.
//
// The turn proceeds: validate, resolve the conversation (uuid.Nil creates a
// new one, an unknown id fails without persisting anything), append the user
// turn, consult the cache, retrieve evidence, and either refuse with the
// fixed no-evidence answer (never cached, no model call) or generate,
// persist and cache the grounded answer. A generation failure leaves the
// user turn persisted and records no assistant turn.
func (a *Assistant) RagChat(ctx context.Context, message string, conversationID uuid.UUID, topK int) (*RagChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	convID, err := a.resolveConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := a.conversations.Append(ctx, convID, conversation.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	key := cache.Key(message)
	if payload, ok := a.cache.Get(key); ok {
		var hit cachedAnswer
		if err := json.Unmarshal([]byte(payload), &hit); err == nil {
			if err := a.conversations.Append(ctx, convID, conversation.RoleAssistant, hit.Answer); err != nil {
				return nil, fmt.Errorf("persisting cached assistant turn: %w", err)
			}
			a.logger.Info("answered from cache", "conversation_id", convID)
			return &RagChatResult{
				ConversationID: convID,
				Answer:         hit.Answer,
				Retrieved:      hit.Retrieved,
				Threshold:      hit.Threshold,
				Cached:         true,
				Items:          hit.Items,
			}, nil
		}
		a.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	hits, threshold, err := a.retriever.Retrieve(ctx, message, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving evidence: %w", err)
	}

	if len(hits) == 0 {
		if err := a.conversations.Append(ctx, convID, conversation.RoleAssistant, rag.NoEvidenceAnswer); err != nil {
			return nil, fmt.Errorf("persisting refusal turn: %w", err)
		}
		a.logger.Info("no evidence above threshold",
			"conversation_id", convID,
			"threshold", threshold,
		)
		return &RagChatResult{
			ConversationID: convID,
			Answer:         rag.NoEvidenceAnswer,
			Retrieved:      0,
			Threshold:      threshold,
		}, nil
	}

	system, user := rag.AssemblePrompt(message, hits)
	answer, err := a.generator.Generate(ctx, system+"\n\n"+user, ollama.GenerateOptions{
		Temperature:   a.cfg.Temperature,
		ContextWindow: a.cfg.ContextWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	if err := a.conversations.Append(ctx, convID, conversation.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("persisting assistant turn: %w", err)
	}

	items := evidenceFromHits(hits)
	if payload, err := json.Marshal(cachedAnswer{
		Answer:    answer,
		Retrieved: len(items),
		Threshold: threshold,
		Items:     items,
	}); err == nil {
		a.cache.Set(key, string(payload))
	}

	a.logger.Info("grounded answer generated",
		"conversation_id", convID,
		"retrieved", len(items),
	)

	return &RagChatResult{
		ConversationID: convID,
		Answer:         answer,
		Retrieved:      len(items),
		Threshold:      threshold,
		Items:          items,
	}, nil
}

// ChatResult is the outcome of one non-grounded chat turn.
type ChatResult struct {
	ConversationID uuid.UUID
	Answer         string
}

// Chat answers without consulting the knowledge base. The conversation
// rules match RagChat; there is no cache and no retrieval.
func (a *Assistant) Chat(ctx context.Context, message string, conversationID uuid.UUID) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	convID, err := a.resolveConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := a.conversations.Append(ctx, convID, conversation.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	answer, err := a.generator.Generate(ctx, chatSystemPrompt+"\n\n"+message, ollama.GenerateOptions{
		Temperature:   a.cfg.Temperature,
		ContextWindow: a.cfg.ContextWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	if err := a.conversations.Append(ctx, convID, conversation.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("persisting assistant turn: %w", err)
	}

	return &ChatResult{ConversationID: convID, Answer: answer}, nil
}

// IngestText chunks, embeds and stores a plain-text document. It returns
// the new document id and the number of chunks stored.
func (a *Assistant) IngestText(ctx context.Context, title, content string, sourceURI, docType *string) (int64, int, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return 0, 0, fmt.Errorf("title: %w", ErrEmptyDocument)
	}
	if content == "" {
		return 0, 0, fmt.Errorf("content: %w", ErrEmptyDocument)
	}

	pieces := rag.Chunk(content, a.cfg.ChunkMaxChars, a.cfg.ChunkOverlap)
	if len(pieces) == 0 {
		return 0, 0, fmt.Errorf("content chunks to nothing: %w", ErrEmptyDocument)
	}

	docID, err := a.knowledge.CreateDocument(ctx, title, sourceURI, docType)
	if err != nil {
		return 0, 0, fmt.Errorf("creating document: %w", err)
	}

	for _, piece := range pieces {
		embedding, err := a.embedder.Embed(ctx, piece.Text)
		if err != nil {
			return 0, 0, fmt.Errorf("embedding chunk %d: %w", piece.Idx, err)
		}
		if err := a.knowledge.InsertChunk(ctx, docID, piece.Idx, piece.Text, embedding); err != nil {
			return 0, 0, fmt.Errorf("storing chunk %d: %w", piece.Idx, err)
		}
	}

	a.logger.Info("document ingested", "document_id", docID, "chunks", len(pieces))
	return docID, len(pieces), nil
}

// RagSearch returns the raw nearest chunks for a query with no confidence
// threshold, no persistence and no generation. Intended for knowledge-base
// calibration and debugging.
func (a *Assistant) RagSearch(ctx context.Context, query string, topK int) ([]rag.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyMessage
	}

	embedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := a.knowledge.Search(ctx, embedding, a.retriever.ClampTopK(topK))
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return hits, nil
}

// CreateConversation starts an empty conversation.
func (a *Assistant) CreateConversation(ctx context.Context) (uuid.UUID, error) {
	return a.conversations.Create(ctx)
}

// ListDocuments returns the ingested documents, newest first.
func (a *Assistant) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	return a.knowledge.ListDocuments(ctx)
}

// DeleteDocument removes a document and, via the schema, its chunks.
func (a *Assistant) DeleteDocument(ctx context.Context, id int64) error {
	return a.knowledge.DeleteDocument(ctx, id)
}

// resolveConversation maps uuid.Nil to a fresh conversation and verifies
// any explicit id before anything is persisted against it.
func (a *Assistant) resolveConversation(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if id == uuid.Nil {
		created, err := a.conversations.Create(ctx)
		if err != nil {
			return uuid.Nil, fmt.Errorf("creating conversation: %w", err)
		}
		return created, nil
	}

	ok, err := a.conversations.Exists(ctx, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving conversation: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("conversation %s: %w", id, conversation.ErrConversationNotFound)
	}
	return id, nil
}

func evidenceFromHits(hits []rag.Hit) []Evidence {
	items := make([]Evidence, len(hits))
	for i, h := range hits {
		items[i] = Evidence{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			Idx:        h.Idx,
			Content:    h.Content,
			Similarity: h.Similarity,
			Title:      h.Title,
			SourceURI:  h.SourceURI,
		}
	}
	return items
}
