package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplus/asistente/internal/cache"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/ollama"
	"github.com/saludplus/asistente/internal/rag"
)

type mockGenerator struct {
	answer string
	err    error
	calls  int
	prompt string
	opts   ollama.GenerateOptions
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error) {
	m.calls++
	m.prompt = prompt
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

type mockEmbedder struct {
	err   error
	calls int
	texts []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type mockRetriever struct {
	hits      []rag.Hit
	threshold float64
	err       error
	calls     int
	lastTopK  int
	clamped   int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, requestedTopK int) ([]rag.Hit, float64, error) {
	m.calls++
	m.lastTopK = requestedTopK
	if m.err != nil {
		return nil, m.threshold, m.err
	}
	return m.hits, m.threshold, nil
}

func (m *mockRetriever) ClampTopK(requested int) int {
	if m.clamped > 0 {
		return m.clamped
	}
	if requested <= 0 {
		return rag.DefaultTopK
	}
	return min(requested, rag.DefaultMaxTopK)
}

type mockKnowledge struct {
	docID       int64
	createErr   error
	insertErr   error
	searchHits  []rag.Hit
	searchLimit int
	chunks      []struct {
		docID   int64
		idx     int
		content string
	}
}

func (m *mockKnowledge) CreateDocument(ctx context.Context, title string, sourceURI, docType *string) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	return m.docID, nil
}

func (m *mockKnowledge) InsertChunk(ctx context.Context, documentID int64, idx int, content string, embedding []float32) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.chunks = append(m.chunks, struct {
		docID   int64
		idx     int
		content string
	}{documentID, idx, content})
	return nil
}

func (m *mockKnowledge) Search(ctx context.Context, embedding []float32, limit int) ([]rag.Hit, error) {
	m.searchLimit = limit
	return m.searchHits, nil
}

func (m *mockKnowledge) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	return nil, nil
}

func (m *mockKnowledge) DeleteDocument(ctx context.Context, id int64) error {
	return nil
}

type appendedTurn struct {
	id      uuid.UUID
	role    string
	content string
}

type mockConversations struct {
	known     map[uuid.UUID]bool
	created   uuid.UUID
	appendErr error
	appended  []appendedTurn
}

func (m *mockConversations) Create(ctx context.Context) (uuid.UUID, error) {
	if m.created == uuid.Nil {
		m.created = uuid.New()
	}
	if m.known == nil {
		m.known = map[uuid.UUID]bool{}
	}
	m.known[m.created] = true
	return m.created, nil
}

func (m *mockConversations) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

func (m *mockConversations) Append(ctx context.Context, id uuid.UUID, role, content string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, appendedTurn{id, role, content})
	return nil
}

func evidenceHits() []rag.Hit {
	return []rag.Hit{
		{ChunkID: 11, DocumentID: 1, Idx: 0, Content: "El horario de atención es de 8am a 5pm.", Similarity: 0.91, Title: "Horarios"},
		{ChunkID: 12, DocumentID: 1, Idx: 1, Content: "Los sábados atendemos hasta mediodía.", Similarity: 0.84, Title: "Horarios"},
	}
}

func newTestAssistant(gen *mockGenerator, emb *mockEmbedder, ret *mockRetriever, kn *mockKnowledge, conv *mockConversations) *Assistant {
	return New(gen, emb, ret, kn, conv, cache.New(16, cache.DefaultTTL, nil), Config{}, nil)
}

func TestRagChatGroundedAnswer(t *testing.T) {
	gen := &mockGenerator{answer: "  Atendemos de 8am a 5pm.  "}
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	conv := &mockConversations{}
	a := newTestAssistant(gen, &mockEmbedder{}, ret, &mockKnowledge{}, conv)

	res, err := a.RagChat(context.Background(), "¿Cuál es el horario de atención?", uuid.Nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "Atendemos de 8am a 5pm.", res.Answer, "answer should be trimmed")
	assert.Equal(t, conv.created, res.ConversationID)
	assert.Equal(t, 2, res.Retrieved)
	assert.InDelta(t, 0.80, res.Threshold, 1e-9)
	assert.False(t, res.Cached)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(11), res.Items[0].ChunkID)

	require.Len(t, conv.appended, 2)
	assert.Equal(t, conversation.RoleUser, conv.appended[0].role)
	assert.Equal(t, "¿Cuál es el horario de atención?", conv.appended[0].content)
	assert.Equal(t, conversation.RoleAssistant, conv.appended[1].role)
	assert.Equal(t, "Atendemos de 8am a 5pm.", conv.appended[1].content)

	assert.Contains(t, gen.prompt, "CONTEXTO")
	assert.Contains(t, gen.prompt, "¿Cuál es el horario de atención?")
	assert.InDelta(t, 0.2, gen.opts.Temperature, 1e-9)
	assert.Equal(t, 4096, gen.opts.ContextWindow)
}

func TestRagChatNoEvidence(t *testing.T) {
	gen := &mockGenerator{answer: "no debería llamarse"}
	ret := &mockRetriever{threshold: 0.80}
	conv := &mockConversations{}
	c := cache.New(16, cache.DefaultTTL, nil)
	a := New(gen, &mockEmbedder{}, ret, &mockKnowledge{}, conv, c, Config{}, nil)

	res, err := a.RagChat(context.Background(), "¿Cuánto cuesta un tratamiento de conducto?", uuid.Nil, 0)
	require.NoError(t, err)

	assert.Equal(t, rag.NoEvidenceAnswer, res.Answer)
	assert.Equal(t, 0, res.Retrieved)
	assert.InDelta(t, 0.80, res.Threshold, 1e-9)
	assert.Empty(t, res.Items)
	assert.Zero(t, gen.calls, "no-evidence turn must not call the model")

	require.Len(t, conv.appended, 2)
	assert.Equal(t, rag.NoEvidenceAnswer, conv.appended[1].content)

	assert.Zero(t, c.Len(), "refusals must not be cached")
}

func TestRagChatUnknownConversation(t *testing.T) {
	gen := &mockGenerator{}
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	conv := &mockConversations{known: map[uuid.UUID]bool{}}
	a := newTestAssistant(gen, &mockEmbedder{}, ret, &mockKnowledge{}, conv)

	_, err := a.RagChat(context.Background(), "hola", uuid.New(), 0)
	require.ErrorIs(t, err, conversation.ErrConversationNotFound)

	assert.Empty(t, conv.appended, "nothing may be persisted for an unknown conversation")
	assert.Zero(t, ret.calls)
	assert.Zero(t, gen.calls)
}

func TestRagChatCacheIdempotence(t *testing.T) {
	gen := &mockGenerator{answer: "Atendemos de 8am a 5pm."}
	emb := &mockEmbedder{}
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	conv := &mockConversations{}
	a := newTestAssistant(gen, emb, ret, &mockKnowledge{}, conv)

	first, err := a.RagChat(context.Background(), "¿Cuál es el horario?", uuid.Nil, 0)
	require.NoError(t, err)

	second, err := a.RagChat(context.Background(), "  ¿CUÁL ES EL HORARIO?  ", first.ConversationID, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls, "second call must not reach the model")
	assert.Equal(t, 1, ret.calls, "second call must not retrieve")
	assert.True(t, second.Cached)
	assert.False(t, first.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Retrieved, second.Retrieved)
	assert.Equal(t, first.Items, second.Items)

	// Both turns of both calls are in the transcript.
	require.Len(t, conv.appended, 4)
	assert.Equal(t, first.Answer, conv.appended[3].content)
}

func TestRagChatGenerationFailure(t *testing.T) {
	boom := errors.New("model offline")
	gen := &mockGenerator{err: boom}
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	conv := &mockConversations{}
	a := newTestAssistant(gen, &mockEmbedder{}, ret, &mockKnowledge{}, conv)

	_, err := a.RagChat(context.Background(), "¿Cuál es el horario?", uuid.Nil, 0)
	require.ErrorIs(t, err, boom)

	require.Len(t, conv.appended, 1, "user turn persists, assistant turn does not")
	assert.Equal(t, conversation.RoleUser, conv.appended[0].role)
}

func TestRagChatEmptyMessage(t *testing.T) {
	conv := &mockConversations{}
	a := newTestAssistant(&mockGenerator{}, &mockEmbedder{}, &mockRetriever{}, &mockKnowledge{}, conv)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := a.RagChat(context.Background(), msg, uuid.Nil, 0)
		require.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, conv.appended)
}

func TestRagChatExistingConversation(t *testing.T) {
	id := uuid.New()
	gen := &mockGenerator{answer: "respuesta"}
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	conv := &mockConversations{known: map[uuid.UUID]bool{id: true}}
	a := newTestAssistant(gen, &mockEmbedder{}, ret, &mockKnowledge{}, conv)

	res, err := a.RagChat(context.Background(), "hola", id, 0)
	require.NoError(t, err)
	assert.Equal(t, id, res.ConversationID)
	assert.Equal(t, uuid.Nil, conv.created, "no new conversation should be created")
}

func TestChat(t *testing.T) {
	gen := &mockGenerator{answer: "Hola, ¿en qué puedo ayudarte?"}
	conv := &mockConversations{}
	a := newTestAssistant(gen, &mockEmbedder{}, &mockRetriever{}, &mockKnowledge{}, conv)

	res, err := a.Chat(context.Background(), "hola", uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, "Hola, ¿en qué puedo ayudarte?", res.Answer)
	assert.Equal(t, conv.created, res.ConversationID)
	require.Len(t, conv.appended, 2)
	assert.NotContains(t, gen.prompt, "CONTEXTO", "plain chat must not carry evidence blocks")
}

func TestIngestText(t *testing.T) {
	emb := &mockEmbedder{}
	kn := &mockKnowledge{docID: 7}
	a := newTestAssistant(&mockGenerator{}, emb, &mockRetriever{}, kn, &mockConversations{})

	content := strings.Repeat("La clínica atiende de lunes a viernes. ", 60)
	docID, chunks, err := a.IngestText(context.Background(), "Horarios", content, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(7), docID)
	assert.Greater(t, chunks, 1, "long content should produce several chunks")
	assert.Equal(t, chunks, emb.calls, "one embedding per chunk")
	require.Len(t, kn.chunks, chunks)
	for i, c := range kn.chunks {
		assert.Equal(t, i, c.idx, "chunk indexes must be contiguous from zero")
		assert.Equal(t, int64(7), c.docID)
	}
}

func TestIngestTextValidation(t *testing.T) {
	kn := &mockKnowledge{docID: 7}
	a := newTestAssistant(&mockGenerator{}, &mockEmbedder{}, &mockRetriever{}, kn, &mockConversations{})

	tests := []struct {
		name    string
		title   string
		content string
	}{
		{"empty title", "", "contenido"},
		{"blank title", "   ", "contenido"},
		{"empty content", "Horarios", ""},
		{"blank content", "Horarios", " \n\t "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := a.IngestText(context.Background(), tt.title, tt.content, nil, nil)
			require.ErrorIs(t, err, ErrEmptyDocument)
		})
	}
	assert.Empty(t, kn.chunks, "validation failures must not store anything")
}

func TestIngestTextEmbeddingFailure(t *testing.T) {
	boom := errors.New("embedding service down")
	emb := &mockEmbedder{err: boom}
	kn := &mockKnowledge{docID: 7}
	a := newTestAssistant(&mockGenerator{}, emb, &mockRetriever{}, kn, &mockConversations{})

	_, _, err := a.IngestText(context.Background(), "Horarios", "La clínica atiende de lunes a viernes.", nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, kn.chunks)
}

func TestRagSearch(t *testing.T) {
	kn := &mockKnowledge{searchHits: []rag.Hit{
		{ChunkID: 1, Similarity: 0.95},
		{ChunkID: 2, Similarity: 0.30},
	}}
	a := newTestAssistant(&mockGenerator{}, &mockEmbedder{}, &mockRetriever{}, kn, &mockConversations{})

	hits, err := a.RagSearch(context.Background(), "horario", 50)
	require.NoError(t, err)

	require.Len(t, hits, 2, "search applies no similarity threshold")
	assert.Equal(t, rag.DefaultMaxTopK, kn.searchLimit, "oversized topK is clamped")

	_, err = a.RagSearch(context.Background(), "  ", 5)
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRagChatForwardsTopK(t *testing.T) {
	ret := &mockRetriever{hits: evidenceHits(), threshold: 0.80}
	a := newTestAssistant(&mockGenerator{answer: "ok"}, &mockEmbedder{}, ret, &mockKnowledge{}, &mockConversations{})

	_, err := a.RagChat(context.Background(), "hola", uuid.Nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ret.lastTopK)
}
