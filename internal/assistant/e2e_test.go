package assistant_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplus/asistente/internal/assistant"
	"github.com/saludplus/asistente/internal/cache"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/ollama"
	"github.com/saludplus/asistente/internal/rag"
	"github.com/saludplus/asistente/internal/testutil"
)

// TestPipelineEndToEnd runs the full pipeline against a real database and a
// fake Ollama server: ingestion, grounded answering, the no-evidence
// refusal, response caching and the unknown-conversation contract.
func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	fake := testutil.NewFakeOllama()
	defer fake.Close()
	fake.Answer = "La clínica atiende de lunes a viernes de 8am a 5pm."

	logger := testutil.DiscardLogger()
	client := ollama.NewClient(ollama.Config{
		BaseURL:         fake.URL(),
		EmbeddingModel:  "nomic-embed-text",
		GenerationModel: "mistral:7b-instruct",
	})

	knowledgeStore := knowledge.NewStore(tdb.Pool, logger)
	conversationStore := conversation.NewStore(tdb.Pool, logger)
	retriever := rag.NewRetriever(client, knowledgeStore, rag.RetrieverConfig{}, logger)

	a := assistant.New(
		client,
		client,
		retriever,
		knowledgeStore,
		conversationStore,
		cache.New(cache.DefaultSize, cache.DefaultTTL, logger),
		assistant.Config{},
		logger,
	)

	ctx := context.Background()

	// The fake embedder is deterministic per text, so the query must match
	// the ingested content to clear the similarity threshold.
	const question = "La clínica atiende de lunes a viernes de 8am a 5pm."

	docID, chunks, err := a.IngestText(ctx, "Horarios", question, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, chunks)
	require.Positive(t, docID)

	var convID uuid.UUID

	t.Run("grounded answer", func(t *testing.T) {
		res, err := a.RagChat(ctx, question, uuid.Nil, 0)
		require.NoError(t, err)

		assert.Equal(t, fake.Answer, res.Answer)
		assert.Equal(t, 1, res.Retrieved)
		require.Len(t, res.Items, 1)
		assert.GreaterOrEqual(t, res.Items[0].Similarity, 0.80)
		assert.EqualValues(t, 1, fake.GenerateCalls())
		convID = res.ConversationID

		msgs, err := conversationStore.Messages(ctx, convID, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, conversation.RoleUser, msgs[0].Role)
		assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	})

	t.Run("cached on repeat", func(t *testing.T) {
		embedsBefore := fake.EmbedCalls()

		res, err := a.RagChat(ctx, question, convID, 0)
		require.NoError(t, err)

		assert.True(t, res.Cached)
		assert.Equal(t, fake.Answer, res.Answer)
		assert.EqualValues(t, 1, fake.GenerateCalls(), "cached turn must not reach the model")
		assert.Equal(t, embedsBefore, fake.EmbedCalls(), "cached turn must not embed the question")
	})

	t.Run("no evidence refuses without generating", func(t *testing.T) {
		before := fake.GenerateCalls()

		res, err := a.RagChat(ctx, "¿Cuánto cuesta un tratamiento de conducto?", uuid.Nil, 0)
		require.NoError(t, err)

		assert.Equal(t, rag.NoEvidenceAnswer, res.Answer)
		assert.Zero(t, res.Retrieved)
		assert.Equal(t, before, fake.GenerateCalls())
	})

	t.Run("unknown conversation persists nothing", func(t *testing.T) {
		ghost := uuid.New()
		_, err := a.RagChat(ctx, question, ghost, 0)
		require.ErrorIs(t, err, conversation.ErrConversationNotFound)

		msgs, err := conversationStore.Messages(ctx, ghost, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("rag search returns sub-threshold hits", func(t *testing.T) {
		hits, err := a.RagSearch(ctx, "algo completamente distinto", 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Less(t, hits[0].Similarity, 0.80)
	})
}
