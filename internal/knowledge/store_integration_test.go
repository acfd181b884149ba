package knowledge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := knowledge.NewStore(tdb.Pool, testutil.DiscardLogger())

	src := "https://saludplus.example/horarios"
	docID, err := store.CreateDocument(ctx, "Horarios", &src, nil)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if docID <= 0 {
		t.Fatalf("CreateDocument returned id %d", docID)
	}

	chunks := []string{
		"La clínica atiende de lunes a viernes de 8am a 5pm.",
		"Los sábados atendemos hasta mediodía.",
	}
	for i, content := range chunks {
		if err := store.InsertChunk(ctx, docID, i, content, testutil.Vector(content)); err != nil {
			t.Fatalf("InsertChunk %d: %v", i, err)
		}
	}

	t.Run("insert then search finds the exact chunk", func(t *testing.T) {
		hits, err := store.Search(ctx, testutil.Vector(chunks[0]), 5)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("Search returned %d hits, want 2", len(hits))
		}
		top := hits[0]
		if top.Content != chunks[0] {
			t.Errorf("top hit content = %q, want %q", top.Content, chunks[0])
		}
		if top.Similarity < 0.999 {
			t.Errorf("top hit similarity = %f, want ~1.0", top.Similarity)
		}
		if top.Title != "Horarios" {
			t.Errorf("top hit title = %q, want Horarios", top.Title)
		}
		if top.SourceURI != src {
			t.Errorf("top hit source = %q, want %q", top.SourceURI, src)
		}
		if hits[1].Similarity >= top.Similarity {
			t.Error("hits are not ordered by descending similarity")
		}
	})

	t.Run("count chunks", func(t *testing.T) {
		n, err := store.CountChunks(ctx, docID)
		if err != nil {
			t.Fatalf("CountChunks: %v", err)
		}
		if n != len(chunks) {
			t.Errorf("CountChunks = %d, want %d", n, len(chunks))
		}
	})

	t.Run("list documents", func(t *testing.T) {
		docs, err := store.ListDocuments(ctx)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("ListDocuments returned %d documents, want 1", len(docs))
		}
		if docs[0].Title != "Horarios" {
			t.Errorf("document title = %q", docs[0].Title)
		}
	})

	t.Run("delete cascades to chunks", func(t *testing.T) {
		if err := store.DeleteDocument(ctx, docID); err != nil {
			t.Fatalf("DeleteDocument: %v", err)
		}

		hits, err := store.Search(ctx, testutil.Vector(chunks[0]), 5)
		if err != nil {
			t.Fatalf("Search after delete: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search after delete returned %d hits, want 0", len(hits))
		}
	})

	t.Run("delete unknown document", func(t *testing.T) {
		err := store.DeleteDocument(ctx, 999999)
		if !errors.Is(err, knowledge.ErrDocumentNotFound) {
			t.Errorf("DeleteDocument = %v, want ErrDocumentNotFound", err)
		}
	})

	t.Run("search empty store", func(t *testing.T) {
		hits, err := store.Search(ctx, testutil.Vector("cualquier cosa"), 5)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("empty store returned %d hits", len(hits))
		}
	})
}
