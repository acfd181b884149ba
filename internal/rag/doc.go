// Package rag implements the retrieval-and-grounding pipeline: text
// chunking, similarity-gated retrieval over the knowledge store, and
// deterministic grounded-prompt assembly.
//
// The package holds no storage or transport concerns. The Retriever depends
// on small consumer-defined interfaces (Embedder, Searcher) so the vector
// store and the embedding client stay swappable in tests.
package rag
