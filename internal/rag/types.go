package rag

// Piece is one chunk produced by Chunk: its 0-based position within the
// document and the trimmed text.
type Piece struct {
	Idx  int
	Text string
}

// Hit is a single retrieval result. Distance is the cosine distance reported
// by the vector store (lower = more similar); Similarity is 1 − Distance.
// Title and SourceURI come from the owning document so prompt assembly and
// API responses need no second lookup.
type Hit struct {
	ChunkID    int64
	DocumentID int64
	Idx        int
	Content    string
	Distance   float64
	Similarity float64
	Title      string
	SourceURI  string
}
