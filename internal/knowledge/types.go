package knowledge

import "time"

// Document is a knowledge-base document summary. Chunk content lives in the
// chunks table and is only surfaced through search hits.
type Document struct {
	ID        int64
	Title     string
	SourceURI *string // nil when the document was ingested without a source
	Type      *string // optional classification tag, e.g. "faq"
	UpdatedAt time.Time
}
