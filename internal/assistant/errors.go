package assistant

import "errors"

// Validation sentinels. Handlers map these to client errors.
var (
	// ErrEmptyMessage indicates a blank chat message or search query.
	ErrEmptyMessage = errors.New("assistant: empty message")

	// ErrEmptyDocument indicates an ingestion request whose title or
	// content is blank, or whose content chunks to nothing.
	ErrEmptyDocument = errors.New("assistant: empty document")
)
