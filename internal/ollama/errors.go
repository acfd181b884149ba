package ollama

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the model server answered with a success
// status but the body could not be parsed into the expected shape (missing
// embedding field, undecodable JSON). Check with errors.Is.
var ErrMalformedResponse = errors.New("ollama: malformed response")

// StatusError reports a non-success HTTP status from the model server.
// Op distinguishes the embeddings endpoint from the generate endpoint so
// callers can surface embedding and generation failures separately.
type StatusError struct {
	Op         string // "embeddings" or "generate"
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama: %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}
