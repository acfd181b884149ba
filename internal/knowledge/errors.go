package knowledge

import "errors"

// ErrDocumentNotFound indicates the requested document does not exist.
// Check with errors.Is.
var ErrDocumentNotFound = errors.New("document not found")
