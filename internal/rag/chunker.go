package rag

import "strings"

// Default chunking parameters, tuned for FAQ-sized documents.
const (
	DefaultChunkMaxChars = 1000
	DefaultChunkOverlap  = 200
)

// Chunk splits text into overlapping windows of at most maxChars characters
// (runes). After a window ending at position end, the next window starts at
// end − overlap. Each piece is trimmed of surrounding whitespace; pieces that
// become empty after trimming are dropped without consuming an index, so idx
// values stay contiguous from 0. Empty or whitespace-only input yields nil;
// callers at the ingestion boundary must treat that as a validation error.
//
// overlap ≥ maxChars is clamped to maxChars−1 to guarantee forward progress;
// non-positive maxChars falls back to DefaultChunkMaxChars.
func Chunk(text string, maxChars, overlap int) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultChunkMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars - 1
	}

	runes := []rune(text)
	var pieces []Piece

	i, idx := 0, 0
	for i < len(runes) {
		end := min(i+maxChars, len(runes))
		piece := strings.TrimSpace(string(runes[i:end]))
		if piece != "" {
			pieces = append(pieces, Piece{Idx: idx, Text: piece})
			idx++
		}
		if end >= len(runes) {
			break
		}
		// Step back by overlap, but never past the current window start.
		i = end - min(overlap, end-i)
	}

	return pieces
}
