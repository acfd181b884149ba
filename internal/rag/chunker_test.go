package rag

import (
	"strings"
	"testing"
)

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk("", 100, 10); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := Chunk("   \n\t  ", 100, 10); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestChunkShortInput(t *testing.T) {
	pieces := Chunk("hola mundo", 100, 10)

	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
	if pieces[0].Idx != 0 || pieces[0].Text != "hola mundo" {
		t.Errorf("piece = %+v", pieces[0])
	}
}

func TestChunkWindowsAndOverlap(t *testing.T) {
	// 26 letters, maxChars 10, overlap 3: windows start at 0, 7, 14, 21.
	text := "abcdefghijklmnopqrstuvwxyz"
	pieces := Chunk(text, 10, 3)

	want := []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"}
	if len(pieces) != len(want) {
		t.Fatalf("expected %d pieces, got %d: %v", len(want), len(pieces), pieces)
	}
	for i, p := range pieces {
		if p.Idx != i {
			t.Errorf("piece %d has idx %d", i, p.Idx)
		}
		if p.Text != want[i] {
			t.Errorf("piece %d = %q, want %q", i, p.Text, want[i])
		}
	}

	// Consecutive pieces share exactly the overlap.
	for i := 1; i < len(pieces); i++ {
		prev, cur := pieces[i-1].Text, pieces[i].Text
		if !strings.HasPrefix(cur, prev[len(prev)-3:]) {
			t.Errorf("pieces %d/%d do not overlap by 3: %q %q", i-1, i, prev, cur)
		}
	}
}

func TestChunkReconstructsInput(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	overlap := 4
	pieces := Chunk(text, 12, overlap)

	var b strings.Builder
	for i, p := range pieces {
		if i == 0 {
			b.WriteString(p.Text)
			continue
		}
		b.WriteString(p.Text[overlap:])
	}
	if b.String() != text {
		t.Errorf("reconstruction = %q, want %q", b.String(), text)
	}
}

func TestChunkMaxLength(t *testing.T) {
	text := strings.Repeat("palabra ", 500)
	for _, p := range Chunk(text, 100, 20) {
		if n := len([]rune(p.Text)); n > 100 {
			t.Errorf("piece %d has %d chars, max 100", p.Idx, n)
		}
	}
}

func TestChunkIdempotent(t *testing.T) {
	text := strings.Repeat("el horario de atención es de 9 a 18. ", 40)

	a := Chunk(text, 100, 25)
	b := Chunk(text, 100, 25)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("piece %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChunkOverlapClamped(t *testing.T) {
	// overlap ≥ maxChars must still make forward progress.
	text := strings.Repeat("x", 50)
	pieces := Chunk(text, 10, 10)

	if len(pieces) == 0 {
		t.Fatal("expected pieces")
	}
	// With overlap clamped to 9 the walk advances 1 rune per window.
	for i, p := range pieces {
		if p.Idx != i {
			t.Errorf("idx not contiguous at %d", i)
		}
	}
}

func TestChunkDropsWhitespaceWindows(t *testing.T) {
	// A window landing entirely on whitespace is dropped without consuming
	// an index.
	text := "aaaa" + strings.Repeat(" ", 30) + "bbbb"
	pieces := Chunk(text, 10, 0)

	for i, p := range pieces {
		if p.Idx != i {
			t.Fatalf("idx %d at position %d: indexes must stay contiguous", p.Idx, i)
		}
		if strings.TrimSpace(p.Text) == "" {
			t.Fatalf("empty piece survived at %d", i)
		}
	}
}

func TestChunkMultibyte(t *testing.T) {
	// Window boundaries count runes, not bytes.
	text := strings.Repeat("ñ", 25)
	pieces := Chunk(text, 10, 2)

	for _, p := range pieces {
		if n := len([]rune(p.Text)); n > 10 {
			t.Errorf("piece %d has %d runes", p.Idx, n)
		}
		if strings.ContainsRune(p.Text, '�') {
			t.Errorf("piece %d contains replacement rune: %q", p.Idx, p.Text)
		}
	}
}
