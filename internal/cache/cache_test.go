package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKeyNormalization(t *testing.T) {
	base := Key("¿Cuál es el horario de atención?")

	variants := []string{
		"¿CUÁL ES EL HORARIO DE ATENCIÓN?",
		"  ¿Cuál es el horario de atención?  ",
		"\t¿cuál es el horario de atención?\n",
	}
	for _, v := range variants {
		if got := Key(v); got != base {
			t.Errorf("Key(%q) = %s, want %s", v, got, base)
		}
	}

	if other := Key("¿Cuál es el horario de urgencias?"); other == base {
		t.Error("distinct questions must not share a key")
	}
}

func TestKeyPrefix(t *testing.T) {
	if k := Key("hola"); !strings.HasPrefix(k, "rag:") {
		t.Errorf("key %q missing rag: prefix", k)
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(8, time.Minute, nil)

	k := Key("¿Dónde queda la sede norte?")
	if _, ok := c.Get(k); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set(k, "En la calle 100.")
	got, ok := c.Get(k)
	if !ok || got != "En la calle 100." {
		t.Fatalf("Get = (%q, %v), want cached answer", got, ok)
	}
}

func TestSetReplaces(t *testing.T) {
	c := New(8, time.Minute, nil)
	k := Key("pregunta")

	c.Set(k, "primera")
	c.Set(k, "segunda")

	if got, _ := c.Get(k); got != "segunda" {
		t.Fatalf("Get = %q, want %q", got, "segunda")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(8, 20*time.Millisecond, nil)
	k := Key("efímera")

	c.Set(k, "respuesta")
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get(k); ok {
		t.Fatal("entry should have expired")
	}
}

func TestSizeBound(t *testing.T) {
	c := New(2, time.Minute, nil)

	c.Set("rag:a", "1")
	c.Set("rag:b", "2")
	c.Set("rag:c", "3")

	if c.Len() > 2 {
		t.Fatalf("Len = %d, want at most 2", c.Len())
	}
	if _, ok := c.Get("rag:a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
}

func TestZeroConfigFallsBackToDefaults(t *testing.T) {
	c := New(0, 0, nil)
	k := Key("defaults")

	c.Set(k, "ok")
	if got, ok := c.Get(k); !ok || got != "ok" {
		t.Fatalf("Get = (%q, %v), want cached answer", got, ok)
	}
}
