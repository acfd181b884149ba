package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// FakeOllama is an httptest-backed stand-in for an Ollama server. It
// answers /api/embeddings with the deterministic Vector of the prompt and
// /api/generate with GenerateFunc (or a canned answer).
type FakeOllama struct {
	Server *httptest.Server

	// GenerateFunc computes the completion for a prompt. When nil the
	// fixed Answer is returned.
	GenerateFunc func(prompt string) string
	Answer       string

	embedCalls    atomic.Int64
	generateCalls atomic.Int64
}

// NewFakeOllama starts the fake server. Callers own the shutdown via
// Close.
func NewFakeOllama() *FakeOllama {
	f := &FakeOllama{Answer: "respuesta de prueba"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("POST /api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.embedCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": Vector(req.Prompt)})
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.generateCalls.Add(1)
		answer := f.Answer
		if f.GenerateFunc != nil {
			answer = f.GenerateFunc(req.Prompt)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"response": answer, "done": true})
	})

	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the fake server's base URL.
func (f *FakeOllama) URL() string { return f.Server.URL }

// Close shuts the server down.
func (f *FakeOllama) Close() { f.Server.Close() }

// EmbedCalls returns how many embedding requests were served.
func (f *FakeOllama) EmbedCalls() int64 { return f.embedCalls.Load() }

// GenerateCalls returns how many generation requests were served.
func (f *FakeOllama) GenerateCalls() int64 { return f.generateCalls.Load() }
