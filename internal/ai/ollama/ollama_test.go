package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/ai"
)

func TestGeneratorComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: " good fit \n"},
			Done:    true,
		})
	}))
	defer srv.Close()

	temperature := 0.7
	g := NewGenerator(Config{BaseURL: srv.URL + "/", Model: "llama3"}, nil)
	text, err := g.Complete(context.Background(), ai.Completion{
		System:      "sys",
		Prompt:      "why",
		MaxTokens:   200,
		Temperature: &temperature,
	})
	require.NoError(t, err)
	require.Equal(t, "good fit", text)

	require.Equal(t, "llama3", got.Model)
	require.False(t, got.Stream)
	require.Equal(t, []chatMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "why"}}, got.Messages)
	require.NotNil(t, got.Options)
	require.Equal(t, 200, got.Options.NumPredict)
	require.NotNil(t, got.Options.Temperature)
	require.InDelta(t, 0.7, *got.Options.Temperature, 1e-9)
}

func TestGeneratorSendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "ok"}, Done: true})
	}))
	defer srv.Close()

	zero := 0.0
	g := NewGenerator(Config{BaseURL: srv.URL}, nil)
	_, err := g.Complete(context.Background(), ai.Completion{Prompt: "why", Temperature: &zero})
	require.NoError(t, err)

	opts, ok := raw["options"].(map[string]any)
	require.True(t, ok, "options must be sent")
	require.Contains(t, opts, "temperature")
	require.Zero(t, opts["temperature"])
}

func TestGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL}, nil)
	_, err := g.Complete(context.Background(), ai.Completion{Prompt: "why"})
	require.ErrorContains(t, err, "status 404")
	require.ErrorContains(t, err, "model not found")
}

func TestEmbedderEmbed(t *testing.T) {
	var got embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 0}, {0, 1}}})
	}))
	defer srv.Close()

	e := NewEmbedder(Config{BaseURL: srv.URL}, nil)
	require.Equal(t, DefaultEmbeddingModel, e.Model())

	vectors, err := e.Embed(context.Background(), []string{"python", "designer"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	require.Equal(t, []string{"python", "designer"}, got.Input)
}

func TestEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	e := NewEmbedder(Config{BaseURL: srv.URL}, nil)
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}
