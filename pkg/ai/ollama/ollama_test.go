package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": embeddings})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Options map[string]any `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Messages[0].Role != "system" || req.Options["num_predict"] != float64(1000) {
			http.Error(w, `{"error":"unexpected request"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3.2",
			"message": map[string]string{"role": "assistant", "content": "Balanced answer."},
			"done":    true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_EmbedBatch(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client, err := New(&Config{Host: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 2 {
		t.Errorf("EmbedBatch() = %v", vectors)
	}

	single, err := client.Embed(context.Background(), "a")
	if err != nil || len(single) != 2 {
		t.Errorf("Embed() = %v, %v", single, err)
	}
}

func TestClient_Generate(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client, err := New(&Config{Host: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	temp, maxTokens := 0.7, 1000
	answer, err := client.Generate(context.Background(), []retrieval.Message{
		{Role: retrieval.RoleSystem, Content: "policy"},
		{Role: retrieval.RoleUser, Content: "How is the battery?"},
	}, ai.Params{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Balanced answer." {
		t.Errorf("Generate() = %q", answer)
	}
}

func TestClient_GenerateError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client, err := New(&Config{Host: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Generate(context.Background(), []retrieval.Message{{Role: retrieval.RoleUser, Content: "no system"}}, ai.Params{})
	if !errors.Is(err, ai.ErrGeneration) {
		t.Errorf("Generate() error = %v, want ErrGeneration", err)
	}
}

func TestNew_InvalidHost(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{Host: "://bad"}); err == nil {
		t.Error("New() with invalid host should fail")
	}
}
