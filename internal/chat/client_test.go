package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"luna/backend/internal/sessions"
)

// fakeOllama serves the two endpoints the client touches: the OpenAI-style
// completion route and the native tag listing.
func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode completion request: %v", err)
		}
		if len(req.Messages) == 0 {
			t.Error("expected at least one message")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				},
			},
		})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	})
	return httptest.NewServer(mux)
}

func TestCompletionSeedsSystemPromptAndRecordsHistory(t *testing.T) {
	srv := fakeOllama(t, "hello there")
	defer srv.Close()

	st := sessions.NewStore()
	sess := st.Create()
	c := NewClient(srv.URL, "llama3.2", "be brief", 5*time.Second, st)

	reply, err := c.Completion(context.Background(), sess.ID, "hi")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("expected reply, got %q", reply)
	}

	h := st.History(sess.ID)
	if len(h) != 3 {
		t.Fatalf("expected system+user+assistant history, got %d entries", len(h))
	}
	if h[0].Role != "system" || h[0].Content != "be brief" {
		t.Fatalf("expected system prompt first, got %+v", h[0])
	}
	if h[1].Role != "user" || h[1].Content != "hi" {
		t.Fatalf("expected user turn, got %+v", h[1])
	}
	if h[2].Role != "assistant" || h[2].Content != "hello there" {
		t.Fatalf("expected assistant turn, got %+v", h[2])
	}

	if got := st.Get(sess.ID).Turns; got != 1 {
		t.Fatalf("expected 1 turn, got %d", got)
	}
}

func TestCompletionKeepsContextAcrossTurns(t *testing.T) {
	srv := fakeOllama(t, "ok")
	defer srv.Close()

	st := sessions.NewStore()
	sess := st.Create()
	c := NewClient(srv.URL, "llama3.2", "prompt", 5*time.Second, st)

	for i := 0; i < 3; i++ {
		if _, err := c.Completion(context.Background(), sess.ID, "again"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	// system + 3 * (user, assistant)
	if got := len(st.History(sess.ID)); got != 7 {
		t.Fatalf("expected 7 history entries, got %d", got)
	}
}

func TestCompletionErrorWhenUnreachable(t *testing.T) {
	st := sessions.NewStore()
	sess := st.Create()
	c := NewClient("http://127.0.0.1:1", "llama3.2", "", time.Second, st)

	if _, err := c.Completion(context.Background(), sess.ID, "hi"); err == nil {
		t.Fatal("expected error when Ollama is unreachable")
	}
	// Failed turns must not pollute history with an assistant entry.
	for _, m := range st.History(sess.ID) {
		if m.Role == "assistant" {
			t.Fatal("no assistant turn should be recorded on failure")
		}
	}
}

func TestHealthy(t *testing.T) {
	srv := fakeOllama(t, "x")
	defer srv.Close()

	st := sessions.NewStore()
	c := NewClient(srv.URL, "llama3.2", "", time.Second, st)
	if !c.Healthy(context.Background()) {
		t.Fatal("expected healthy against fake server")
	}

	bad := NewClient("http://127.0.0.1:1", "llama3.2", "", time.Second, st)
	if bad.Healthy(context.Background()) {
		t.Fatal("expected unhealthy when unreachable")
	}
}
