package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsassist/internal/config"
	"newsassist/internal/domain"
)

func newTestClient(endpoint string) *Client {
	return NewClient(config.ChatConfig{
		Endpoint:     endpoint,
		Model:        "test-model",
		APIKey:       "test-key",
		SystemPrompt: "Answer briefly.",
	})
}

func TestComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Complete must not request streaming")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("system prompt must be prepended, got %+v", req.Messages)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"the reply"}}]}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	got, err := c.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "the reply" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestStreamDeliversFragmentsInOrder(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"lo "}}]}`,
			``,
			`data: {"choices":[{"delta":{}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"world"}}]}`,
			``,
			`data: [DONE]`,
		}
		for _, line := range chunks {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	var got []string
	err := c.Stream(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		func(fragment string) error {
			got = append(got, fragment)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if strings.Join(got, "") != "Hello world" {
		t.Fatalf("unexpected fragments: %v", got)
	}
	if len(got) != 3 {
		t.Fatalf("empty deltas must not invoke the callback, got %d calls", len(got))
	}
}

func TestStreamCallbackErrorAborts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"x"}}]}` + "\n\n"))
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	calls := 0
	err := c.Stream(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		func(string) error {
			calls++
			return context.Canceled
		})
	if err == nil {
		t.Fatal("expected callback error to propagate")
	}
	if calls != 1 {
		t.Fatalf("stream must abort after first callback error, got %d calls", calls)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	if _, err := c.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestMisconfiguredClient(t *testing.T) {
	t.Parallel()

	c := NewClient(config.ChatConfig{})
	if _, err := c.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
