package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"newsassist/internal/config"
	"newsassist/internal/domain"
	"newsassist/internal/ports"
)

// Client implements ports.ChatClient backed by OpenAI-compatible APIs.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ChatClient = (*Client)(nil)

// NewClient builds a client from configuration. The HTTP client carries no
// global timeout: streamed completions are long-lived and are bounded by
// the request context instead.
func NewClient(cfg config.ChatConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete posts the conversation and returns the whole assistant reply.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	resp, err := c.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}

// Stream posts the conversation with streaming enabled and delivers each
// delta fragment, in order, to onFragment. A callback error aborts the
// stream and is returned to the caller.
func (c *Client) Stream(ctx context.Context, messages []domain.ChatMessage, onFragment func(string) error) error {
	resp, err := c.send(ctx, messages, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}

		for _, choice := range event.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onFragment(choice.Delta.Content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, messages []domain.ChatMessage, stream bool) (*http.Response, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chat client misconfigured")
	}

	wire := make([]wireMessage, 0, len(messages)+1)
	if prompt := strings.TrimSpace(c.systemPrompt); prompt != "" {
		wire = append(wire, wireMessage{Role: domain.RoleSystem, Content: prompt})
	}
	for _, msg := range messages {
		wire = append(wire, wireMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": wire,
		"stream":   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send chat request: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("chat api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return resp, nil
}
