// Package chat talks to the language-model service (Ollama's OpenAI-compatible
// API) and maintains per-session conversation history.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"luna/backend/internal/sessions"
)

const temperature = 0.7

// Client wraps the chat-completion collaborator. Conversation history lives
// in the session store so it is dropped together with the session.
type Client struct {
	api          *openai.Client
	model        string
	systemPrompt string
	store        *sessions.Store

	host   string
	httpc  *http.Client
}

func NewClient(host, model, systemPrompt string, timeout time.Duration, store *sessions.Store) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	host = strings.TrimRight(host, "/")

	cfg := openai.DefaultConfig("ollama") // Ollama ignores the key but the client requires one
	cfg.BaseURL = host + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: systemPrompt,
		store:        store,
		host:         host,
		httpc:        &http.Client{Timeout: 5 * time.Second},
	}
}

// Completion runs one conversational turn for the session: seed the system
// prompt on first use, append the user message, call the model, record the
// reply.
func (c *Client) Completion(ctx context.Context, sessionID, text string) (string, error) {
	history := c.store.History(sessionID)
	if len(history) == 0 && c.systemPrompt != "" {
		seed := sessions.Message{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt}
		c.store.AppendHistory(sessionID, seed)
		history = append(history, seed)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat: completion request failed (is Ollama running?): %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat: empty completion response")
	}
	reply := resp.Choices[0].Message.Content

	c.store.AppendHistory(sessionID,
		sessions.Message{Role: openai.ChatMessageRoleUser, Content: text},
		sessions.Message{Role: openai.ChatMessageRoleAssistant, Content: reply},
	)
	c.store.IncrementTurns(sessionID)

	return reply, nil
}

// Healthy probes Ollama's tag listing, the same lightweight check the
// dashboard uses.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Model reports the configured model name for health output.
func (c *Client) Model() string { return c.model }
