package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Answers can take a while when the chat model is slow.
const clientTimeout = 5 * time.Minute

type chatbotRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatbotResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// asker is what the chat loop and TUI need from the server.
type asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// client talks to a running crmchat API server. Every question carries the
// same conversation id so the server can keep per-conversation memory.
type client struct {
	target         string
	conversationID string
	http           *http.Client
}

func newClient(target, conversationID string) *client {
	return &client{
		target:         strings.TrimRight(target, "/"),
		conversationID: conversationID,
		http:           &http.Client{Timeout: clientTimeout},
	}
}

func (c *client) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(chatbotRequest{
		Question:       question,
		ConversationID: c.conversationID,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/chatbot", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request to %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out chatbotResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Answer == "" {
		return "", errors.New("server returned an empty answer")
	}
	return out.Answer, nil
}
