// Package ollama implements llm.Generator against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/crmchat/pkg/llm"
)

const (
	DefaultModel   = "llama3.2"
	DefaultBaseURL = "http://localhost:11434"
)

type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Generator calls POST /api/chat with streaming disabled.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(cfg Config) *Generator {
	g := &Generator{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.httpClient == nil {
		g.httpClient = http.DefaultClient
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody := ollamaRequest{
		Model:    g.model,
		Messages: make([]ollamaMessage, len(messages)),
	}
	for i, m := range messages {
		reqBody.Messages[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", llm.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", llm.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama request: %w", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &llm.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", llm.ErrGeneration, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", llm.ErrGeneration, result.Error)
	}

	return result.Message.Content, nil
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Close() error { return nil }

var _ llm.Generator = (*Generator)(nil)
