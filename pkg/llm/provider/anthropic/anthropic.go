// Package anthropic implements llm.Generator against the Anthropic
// messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/crmchat/pkg/llm"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

var ErrMissingAPIKey = errors.New("anthropic: API key is required")

// Config holds configuration for the Anthropic generator.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// Generator calls POST /v1/messages. System messages are lifted into the
// top-level system field.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	g := &Generator{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.httpClient == nil {
		g.httpClient = http.DefaultClient
	}
	return g, nil
}

func (g *Generator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	system, rest := llm.SplitSystem(messages)

	reqBody := anthropicRequest{
		Model:     g.model,
		System:    system,
		MaxTokens: g.maxTokens,
		Messages:  make([]anthropicMessage, len(rest)),
	}
	for i, m := range rest {
		reqBody.Messages[i] = anthropicMessage{Role: m.Role, Content: m.Content}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", llm.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", llm.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic request: %w", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &llm.StatusError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", llm.ErrGeneration, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: anthropic error: %s", llm.ErrGeneration, result.Error.Message)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text content", llm.ErrGeneration)
	}
	return sb.String(), nil
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Close() error { return nil }

var _ llm.Generator = (*Generator)(nil)
