// Package openai implements llm.Generator against the OpenAI chat
// completions API (or any compatible server).
package openai

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
	// DefaultModel is the chat model answers are generated with.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com"
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("openai: API key is required")

// Config holds configuration for the OpenAI generator.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	// Temperature is omitted from the request when nil.
	Temperature *float64
}

// Generator calls POST /v1/chat/completions.
type Generator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	httpClient  *http.Client
}

// New creates an OpenAI generator.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	g := &Generator{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  cfg.HTTPClient,
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
	return g, nil
}

func (g *Generator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody := openaiRequest{
		Model:       g.model,
		Messages:    make([]openaiMessage, len(messages)),
		Temperature: g.temperature,
	}
	for i, m := range messages {
		reqBody.Messages[i] = openaiMessage{Role: m.Role, Content: m.Content}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", llm.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", llm.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: openai request: %w", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &llm.StatusError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", llm.ErrGeneration, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: openai error: %s", llm.ErrGeneration, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", llm.ErrGeneration)
	}

	return result.Choices[0].Message.Content, nil
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Close() error { return nil }

var _ llm.Generator = (*Generator)(nil)
