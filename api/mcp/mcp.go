// Package mcp provides an MCP (Model Context Protocol) server that lets agents
// ask the knowledge base questions.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/utils"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question about the insurance products in the private knowledge base. Returns the answer and the documents it was grounded on."
)

// Asker answers questions. *engine.Engine satisfies it.
type Asker interface {
	Ask(ctx context.Context, req engine.Request) (*engine.Answer, error)
}

type Config struct {
	// Asker answers tool calls
	Asker Asker

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the knowledge base"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"optional id grouping follow-up questions"`
}

// Source is a document the answer was grounded on.
type Source struct {
	DocumentID string  `json:"document_id"`
	Score      float32 `json:"score"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// NewServer creates a new MCP server with the ask tool.
func NewServer(c Config) (*Server, error) {
	if c.Asker == nil {
		return nil, errors.New("asker is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "crmchat",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	s.mcpServer = mcpServer

	// stateless: every request gets the same server and no session tracking
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer exposes the underlying server, mostly for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP ask request", "conversation_id", input.ConversationID)

	answer, err := s.config.Asker.Ask(ctx, engine.Request{
		Question:       input.Question,
		ConversationID: input.ConversationID,
	})
	if err != nil {
		logger.Error("failed to answer question", "error", err)
		return toolError(fmt.Sprintf("Failed to answer question: %v", err)), AskOutput{}, nil
	}

	output := AskOutput{
		Question: input.Question,
		Answer:   answer.Text,
		Sources:  make([]Source, len(answer.Fragments)),
	}
	for i, f := range answer.Fragments {
		output.Sources[i] = Source{DocumentID: f.DocumentID, Score: f.Score}
	}

	// Structured output is mirrored as JSON text for clients that only read
	// content blocks.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal ask output", "error", err)
		return toolError(fmt.Sprintf("Failed to serialize answer: %v", err)), AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
