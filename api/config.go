// Package api provides the HTTP boundary of the chatbot: the /chatbot
// question endpoint, index inspection and the MCP mount.
package api

import "log/slog"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// AllowedOrigins is a comma separated CORS origin list, "*" for any.
	AllowedOrigins string

	// MCP disables the /mcp endpoint when false.
	MCP bool

	Logger *slog.Logger
}
