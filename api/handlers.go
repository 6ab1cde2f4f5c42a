package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/crmchat/pkg/engine"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatbotRequest is the body of POST /chatbot.
type ChatbotRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatbotResponse carries the generator's reply verbatim.
type ChatbotResponse struct {
	Answer string `json:"answer"`
}

// IndexResponse describes the index built at startup.
type IndexResponse struct {
	Documents      int    `json:"documents"`
	Reused         int    `json:"reused"`
	Updated        int    `json:"updated"`
	Dropped        int    `json:"dropped"`
	TopK           int    `json:"top_k"`
	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChatbot answers one question.
func (s *Server) handleChatbot(c *fiber.Ctx) error {
	var req ChatbotRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body: " + err.Error()})
	}

	if strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "question is required"})
	}

	answer, err := s.engine.Ask(c.UserContext(), engine.Request{
		Question:       req.Question,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyQuestion) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}

		s.logger.Error("answering question failed",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(ChatbotResponse{Answer: answer.Text})
}

// handleIndexStats returns the startup build statistics.
func (s *Server) handleIndexStats(c *fiber.Ctx) error {
	stats := s.engine.Stats()
	return c.JSON(IndexResponse{
		Documents:      stats.Documents,
		Reused:         stats.Reused,
		Updated:        stats.Updated,
		Dropped:        stats.Dropped,
		TopK:           s.engine.TopK(),
		EmbeddingModel: s.engine.EmbeddingModel(),
		ChatModel:      s.engine.ChatModel(),
	})
}
