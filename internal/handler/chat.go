package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"companion/internal/middleware"
	"companion/internal/models"
	"companion/internal/pipeline"
	"companion/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	historyLimit = 50
	trendsLimit  = 20
)

// Processor runs one chat turn.
type Processor interface {
	Process(ctx context.Context, user pipeline.User, text string) (*models.ChatResult, error)
}

type ChatHandler interface {
	Chat(c *gin.Context)
	History(c *gin.Context)
	Trends(c *gin.Context)
}

type chatHandler struct {
	processor Processor
	chatRepo  repository.ChatRepository
	logger    *zap.Logger
}

func NewChatHandler(processor Processor, chatRepo repository.ChatRepository, logger *zap.Logger) ChatHandler {
	return &chatHandler{processor: processor, chatRepo: chatRepo, logger: logger}
}

// ChatRequest.Text is a pointer so that a missing field can be told apart
// from an empty message.
type ChatRequest struct {
	Text *string `json:"text"`
}

// Chat handles POST /api/chat
func (h *chatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Text == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "text field is required"})
		return
	}

	user := pipeline.User{
		ID:       c.GetInt64(middleware.ContextUserID),
		Username: c.GetString(middleware.ContextUsername),
	}

	result, err := h.processor.Process(c.Request.Context(), user, *req.Text)
	if err != nil {
		if errors.Is(err, pipeline.ErrAnalyzer) {
			h.logger.Warn("Analyzer unavailable", zap.Int64("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis service unavailable"})
			return
		}
		h.logger.Error("Failed to process chat message", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// History handles GET /api/history. Messages are returned oldest first.
func (h *chatHandler) History(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	messages, err := h.chatRepo.RecentMessages(c.Request.Context(), userID, historyLimit)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}

	slices.Reverse(messages)
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// Trends handles GET /api/trends. Logs are returned newest first.
func (h *chatHandler) Trends(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	logs, err := h.chatRepo.RecentEmotionLogs(c.Request.Context(), userID, trendsLimit)
	if err != nil {
		h.logger.Error("Failed to get trends", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve trends"})
		return
	}

	if logs == nil {
		logs = []models.EmotionLog{}
	}
	c.JSON(http.StatusOK, logs)
}
