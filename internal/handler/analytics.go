package handler

import (
	"net/http"
	"strconv"
	"time"

	"companion/internal/middleware"
	"companion/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultSummaryDays = 7
	maxSummaryDays     = 365
)

type AnalyticsHandler interface {
	GetSummary(c *gin.Context)
}

type analyticsHandler struct {
	analyticsRepo repository.AnalyticsRepository
	now           func() time.Time
	logger        *zap.Logger
}

func NewAnalyticsHandler(analyticsRepo repository.AnalyticsRepository, logger *zap.Logger) AnalyticsHandler {
	return &analyticsHandler{
		analyticsRepo: analyticsRepo,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

// GetSummary handles GET /api/analytics/summary?days=N
func (h *analyticsHandler) GetSummary(c *gin.Context) {
	days := defaultSummaryDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSummaryDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	userID := c.GetInt64(middleware.ContextUserID)
	since := h.now().AddDate(0, 0, -days)

	summary, err := h.analyticsRepo.EmotionSummary(c.Request.Context(), userID, since)
	if err != nil {
		h.logger.Error("Failed to get emotion summary", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
