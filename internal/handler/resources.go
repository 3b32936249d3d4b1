package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SuggestionSource lists the coping strategies for an emotion label.
type SuggestionSource interface {
	Suggestions(label string) []string
}

type ResourcesHandler interface {
	GetResources(c *gin.Context)
	GetSuggestions(c *gin.Context)
}

type resourcesHandler struct {
	source   SuggestionSource
	labels   []string
	helpline string
	logger   *zap.Logger
}

// NewResourcesHandler serves the suggestion table for labels and the crisis
// helpline message.
func NewResourcesHandler(source SuggestionSource, labels []string, helpline string, logger *zap.Logger) ResourcesHandler {
	return &resourcesHandler{
		source:   source,
		labels:   append([]string(nil), labels...),
		helpline: helpline,
		logger:   logger,
	}
}

// ResourcesResponse is the static self-help material shown outside a chat turn.
type ResourcesResponse struct {
	CrisisMessage string              `json:"crisis_message"`
	Suggestions   map[string][]string `json:"suggestions"`
}

// GetResources handles GET /api/resources
func (h *resourcesHandler) GetResources(c *gin.Context) {
	resp := ResourcesResponse{
		CrisisMessage: h.helpline,
		Suggestions:   make(map[string][]string, len(h.labels)),
	}
	for _, label := range h.labels {
		if items := h.source.Suggestions(label); len(items) > 0 {
			resp.Suggestions[label] = items
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetSuggestions handles GET /api/resources/:label
func (h *resourcesHandler) GetSuggestions(c *gin.Context) {
	label := strings.ToLower(c.Param("label"))
	items := h.source.Suggestions(label)
	if len(items) == 0 {
		h.logger.Debug("No suggestions for label", zap.String("label", label))
		c.JSON(http.StatusNotFound, gin.H{"error": "No suggestions for label"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": label, "suggestions": items})
}
