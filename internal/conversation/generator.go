// Package conversation produces open-domain replies to user messages.
package conversation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend is an external text generation capability. The output length
// bound is part of the backend's configuration.
type Backend interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Generator produces a reply for a single turn.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Service generates each turn independently of earlier turns.
type Service struct {
	backend Backend
	logger  *zap.Logger
}

func NewService(backend Backend, logger *zap.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	start := time.Now()
	reply, err := s.backend.Generate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}
	// An empty generation is still a valid turn; it is stored as is.
	if reply == "" {
		s.logger.Warn("Backend returned an empty reply")
	}
	s.logger.Debug("Reply generated", zap.Duration("took", time.Since(start)), zap.Int("length", len(reply)))
	return reply, nil
}
