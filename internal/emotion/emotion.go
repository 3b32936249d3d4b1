// Package emotion classifies user text into a fixed set of emotion labels.
package emotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Label is one of the closed set of classifier output categories.
type Label string

const (
	Sadness  Label = "sadness"
	Joy      Label = "joy"
	Love     Label = "love"
	Anger    Label = "anger"
	Fear     Label = "fear"
	Surprise Label = "surprise"
	Neutral  Label = "neutral"
)

// Labels lists every label a classifier may return.
var Labels = []Label{Sadness, Joy, Love, Anger, Fear, Surprise, Neutral}

var ErrUnknownLabel = errors.New("unknown emotion label")

// Result is a single (label, confidence) classification.
type Result struct {
	Label      Label
	Confidence float64
}

// ParseLabel normalizes a backend label into the closed set.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Labels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// Predictor is an external text-classification capability. Implementations
// return the top label as reported by the model, not yet normalized.
type Predictor interface {
	Predict(ctx context.Context, text string) (label string, score float64, err error)
}

// Classifier turns text into an emotion Result.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Service adapts a Predictor to the Classifier contract.
type Service struct {
	predictor Predictor
	logger    *zap.Logger
}

func NewService(predictor Predictor, logger *zap.Logger) *Service {
	return &Service{predictor: predictor, logger: logger}
}

// Classify returns (neutral, 0) for empty text without calling the predictor.
func (s *Service) Classify(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{Label: Neutral, Confidence: 0}, nil
	}

	raw, score, err := s.predictor.Predict(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("emotion prediction failed: %w", err)
	}

	label, err := ParseLabel(raw)
	if err != nil {
		s.logger.Warn("Classifier returned label outside the known set", zap.String("label", raw))
		return Result{}, err
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	s.logger.Debug("Emotion classified", zap.String("label", string(label)), zap.Float64("confidence", score))
	return Result{Label: label, Confidence: score}, nil
}
