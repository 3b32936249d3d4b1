// Package llm backs the emotion classifier and reply generator with an
// OpenAI compatible chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrEmptyCompletion = errors.New("completion returned no choices")

// A zero temperature is dropped by omitempty, so the smallest float32 stands
// in for greedy decoding.
const classifyTemperature = math.SmallestNonzeroFloat32

const classifySeed = 42

const classifyPrompt = `Classify the emotion expressed in the user's message.
Answer with a JSON object {"label": "<label>", "confidence": <number between 0 and 1>}.
The label must be exactly one of: %s.`

const replyPrompt = `You are a warm, supportive companion. Reply to the user in one or two short sentences.
Do not give medical advice.`

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	labels      []string
	logger      *zap.Logger
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// Labels constrains classification output.
	Labels []string
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	logger.Info("LLM client initialized", zap.String("model", opts.Model))

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		maxTokens:   opts.MaxTokens,
		labels:      opts.Labels,
		logger:      logger,
	}
}

type classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predict asks the model for a single emotion label.
func (c *Client) Predict(ctx context.Context, text string) (string, float64, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(classifyPrompt, strings.Join(c.labels, ", "))},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: classifyTemperature,
		Seed:        ptr(classifySeed),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, ErrEmptyCompletion
	}

	var out classification
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &out); err != nil {
		c.logger.Error("Failed to parse classification", zap.String("content", resp.Choices[0].Message.Content), zap.Error(err))
		return "", 0, fmt.Errorf("failed to parse classification: %w", err)
	}
	return out.Label, out.Confidence, nil
}

// Generate returns one reply, capped at the configured token budget.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: replyPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func ptr[T any](v T) *T { return &v }

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
