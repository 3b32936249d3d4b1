package ml_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrEmptyPrediction = errors.New("model returned no prediction")

// Client is a client for a Hugging Face style inference API. It serves both
// the emotion classifier and the reply generator.
type Client struct {
	baseURL         string
	token           string
	emotionModel    string
	generationModel string
	maxLength       int
	httpClient      *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	Token           string
	EmotionModel    string
	GenerationModel string
	MaxLength       int
	Timeout         time.Duration
}

// inferenceRequest is the request body for /models/<name>
type inferenceRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters *generateParams `json:"parameters,omitempty"`
	Options    requestOptions  `json:"options"`
}

type generateParams struct {
	MaxLength int `json:"max_length,omitempty"`
}

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// LabelScore is one entry of a text-classification response.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Generation is one entry of a text2text-generation response.
type Generation struct {
	GeneratedText string `json:"generated_text"`
}

// NewClient creates a new inference client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		token:           opts.Token,
		emotionModel:    opts.EmotionModel,
		generationModel: opts.GenerationModel,
		maxLength:       opts.MaxLength,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict returns the top label for text from the emotion model.
func (c *Client) Predict(ctx context.Context, text string) (string, float64, error) {
	var raw json.RawMessage
	if err := c.post(ctx, c.emotionModel, inferenceRequest{Inputs: text, Options: requestOptions{WaitForModel: true}}, &raw); err != nil {
		return "", 0, err
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return "", 0, err
	}
	if len(scores) == 0 {
		return "", 0, ErrEmptyPrediction
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.Label, best.Score, nil
}

// decodeScores accepts both the nested [[...]] shape returned for single
// inputs and a flat [...] list.
func decodeScores(raw json.RawMessage) ([]LabelScore, error) {
	var nested [][]LabelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []LabelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return flat, nil
}

// Generate returns a single reply for text from the generation model.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	reqBody := inferenceRequest{
		Inputs:     text,
		Parameters: &generateParams{MaxLength: c.maxLength},
		Options:    requestOptions{WaitForModel: true},
	}

	var result []Generation
	if err := c.post(ctx, c.generationModel, reqBody, &result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", ErrEmptyPrediction
	}
	return strings.TrimSpace(result[0].GeneratedText), nil
}

func (c *Client) post(ctx context.Context, model string, reqBody inferenceRequest, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+model, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ML service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
