package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionServer(t *testing.T, content string, inspect func(openai.ChatCompletionRequest)) *Client {
	t.Helper()
	return rawCompletionServer(t, content, func(body []byte) {
		if inspect == nil {
			return
		}
		var req openai.ChatCompletionRequest
		require.NoError(t, json.Unmarshal(body, &req))
		inspect(req)
	})
}

// rawCompletionServer hands the undecoded request body to inspect, so tests
// can see which fields actually went over the wire.
func rawCompletionServer(t *testing.T, content string, inspect func(body []byte)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		inspect(body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "cmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)

	return NewClient(Options{
		APIKey:    "sk-test",
		BaseURL:   srv.URL + "/v1",
		Model:     "gpt-test",
		MaxTokens: 100,
		Labels:    []string{"sadness", "joy", "anger"},
	}, zap.NewNop())
}

func TestPredict(t *testing.T) {
	c := completionServer(t, "```json\n{\"label\": \"anger\", \"confidence\": 0.91}\n```", func(req openai.ChatCompletionRequest) {
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[0].Content, "sadness, joy, anger")
		assert.Equal(t, "I could scream", req.Messages[1].Content)
	})

	label, score, err := c.Predict(context.Background(), "I could scream")
	require.NoError(t, err)
	assert.Equal(t, "anger", label)
	assert.InDelta(t, 0.91, score, 1e-9)
}

func TestPredictSendsDeterministicSampling(t *testing.T) {
	var sent map[string]any
	c := rawCompletionServer(t, `{"label": "joy", "confidence": 0.8}`, func(body []byte) {
		require.NoError(t, json.Unmarshal(body, &sent))
	})

	_, _, err := c.Predict(context.Background(), "great news")
	require.NoError(t, err)

	require.Contains(t, sent, "temperature")
	temp, ok := sent["temperature"].(float64)
	require.True(t, ok)
	assert.Greater(t, temp, 0.0)
	assert.Less(t, temp, 1e-6)
	assert.EqualValues(t, classifySeed, sent["seed"])
}

func TestPredictBadJSON(t *testing.T) {
	c := completionServer(t, "anger, probably", nil)

	_, _, err := c.Predict(context.Background(), "grr")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	c := completionServer(t, "  I'm here for you.  ", func(req openai.ChatCompletionRequest) {
		assert.Equal(t, 100, req.MaxTokens)
		assert.Equal(t, "gpt-test", req.Model)
	})

	reply, err := c.Generate(context.Background(), "rough day")
	require.NoError(t, err)
	assert.Equal(t, "I'm here for you.", reply)
}
