package ml_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:         srv.URL,
		Token:           "hf-token",
		EmotionModel:    "emotion-model",
		GenerationModel: "chat-model",
		MaxLength:       100,
	})
}

func TestPredictNestedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/emotion-model", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var body inferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I am scared", body.Inputs)
		assert.Nil(t, body.Parameters)

		_, _ = w.Write([]byte(`[[{"label":"sadness","score":0.1},{"label":"fear","score":0.85}]]`))
	})

	label, score, err := c.Predict(context.Background(), "I am scared")
	require.NoError(t, err)
	assert.Equal(t, "fear", label)
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestPredictFlatResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"joy","score":0.99}]`))
	})

	label, _, err := c.Predict(context.Background(), "yay")
	require.NoError(t, err)
	assert.Equal(t, "joy", label)
}

func TestPredictEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[]]`))
	})

	_, _, err := c.Predict(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyPrediction)
}

func TestPredictStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	_, _, err := c.Predict(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/chat-model", r.URL.Path)

		var body inferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.Parameters)
		assert.Equal(t, 100, body.Parameters.MaxLength)

		_, _ = w.Write([]byte(`[{"generated_text":" That sounds hard. "}]`))
	})

	reply, err := c.Generate(context.Background(), "I failed my exam")
	require.NoError(t, err)
	assert.Equal(t, "That sounds hard.", reply)
}
