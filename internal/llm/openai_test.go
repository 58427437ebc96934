package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sozercan/instrument-lens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [
    {
      "index": 0,
      "finish_reason": "stop",
      "message": {"role": "assistant", "content": "{\"brand\":\"Gibson\"}"}
    }
  ],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func newTestOpenAI(t *testing.T, url string) *OpenAI {
	t.Helper()
	p, err := NewOpenAI(&config.LLMConfig{
		Provider:    config.ProviderOpenAI,
		APIKey:      "sk-test",
		APIEndpoint: url,
		Model:       "gpt-4o",
		MaxTokens:   800,
	})
	require.NoError(t, err)
	return p
}

func TestOpenAI_Analyze(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionResponse))
	}))
	defer ts.Close()

	p := newTestOpenAI(t, ts.URL)
	resp, err := p.Analyze(context.Background(), []Message{
		UserMessage(
			ImagePart("data:image/png;base64,AAA"),
			ImagePart("https://example.com/b.jpg"),
			TextPart("describe"),
		),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"brand":"Gibson"}`, resp.Content)
	assert.Equal(t, int64(150), resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, float64(800), body["max_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])

	content := msg["content"].([]any)
	require.Len(t, content, 3)
	assert.Equal(t, "image_url", content[0].(map[string]any)["type"])
	assert.Equal(t, "data:image/png;base64,AAA", content[0].(map[string]any)["image_url"].(map[string]any)["url"])
	assert.Equal(t, "image_url", content[1].(map[string]any)["type"])
	assert.Equal(t, "text", content[2].(map[string]any)["type"])
	assert.Equal(t, "describe", content[2].(map[string]any)["text"])
}

func TestOpenAI_AnalyzeOptionsOverrideDefaults(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionResponse))
	}))
	defer ts.Close()

	p := newTestOpenAI(t, ts.URL)
	_, err := p.Analyze(context.Background(),
		[]Message{SystemMessage("be strict"), UserMessage(TextPart("hi"))},
		WithModel("gpt-4o-mini"), WithMaxTokens(50),
	)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(50), body["max_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "be strict", messages[0].(map[string]any)["content"])
	assert.Equal(t, "hi", messages[1].(map[string]any)["content"])
}

func TestOpenAI_UpstreamErrorIsForwarded(t *testing.T) {
	const errorBody = `{"error":{"message":"Rate limit reached","type":"requests","param":null,"code":"rate_limit_exceeded"}}`
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(errorBody))
	}))
	defer ts.Close()

	p := newTestOpenAI(t, ts.URL)
	_, err := p.Analyze(context.Background(), []Message{UserMessage(TextPart("hi"))})
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, errorBody, upstream.Body)
	assert.True(t, upstream.Temporary())
	// retries belong to WithRetry, not the SDK
	assert.Equal(t, 1, calls)
}

func TestOpenAI_NonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer ts.Close()

	p := newTestOpenAI(t, ts.URL)
	_, err := p.Analyze(context.Background(), []Message{UserMessage(TextPart("hi"))})

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	assert.Equal(t, "upstream exploded", upstream.Body)
}

func TestOpenAI_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`))
	}))
	defer ts.Close()

	p := newTestOpenAI(t, ts.URL)
	_, err := p.Analyze(context.Background(), []Message{UserMessage(TextPart("hi"))})
	assert.ErrorIs(t, err, errNoChoices)
}
