package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sozercan/instrument-lens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generateContentResponse = `{
  "candidates": [
    {"content": {"role": "model", "parts": [{"text": "{\"brand\":\"Fender\"}"}]}, "finishReason": "STOP"}
  ],
  "usageMetadata": {"promptTokenCount": 300, "candidatesTokenCount": 20, "totalTokenCount": 320}
}`

func newTestGemini(t *testing.T, url string) *Gemini {
	t.Helper()
	p, err := NewGemini(context.Background(), &config.LLMConfig{
		Provider:    config.ProviderGemini,
		APIKey:      "gm-test",
		APIEndpoint: url,
		Model:       "gemini-2.5-flash",
		MaxTokens:   600,
	})
	require.NoError(t, err)
	return p
}

func TestGemini_Analyze(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "gm-test", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generateContentResponse))
	}))
	defer ts.Close()

	p := newTestGemini(t, ts.URL)
	imageData := []byte("fake-png")
	resp, err := p.Analyze(context.Background(), []Message{
		SystemMessage("strict"),
		UserMessage(
			ImagePart("data:image/png;base64,"+base64.StdEncoding.EncodeToString(imageData)),
			TextPart("describe"),
		),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"brand":"Fender"}`, resp.Content)
	assert.Equal(t, int64(320), resp.Usage.TotalTokens)

	genConfig := body["generationConfig"].(map[string]any)
	assert.Equal(t, float64(600), genConfig["maxOutputTokens"])

	system := body["systemInstruction"].(map[string]any)
	assert.Equal(t, "strict", system["parts"].([]any)[0].(map[string]any)["text"])

	contents := body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(imageData), inline["data"])
	assert.Equal(t, "describe", parts[1].(map[string]any)["text"])
}

func TestGemini_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer ts.Close()

	p := newTestGemini(t, ts.URL)
	_, err := p.Analyze(context.Background(), []Message{UserMessage(TextPart("hi"))})

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.JSONEq(t, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, upstream.Body)
	assert.False(t, upstream.Temporary())
}

func TestGemini_MalformedDataURL(t *testing.T) {
	p := newTestGemini(t, "http://127.0.0.1:0")
	_, err := p.Analyze(context.Background(), []Message{
		UserMessage(ImagePart("data:image/png;base64,@@@"), TextPart("describe")),
	})
	assert.ErrorContains(t, err, "image 1")
}
