package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/pkg/models"
)

func testConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		APIKey:             "test-key",
		BaseURL:            baseURL,
		Model:              "gpt-4o",
		PromptPricePer1K:   0.0025,
		ResponsePricePer1K: 0.01,
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.ProviderConfig{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestAnalyze_ParsesCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "{\"summary\": \"A coastal homebuilder.\"}"}}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 200, "total_tokens": 1200}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)
	assert.Equal(t, models.ProviderOpenAI, client.Name())

	result, err := client.Analyze(context.Background(), "describe the brand", models.RequestConfig{
		Model:     "gpt-4o",
		MaxTokens: 1024,
	})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(result.Content, &payload))
	assert.Equal(t, "A coastal homebuilder.", payload["summary"])
	assert.Equal(t, 1200, result.TokensUsed)
	assert.InDelta(t, 0.0045, result.Cost, 1e-9)
}

func TestAnalyze_StripsMarkdownFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "` + "```json\\n{\\\"ok\\\": true}\\n```" + `"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	result, err := client.Analyze(context.Background(), "p", models.RequestConfig{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(result.Content))
}

func TestAnalyze_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), "p", models.RequestConfig{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion")
}
