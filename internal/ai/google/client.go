// Package google implements the LLMProvider interface against the Gemini
// generateContent API.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/brandlens/brandlens/internal/ai"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/pkg/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Sentinel errors for Gemini client failures.
var (
	ErrUnreachable = errors.New("gemini unreachable")
	ErrAPIError    = errors.New("gemini api error")
	ErrTimeout     = errors.New("gemini request timeout")
)

// Client calls the Gemini generateContent endpoint and normalizes the result.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	pricing ai.Pricing
	client  *http.Client
}

// NewClient builds a Gemini provider client from configuration.
func NewClient(cfg config.ProviderConfig, timeout time.Duration) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		pricing: ai.NewPricing(cfg),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() models.Provider {
	return models.ProviderGoogle
}

func (c *Client) Analyze(ctx context.Context, prompt string, reqCfg models.RequestConfig) (*models.LLMResult, error) {
	model := reqCfg.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      reqCfg.Temperature,
			MaxOutputTokens:  reqCfg.MaxTokens,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, detail)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("google: %w", ai.ErrEmptyResponse)
	}

	raw := genResp.Candidates[0].Content.Parts[0].Text
	parsed, err := ai.ParseModelJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	promptTokens := genResp.UsageMetadata.PromptTokenCount
	responseTokens := genResp.UsageMetadata.CandidatesTokenCount
	total := genResp.UsageMetadata.TotalTokenCount
	if total == 0 {
		// Older API versions omit usage metadata.
		promptTokens = ai.EstimateTokens(prompt)
		responseTokens = ai.EstimateTokens(raw)
		total = promptTokens + responseTokens
	}

	return &models.LLMResult{
		Content:    parsed,
		TokensUsed: total,
		Cost:       c.pricing.Cost(promptTokens, responseTokens),
		Raw:        raw,
	}, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// --- Gemini wire types ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content content `json:"content"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

var _ models.LLMProvider = (*Client)(nil)
