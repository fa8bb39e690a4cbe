// Package anthropic implements the LLMProvider interface against the
// Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/brandlens/brandlens/internal/ai"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/pkg/models"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Sentinel errors for Anthropic client failures.
var (
	ErrUnreachable = errors.New("anthropic unreachable")
	ErrAPIError    = errors.New("anthropic api error")
	ErrTimeout     = errors.New("anthropic request timeout")
)

// Client calls the Anthropic messages endpoint and normalizes the result.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	pricing ai.Pricing
	client  *http.Client
}

// NewClient builds an Anthropic provider client from configuration.
func NewClient(cfg config.ProviderConfig, timeout time.Duration) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
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
	return models.ProviderAnthropic
}

func (c *Client) Analyze(ctx context.Context, prompt string, reqCfg models.RequestConfig) (*models.LLMResult, error) {
	model := reqCfg.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(messagesRequest{
		Model:       model,
		MaxTokens:   reqCfg.MaxTokens,
		Temperature: reqCfg.Temperature,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/messages", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, detail)
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decoding anthropic response: %w", err)
	}
	if len(msgResp.Content) == 0 {
		return nil, fmt.Errorf("anthropic: %w", ai.ErrEmptyResponse)
	}

	raw := msgResp.Content[0].Text
	content, err := ai.ParseModelJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	return &models.LLMResult{
		Content:    content,
		TokensUsed: msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		Cost:       c.pricing.Cost(msgResp.Usage.InputTokens, msgResp.Usage.OutputTokens),
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

// --- Anthropic wire types ---

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

var _ models.LLMProvider = (*Client)(nil)
