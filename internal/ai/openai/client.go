// Package openai implements the LLMProvider interface on top of the OpenAI
// chat completions API.
package openai

import (
	"context"
	"fmt"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/brandlens/brandlens/internal/ai"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/pkg/models"
)

// Client calls OpenAI chat completions and normalizes the result.
type Client struct {
	api     *gopenai.Client
	model   string
	pricing ai.Pricing
}

// NewClient builds an OpenAI provider client from configuration.
func NewClient(cfg config.ProviderConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:     gopenai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		pricing: ai.NewPricing(cfg),
	}, nil
}

func (c *Client) Name() models.Provider {
	return models.ProviderOpenAI
}

func (c *Client) Analyze(ctx context.Context, prompt string, reqCfg models.RequestConfig) (*models.LLMResult, error) {
	model := reqCfg.Model
	if model == "" {
		model = c.model
	}

	req := gopenai.ChatCompletionRequest{
		Model:       model,
		Temperature: reqCfg.Temperature,
		ResponseFormat: &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// Reasoning models reject the legacy MaxTokens field.
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = reqCfg.MaxTokens
	} else {
		req.MaxTokens = reqCfg.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ai.ErrEmptyResponse)
	}

	raw := resp.Choices[0].Message.Content
	content, err := ai.ParseModelJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	return &models.LLMResult{
		Content:    content,
		TokensUsed: resp.Usage.TotalTokens,
		Cost:       c.pricing.Cost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		Raw:        raw,
	}, nil
}

var _ models.LLMProvider = (*Client)(nil)
