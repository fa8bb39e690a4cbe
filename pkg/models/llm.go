// Package models contains shared data models used across the BrandLens codebase.
package models

import (
	"context"
	"encoding/json"
)

// Provider identifies one of the upstream LLM services queried in parallel.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// AllProviders is the fixed provider set every analysis fans out to.
var AllProviders = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

// RequestConfig holds per-call model parameters.
type RequestConfig struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// LLMResult is the structured outcome of one provider call.
// Content is the parsed JSON body of the model's response; Raw preserves the
// unparsed text for the LlmRun record.
type LLMResult struct {
	Content    json.RawMessage `json:"content"`
	TokensUsed int             `json:"tokens_used"`
	Cost       float64         `json:"cost"`
	Raw        string          `json:"raw"`
}

// LLMProvider is the capability interface every upstream client implements.
// Callers depend on this interface, never on a concrete client.
type LLMProvider interface {
	// Analyze sends one prompt and returns the parsed structured response
	// with token and cost accounting.
	Analyze(ctx context.Context, prompt string, cfg RequestConfig) (*LLMResult, error)
	// Name returns the provider identifier.
	Name() Provider
}
