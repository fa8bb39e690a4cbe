// Package mock provides a configurable LLMProvider for tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brandlens/brandlens/pkg/models"
)

// Provider satisfies models.LLMProvider for testing.
type Provider struct {
	Name_       models.Provider
	AnalyzeFunc func(ctx context.Context, prompt string, cfg models.RequestConfig) (*models.LLMResult, error)

	// Prompts records every prompt passed to Analyze.
	Prompts []string
}

func (m *Provider) Name() models.Provider { return m.Name_ }

func (m *Provider) Analyze(ctx context.Context, prompt string, cfg models.RequestConfig) (*models.LLMResult, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, prompt, cfg)
	}
	return &models.LLMResult{Content: json.RawMessage(`{}`), Raw: "{}"}, nil
}

// NewProvider returns a Provider that answers every prompt with the given
// JSON payload.
func NewProvider(name models.Provider, payload string) *Provider {
	return &Provider{
		Name_: name,
		AnalyzeFunc: func(_ context.Context, _ string, _ models.RequestConfig) (*models.LLMResult, error) {
			return &models.LLMResult{
				Content:    json.RawMessage(payload),
				TokensUsed: 100,
				Cost:       0.001,
				Raw:        payload,
			}, nil
		},
	}
}

// StepResponse pairs a prompt substring with the JSON payload to return
// for prompts containing it.
type StepResponse struct {
	Match   string
	Payload string
}

// NewStepProvider returns a Provider whose response depends on which prompt
// it receives. Responses are checked in order; the first match wins, and
// prompts matching nothing get the fallback.
func NewStepProvider(name models.Provider, responses []StepResponse, fallback string) *Provider {
	p := &Provider{Name_: name}
	p.AnalyzeFunc = func(_ context.Context, prompt string, _ models.RequestConfig) (*models.LLMResult, error) {
		body := fallback
		lower := strings.ToLower(prompt)
		for _, r := range responses {
			if r.Match != "" && strings.Contains(lower, strings.ToLower(r.Match)) {
				body = r.Payload
				break
			}
		}
		return &models.LLMResult{
			Content:    json.RawMessage(body),
			TokensUsed: 100,
			Cost:       0.001,
			Raw:        body,
		}, nil
	}
	return p
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(name models.Provider, err error) *Provider {
	return &Provider{
		Name_: name,
		AnalyzeFunc: func(_ context.Context, _ string, _ models.RequestConfig) (*models.LLMResult, error) {
			return nil, err
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until context is cancelled.
func NewTimeoutProvider(name models.Provider) *Provider {
	return &Provider{
		Name_: name,
		AnalyzeFunc: func(ctx context.Context, _ string, _ models.RequestConfig) (*models.LLMResult, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		},
	}
}

// Compile-time check that Provider implements LLMProvider.
var _ models.LLMProvider = (*Provider)(nil)
