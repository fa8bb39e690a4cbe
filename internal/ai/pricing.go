package ai

import "github.com/brandlens/brandlens/internal/config"

// Pricing converts token usage into a USD cost using a per-provider price
// table. Rates come from configuration, not hard-coded business logic.
type Pricing struct {
	PromptPer1K   float64
	ResponsePer1K float64
}

// NewPricing builds a Pricing from a provider's configured rates.
func NewPricing(cfg config.ProviderConfig) Pricing {
	return Pricing{
		PromptPer1K:   cfg.PromptPricePer1K,
		ResponsePer1K: cfg.ResponsePricePer1K,
	}
}

// Cost computes the dollar cost of one call.
func (p Pricing) Cost(promptTokens, responseTokens int) float64 {
	return float64(promptTokens)/1000*p.PromptPer1K +
		float64(responseTokens)/1000*p.ResponsePer1K
}

// EstimateTokens approximates a token count for providers that do not report
// usage. Four characters per token is a rough but serviceable heuristic.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
