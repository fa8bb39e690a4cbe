// Package metrics holds the Prometheus instrumentation for the analysis
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	ProviderCalls    *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ProviderTokens   *prometheus.CounterVec
	ProviderCostUSD  *prometheus.CounterVec
	PagesScraped     prometheus.Counter
	ScrapeFailures   *prometheus.CounterVec
	ReportsAssembled prometheus.Counter
}

// New registers and returns the application metrics.
func New() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brandlens_analyses_total",
			Help: "Analyses finished, by terminal status",
		}, []string{"status"}),
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brandlens_provider_calls_total",
			Help: "LLM provider calls, by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brandlens_provider_call_seconds",
			Help:    "LLM provider call latency",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"provider"}),
		ProviderTokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brandlens_provider_tokens_total",
			Help: "Tokens consumed, by provider",
		}, []string{"provider"}),
		ProviderCostUSD: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brandlens_provider_cost_usd_total",
			Help: "Estimated spend in USD, by provider",
		}, []string{"provider"}),
		PagesScraped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "brandlens_pages_scraped_total",
			Help: "Pages scraped successfully",
		}),
		ScrapeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brandlens_scrape_failures_total",
			Help: "Scrape failures, by page role",
		}, []string{"role"}),
		ReportsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "brandlens_reports_assembled_total",
			Help: "Reports assembled",
		}),
	}
}

func (m *Metrics) ObserveAnalysis(status string) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveProviderCall(provider string, err error, elapsed time.Duration, tokens int, cost float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if tokens > 0 {
		m.ProviderTokens.WithLabelValues(provider).Add(float64(tokens))
	}
	if cost > 0 {
		m.ProviderCostUSD.WithLabelValues(provider).Add(cost)
	}
}
