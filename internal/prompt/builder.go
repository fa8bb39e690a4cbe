// Package prompt produces the eight ordered analysis prompts sent to each
// LLM provider.
package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/brandlens/brandlens/internal/scraper"
	"github.com/brandlens/brandlens/pkg/models"
)

// NumSteps is the fixed number of analysis steps per provider.
const NumSteps = 8

// Analysis step numbers. Step 8 consumes the provider's own earlier outputs.
const (
	StepBrandSynopsis      = 1
	StepPositioningPillars = 2
	StepToneOfVoice        = 3
	StepBuyerSegments      = 4
	StepAmenities          = 5
	StepTrustSignals       = 6
	StepMessagingScores    = 7
	StepRecommendations    = 8
)

const (
	mainContentBudget = 6000
	subContentBudget  = 2000
)

//go:embed industries.yaml
var industriesYAML []byte

// Context is the shared scraped-content input for all eight prompts.
type Context struct {
	Domain   string
	MainPage scraper.Page
	SubPages []scraper.Page
}

// StepOutputs collects one provider's own raw step outputs, keyed by step
// number, for use as context in later steps.
type StepOutputs map[int]json.RawMessage

// Override tunes prompts for one industry.
type Override struct {
	Focus             string   `yaml:"focus"`
	AmenityVocabulary []string `yaml:"amenity_vocabulary"`
}

// Builder renders the eight analysis prompts.
type Builder struct {
	overrides map[models.Industry]Override
}

// NewBuilder parses the embedded industry override sets.
func NewBuilder() (*Builder, error) {
	var overrides map[models.Industry]Override
	if err := yaml.Unmarshal(industriesYAML, &overrides); err != nil {
		return nil, fmt.Errorf("parsing industry overrides: %w", err)
	}
	if _, ok := overrides[models.IndustryGeneric]; !ok {
		return nil, fmt.Errorf("industry overrides missing generic fallback")
	}
	return &Builder{overrides: overrides}, nil
}

// Build renders the prompt for one step. prior carries the provider's own
// outputs from earlier steps; it is only consulted for the final step.
func (b *Builder) Build(step int, industry models.Industry, pctx Context, prior StepOutputs) (string, error) {
	override, ok := b.overrides[industry]
	if !ok {
		override = b.overrides[models.IndustryGeneric]
	}

	var sb strings.Builder
	sb.WriteString("You are a brand strategy analyst reviewing the website of ")
	sb.WriteString(pctx.Domain)
	sb.WriteString(".\n")
	if override.Focus != "" {
		sb.WriteString(override.Focus)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	switch step {
	case StepBrandSynopsis:
		sb.WriteString(`Write a brand synopsis. Respond with a JSON object:
{"summary": "2-3 sentence overview of the brand", "audience": "who the brand is speaking to", "value_proposition": "the core promise made to that audience"}`)

	case StepPositioningPillars:
		sb.WriteString(`Identify the brand's positioning pillars, the 3-5 distinct claims the site leans on to differentiate itself. Respond with a JSON object:
{"pillars": [{"name": "short pillar name", "description": "what the site claims", "evidence": ["verbatim or near-verbatim phrases from the site"]}]}`)

	case StepToneOfVoice:
		sb.WriteString(`Characterize the brand's tone of voice. Respond with a JSON object:
{"adjectives": ["5-8 single-word adjectives"], "description": "2-3 sentences on how the brand sounds"}`)

	case StepBuyerSegments:
		sb.WriteString(`Infer the buyer segments this website is written for. Respond with a JSON object:
{"segments": [{"name": "segment name", "description": "who they are", "motivations": ["what would make them buy"]}]}`)

	case StepAmenities:
		sb.WriteString("List the concrete amenities, features, or offerings the site claims.")
		if len(override.AmenityVocabulary) > 0 {
			sb.WriteString(" Typical categories for this industry include: ")
			sb.WriteString(strings.Join(override.AmenityVocabulary, ", "))
			sb.WriteString(".")
		}
		sb.WriteString(`
Respond with a JSON object:
{"amenities": [{"category": "grouping", "items": ["specific claims"]}]}`)

	case StepTrustSignals:
		sb.WriteString(`Identify the trust signals the site uses, such as awards, testimonials, certifications, guarantees, or longevity claims. Respond with a JSON object:
{"trust_signals": [{"type": "signal type", "description": "what the site shows"}]}`)

	case StepMessagingScores:
		sb.WriteString(`Score the site's messaging on four dimensions. For each, give a level (low, medium, or high), a score from 0 to 100, and a one-sentence rationale. Respond with a JSON object:
{"clarity": {"level": "...", "score": 0, "rationale": "..."}, "specificity": {"level": "...", "score": 0, "rationale": "..."}, "differentiation": {"level": "...", "score": 0, "rationale": "..."}, "trust": {"level": "...", "score": 0, "rationale": "..."}}`)

	case StepRecommendations:
		sb.WriteString(`Based on your earlier analysis of this brand, recommend the highest-leverage messaging improvements. Respond with a JSON object:
{"recommendations": [{"title": "short imperative title", "description": "what to change and why", "impact": "high|medium|low", "effort": "high|medium|low"}]}`)
		writePriorOutputs(&sb, prior)

	default:
		return "", fmt.Errorf("unknown analysis step %d", step)
	}

	sb.WriteString("\n\nRespond with JSON only, no surrounding prose.\n\n")
	writePageContent(&sb, pctx)

	return sb.String(), nil
}

func writePriorOutputs(sb *strings.Builder, prior StepOutputs) {
	labels := []struct {
		step  int
		label string
	}{
		{StepBrandSynopsis, "Brand synopsis"},
		{StepPositioningPillars, "Positioning pillars"},
		{StepToneOfVoice, "Tone of voice"},
		{StepMessagingScores, "Messaging scores"},
	}

	var any bool
	for _, l := range labels {
		out, ok := prior[l.step]
		if !ok || len(out) == 0 {
			continue
		}
		if !any {
			sb.WriteString("\n\nYour earlier analysis of this brand:\n")
			any = true
		}
		fmt.Fprintf(sb, "\n%s:\n%s\n", l.label, out)
	}
}

func writePageContent(sb *strings.Builder, pctx Context) {
	sb.WriteString("--- MAIN PAGE: ")
	sb.WriteString(pctx.MainPage.URL)
	sb.WriteString(" ---\n")
	if pctx.MainPage.Title != "" {
		sb.WriteString("Title: ")
		sb.WriteString(pctx.MainPage.Title)
		sb.WriteString("\n")
	}
	if desc := pctx.MainPage.Metadata["description"]; desc != "" {
		sb.WriteString("Meta description: ")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	sb.WriteString(truncateString(pctx.MainPage.Content, mainContentBudget))
	sb.WriteString("\n")

	for _, page := range pctx.SubPages {
		fmt.Fprintf(sb, "\n--- %s PAGE: %s ---\n", strings.ToUpper(string(page.Type)), page.URL)
		sb.WriteString(truncateString(page.Content, subContentBudget))
		sb.WriteString("\n")
	}
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
