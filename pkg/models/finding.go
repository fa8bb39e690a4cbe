package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FindingKind tags the concrete payload schema stored in Finding.Value.
type FindingKind string

const (
	FindingBrandSynopsis        FindingKind = "brand_synopsis"
	FindingPositioningPillar    FindingKind = "positioning_pillar"
	FindingToneOfVoice          FindingKind = "tone_of_voice"
	FindingBuyerSegment         FindingKind = "buyer_segment"
	FindingAmenityClaim         FindingKind = "amenity_claim"
	FindingTrustSignal          FindingKind = "trust_signal"
	FindingClarityScore         FindingKind = "clarity_score"
	FindingSpecificityScore     FindingKind = "specificity_score"
	FindingDifferentiationScore FindingKind = "differentiation_score"
	FindingTrustScore           FindingKind = "trust_score"
	FindingRecommendation       FindingKind = "recommendation"
)

// Finding is one atomic analytical result produced by one LLM call.
// LlmRunID and Provider attribute the finding to the exact run that
// produced it. Append-only.
type Finding struct {
	ID          uuid.UUID       `db:"id"           json:"id"`
	ProjectID   uuid.UUID       `db:"project_id"   json:"project_id"`
	LlmRunID    uuid.UUID       `db:"llm_run_id"   json:"llm_run_id"`
	Provider    Provider        `db:"provider"     json:"provider"`
	Kind        FindingKind     `db:"kind"         json:"kind"`
	Value       json.RawMessage `db:"value"        json:"value"`
	EvidenceRef string          `db:"evidence_ref" json:"evidence_ref,omitempty"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
}

// --- typed payloads, one schema per kind ---

// BrandSynopsis summarizes what the brand is and who it serves.
type BrandSynopsis struct {
	Summary          string `json:"summary"`
	Audience         string `json:"audience"`
	ValueProposition string `json:"value_proposition"`
}

// PositioningPillar is one claimed pillar of the brand's positioning.
type PositioningPillar struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence,omitempty"`
}

// ToneOfVoice characterizes the site's writing style.
type ToneOfVoice struct {
	Adjectives  []string `json:"adjectives"`
	Description string   `json:"description"`
}

// BuyerSegment is one audience segment the messaging targets.
type BuyerSegment struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Motivations []string `json:"motivations,omitempty"`
}

// AmenityClaim groups concrete offering claims by category.
type AmenityClaim struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// TrustSignal is one credibility cue found on the site.
type TrustSignal struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// MessagingScore is one scored messaging dimension.
type MessagingScore struct {
	Level     string `json:"level"` // low, medium, high
	Score     int    `json:"score"` // 0..100
	Rationale string `json:"rationale,omitempty"`
}

// Recommendation is one suggested messaging improvement.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // high, medium, low
	Effort      string `json:"effort,omitempty"`
}

// DecodeValue unmarshals a finding's payload into its concrete schema.
func DecodeValue[T any](f Finding) (T, error) {
	var v T
	if err := json.Unmarshal(f.Value, &v); err != nil {
		return v, fmt.Errorf("decode %s finding %s: %w", f.Kind, f.ID, err)
	}
	return v, nil
}

// ScoreKinds lists the four messaging-score finding kinds in report order.
var ScoreKinds = []FindingKind{
	FindingClarityScore,
	FindingSpecificityScore,
	FindingDifferentiationScore,
	FindingTrustScore,
}
