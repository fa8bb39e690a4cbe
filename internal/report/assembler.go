// Package report assembles the final token-addressable report artifact for
// a completed analysis.
package report

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/consensus"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

const maxRecommendations = 10

// Document is the assembled report body stored in Report.Data.
type Document struct {
	ExecutiveSummary  ExecutiveSummary                 `json:"executive_summary"`
	ModelPerspectives []ModelPerspective               `json:"model_perspectives"`
	Consensus         consensus.Result                 `json:"consensus"`
	PositioningGrid   PositioningGrid                  `json:"positioning_grid"`
	MessagingScores   map[string]models.MessagingScore `json:"messaging_scores"`
	Recommendations   []models.Recommendation          `json:"recommendations"`
	GeneratedAt       time.Time                        `json:"generated_at"`
}

// ExecutiveSummary opens the report.
type ExecutiveSummary struct {
	Overview           string                  `json:"overview"`
	TopRecommendations []models.Recommendation `json:"top_recommendations"`
}

// ModelPerspective bundles one provider's findings.
type ModelPerspective struct {
	Provider     models.Provider            `json:"provider"`
	Synopsis     *models.BrandSynopsis      `json:"synopsis,omitempty"`
	Pillars      []models.PositioningPillar `json:"pillars,omitempty"`
	Tone         *models.ToneOfVoice        `json:"tone,omitempty"`
	Segments     []models.BuyerSegment      `json:"segments,omitempty"`
	Amenities    []models.AmenityClaim      `json:"amenities,omitempty"`
	TrustSignals []models.TrustSignal       `json:"trust_signals,omitempty"`
}

// PositioningGrid is a two-axis competitive layout. The subject sits at the
// origin; competitors come from stored coordinates (empty by default).
type PositioningGrid struct {
	XAxis       string      `json:"x_axis"`
	YAxis       string      `json:"y_axis"`
	Subject     GridPoint   `json:"subject"`
	Competitors []GridPoint `json:"competitors"`
}

// GridPoint is one plotted entry on the positioning grid.
type GridPoint struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithGridAxes overrides the positioning grid axis labels.
func WithGridAxes(x, y string) Option {
	return func(a *Assembler) {
		a.gridXAxis = x
		a.gridYAxis = y
	}
}

// Assembler builds and persists reports.
type Assembler struct {
	store     store.Store
	logger    *slog.Logger
	gridXAxis string
	gridYAxis string
}

// NewAssembler creates an Assembler.
func NewAssembler(st store.Store, logger *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		store:     st,
		logger:    logger,
		gridXAxis: "Price",
		gridYAxis: "Quality",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the report for a project, or returns the existing one.
// Reports are frozen once created; re-assembling never recomputes.
func (a *Assembler) Assemble(ctx context.Context, projectID uuid.UUID) (*models.Report, error) {
	existing, err := a.store.GetReportByProjectID(ctx, projectID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading existing report: %w", err)
	}

	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	findingPtrs, err := a.store.ListFindings(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading findings: %w", err)
	}
	findings := make([]models.Finding, len(findingPtrs))
	for i, f := range findingPtrs {
		findings[i] = *f
	}

	runs, err := a.store.ListLlmRuns(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading llm runs: %w", err)
	}

	recommendations := collectRecommendations(findings)
	doc := Document{
		ExecutiveSummary:  executiveSummary(findings, recommendations),
		ModelPerspectives: modelPerspectives(findings, runs),
		Consensus:         consensus.Synthesize(findings),
		PositioningGrid: PositioningGrid{
			XAxis:       a.gridXAxis,
			YAxis:       a.gridYAxis,
			Subject:     GridPoint{Label: project.URL, X: 0, Y: 0},
			Competitors: []GridPoint{},
		},
		MessagingScores: messagingScores(findings),
		Recommendations: recommendations,
		GeneratedAt:     time.Now().UTC(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding report document: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:        uuid.New(),
		ProjectID: projectID,
		URLToken:  token,
		IsPublic:  true,
		Version:   1,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.store.CreateReport(ctx, report); err != nil {
		// A concurrent assemble may have won the race; return its report.
		if errors.Is(err, store.ErrDuplicateKey) {
			return a.store.GetReportByProjectID(ctx, projectID)
		}
		return nil, fmt.Errorf("storing report: %w", err)
	}

	a.logger.Info("report assembled",
		"project_id", projectID,
		"findings", len(findings),
		"perspectives", len(doc.ModelPerspectives))

	return report, nil
}

// newToken returns a 128-bit unguessable hex token.
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating report token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// executiveSummary derives the overview from the first brand synopsis and
// attaches the top five recommendations.
func executiveSummary(findings []models.Finding, recommendations []models.Recommendation) ExecutiveSummary {
	summary := ExecutiveSummary{TopRecommendations: []models.Recommendation{}}

	for _, f := range findings {
		if f.Kind != models.FindingBrandSynopsis {
			continue
		}
		synopsis, err := models.DecodeValue[models.BrandSynopsis](f)
		if err != nil {
			continue
		}
		summary.Overview = synopsis.Summary
		break
	}

	top := recommendations
	if len(top) > 5 {
		top = top[:5]
	}
	summary.TopRecommendations = append(summary.TopRecommendations, top...)
	return summary
}

// modelPerspectives builds one entry per provider with at least one
// completed run, bundling that provider's own findings.
func modelPerspectives(findings []models.Finding, runs []*models.LlmRun) []ModelPerspective {
	completed := make(map[models.Provider]bool)
	for _, run := range runs {
		if run.Status == models.RunStatusCompleted {
			completed[run.Provider] = true
		}
	}

	perspectives := make([]ModelPerspective, 0, len(models.AllProviders))
	for _, provider := range models.AllProviders {
		if !completed[provider] {
			continue
		}
		p := ModelPerspective{Provider: provider}
		for _, f := range findings {
			if f.Provider != provider {
				continue
			}
			switch f.Kind {
			case models.FindingBrandSynopsis:
				if v, err := models.DecodeValue[models.BrandSynopsis](f); err == nil && p.Synopsis == nil {
					p.Synopsis = &v
				}
			case models.FindingPositioningPillar:
				if v, err := models.DecodeValue[models.PositioningPillar](f); err == nil {
					p.Pillars = append(p.Pillars, v)
				}
			case models.FindingToneOfVoice:
				if v, err := models.DecodeValue[models.ToneOfVoice](f); err == nil && p.Tone == nil {
					p.Tone = &v
				}
			case models.FindingBuyerSegment:
				if v, err := models.DecodeValue[models.BuyerSegment](f); err == nil {
					p.Segments = append(p.Segments, v)
				}
			case models.FindingAmenityClaim:
				if v, err := models.DecodeValue[models.AmenityClaim](f); err == nil {
					p.Amenities = append(p.Amenities, v)
				}
			case models.FindingTrustSignal:
				if v, err := models.DecodeValue[models.TrustSignal](f); err == nil {
					p.TrustSignals = append(p.TrustSignals, v)
				}
			}
		}
		perspectives = append(perspectives, p)
	}
	return perspectives
}

// messagingScores collects the four scored dimensions, defaulting any
// missing dimension to medium/50 rather than erroring.
func messagingScores(findings []models.Finding) map[string]models.MessagingScore {
	scores := make(map[string]models.MessagingScore, len(models.ScoreKinds))
	for _, kind := range models.ScoreKinds {
		dimension := strings.TrimSuffix(string(kind), "_score")
		scores[dimension] = models.MessagingScore{Level: "medium", Score: 50}
		for _, f := range findings {
			if f.Kind != kind {
				continue
			}
			if v, err := models.DecodeValue[models.MessagingScore](f); err == nil {
				scores[dimension] = v
			}
			break
		}
	}
	return scores
}

// collectRecommendations dedups by title (first occurrence wins), sorts by
// impact descending with ties kept in insertion order, and caps the list.
func collectRecommendations(findings []models.Finding) []models.Recommendation {
	seen := make(map[string]bool)
	recommendations := []models.Recommendation{}

	for _, f := range findings {
		if f.Kind != models.FindingRecommendation {
			continue
		}
		rec, err := models.DecodeValue[models.Recommendation](f)
		if err != nil || rec.Title == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(rec.Title))
		if seen[key] {
			continue
		}
		seen[key] = true
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return impactRank(recommendations[i].Impact) > impactRank(recommendations[j].Impact)
	})

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations
}

func impactRank(impact string) int {
	switch strings.ToLower(impact) {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}
