// Package consensus computes cross-provider agreement statistics over the
// findings of one project. It is pure and read-only; the report assembler
// loads findings and calls Synthesize.
package consensus

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/brandlens/brandlens/pkg/models"
	"github.com/brandlens/brandlens/pkg/textkit"
)

const (
	maxThemes          = 5
	pillarSimThreshold = 0.6
	toneOverlapLimit   = 0.6
)

// Divergence is one detected topic where providers disagree beyond the
// similarity threshold.
type Divergence struct {
	Topic     string            `json:"topic"`
	Note      string            `json:"note"`
	Providers []models.Provider `json:"providers,omitempty"`
}

// Result summarizes how much the providers' outputs concur.
type Result struct {
	AgreementIndex int          `json:"agreement_index"`
	CommonThemes   []string     `json:"common_themes"`
	Divergences    []Divergence `json:"divergences"`
}

// Synthesize computes the consensus over all findings of one project.
func Synthesize(findings []models.Finding) Result {
	divergences := detectPillarDivergences(findings)
	if d, ok := detectToneDivergence(findings); ok {
		divergences = append(divergences, d)
	}

	return Result{
		AgreementIndex: agreementIndex(len(divergences), len(findings)),
		CommonThemes:   commonThemes(findings),
		Divergences:    divergences,
	}
}

// commonThemes extracts candidate tokens from synopsis summaries and pillar
// names, keeps those present in at least two distinct providers' analyses,
// and returns the top five by total occurrence count.
func commonThemes(findings []models.Finding) []string {
	counts := make(map[string]int)
	providers := make(map[string]map[models.Provider]bool)

	record := func(provider models.Provider, text string) {
		for _, theme := range textkit.ThemeCandidates(text) {
			counts[theme]++
			if providers[theme] == nil {
				providers[theme] = make(map[models.Provider]bool)
			}
			providers[theme][provider] = true
		}
	}

	for _, f := range findings {
		switch f.Kind {
		case models.FindingBrandSynopsis:
			synopsis, err := models.DecodeValue[models.BrandSynopsis](f)
			if err != nil {
				continue
			}
			record(f.Provider, synopsis.Summary)
		case models.FindingPositioningPillar:
			pillar, err := models.DecodeValue[models.PositioningPillar](f)
			if err != nil {
				continue
			}
			record(f.Provider, pillar.Name)
		}
	}

	var themes []string
	for theme, provs := range providers {
		if len(provs) >= 2 {
			themes = append(themes, theme)
		}
	}
	sort.Slice(themes, func(i, j int) bool {
		if counts[themes[i]] != counts[themes[j]] {
			return counts[themes[i]] > counts[themes[j]]
		}
		return themes[i] < themes[j]
	})

	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	if themes == nil {
		themes = []string{}
	}
	return themes
}

// detectPillarDivergences compares each distinct pillar name's descriptions
// pairwise across providers. Any pair below the similarity threshold is
// reported once per pillar name.
type pillarView struct {
	provider    models.Provider
	description string
}

func detectPillarDivergences(findings []models.Finding) []Divergence {
	byName := make(map[string][]pillarView)
	var order []string

	for _, f := range findings {
		if f.Kind != models.FindingPositioningPillar {
			continue
		}
		pillar, err := models.DecodeValue[models.PositioningPillar](f)
		if err != nil || pillar.Name == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(pillar.Name))
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = append(byName[key], pillarView{provider: f.Provider, description: pillar.Description})
	}

	var divergences []Divergence
	for _, name := range order {
		views := byName[name]
		if d, ok := divergingPair(name, views); ok {
			divergences = append(divergences, d)
		}
	}
	return divergences
}

func divergingPair(name string, views []pillarView) (Divergence, bool) {
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			if views[i].provider == views[j].provider {
				continue
			}
			sim := textkit.Jaccard(views[i].description, views[j].description)
			if sim < pillarSimThreshold {
				return Divergence{
					Topic: name,
					Note: fmt.Sprintf("providers describe the %q pillar differently (similarity %.2f)",
						name, sim),
					Providers: []models.Provider{views[i].provider, views[j].provider},
				}, true
			}
		}
	}
	return Divergence{}, false
}

// detectToneDivergence reports a single divergence when the providers'
// adjective sets overlap too little: the union exceeding 60% of the
// concatenated list length means most adjectives were unique to one provider.
func detectToneDivergence(findings []models.Finding) (Divergence, bool) {
	union := make(map[string]bool)
	providers := make(map[models.Provider]bool)
	total := 0

	for _, f := range findings {
		if f.Kind != models.FindingToneOfVoice {
			continue
		}
		tone, err := models.DecodeValue[models.ToneOfVoice](f)
		if err != nil {
			continue
		}
		providers[f.Provider] = true
		for _, adj := range tone.Adjectives {
			adj = strings.ToLower(strings.TrimSpace(adj))
			if adj == "" {
				continue
			}
			union[adj] = true
			total++
		}
	}

	if len(providers) < 2 || total == 0 {
		return Divergence{}, false
	}
	if float64(len(union))/float64(total) <= toneOverlapLimit {
		return Divergence{}, false
	}

	return Divergence{
		Topic: "tone_of_voice",
		Note:  "providers characterize the brand's tone with largely different adjectives",
	}, true
}

// agreementIndex maps divergence density to a 0..100 score. Zero divergences
// with any findings at all scores 100.
func agreementIndex(divergences, totalFindings int) int {
	denom := float64(totalFindings) / 3.0
	if denom < 1 {
		denom = 1
	}
	idx := 100 - 30*float64(divergences)/denom
	if idx < 0 {
		return 0
	}
	return int(math.Round(idx))
}
