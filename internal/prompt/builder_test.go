package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/scraper"
	"github.com/brandlens/brandlens/pkg/models"
)

func testContext() Context {
	return Context{
		Domain: "example.com",
		MainPage: scraper.Page{
			URL:      "https://example.com",
			Type:     models.SourceMainPage,
			Title:    "Example Homes",
			Content:  "Build your dream home in our lakeside community.",
			Metadata: map[string]string{"description": "Lakeside living."},
		},
		SubPages: []scraper.Page{
			{
				URL:     "https://example.com/amenities",
				Type:    models.SourceAmenities,
				Content: "Clubhouse, pool, and twelve miles of walking trails.",
			},
		},
	}
}

func TestNewBuilder_ParsesEmbeddedOverrides(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	for _, industry := range []models.Industry{
		models.IndustryRealEstate,
		models.IndustryHospitality,
		models.IndustrySaaS,
		models.IndustryEcommerce,
		models.IndustryHealthcare,
		models.IndustryGeneric,
	} {
		_, ok := b.overrides[industry]
		assert.True(t, ok, "missing override for %s", industry)
	}
}

func TestBuild_AllStepsRender(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	for step := 1; step <= NumSteps; step++ {
		p, err := b.Build(step, models.IndustryGeneric, testContext(), nil)
		require.NoError(t, err, "step %d", step)
		assert.Contains(t, p, "example.com")
		assert.Contains(t, p, "JSON")
		assert.Contains(t, p, "MAIN PAGE")
		assert.Contains(t, p, "AMENITIES PAGE")
	}
}

func TestBuild_UnknownStep(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	_, err = b.Build(9, models.IndustryGeneric, testContext(), nil)
	require.Error(t, err)
}

func TestBuild_IndustryFocusApplied(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	p, err := b.Build(StepAmenities, models.IndustryRealEstate, testContext(), nil)
	require.NoError(t, err)
	assert.Contains(t, p, "clubhouse")
	assert.Contains(t, p, "community positioning")
}

func TestBuild_UnknownIndustryFallsBackToGeneric(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	p, err := b.Build(StepBrandSynopsis, models.Industry("aerospace"), testContext(), nil)
	require.NoError(t, err)
	assert.Contains(t, p, "without industry-specific assumptions")
}

func TestBuild_RecommendationsEmbedPriorOutputs(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	prior := StepOutputs{
		StepBrandSynopsis:   json.RawMessage(`{"summary": "Lakeside builder."}`),
		StepToneOfVoice:     json.RawMessage(`{"adjectives": ["warm"]}`),
		StepMessagingScores: json.RawMessage(`{"clarity": {"score": 80}}`),
	}

	p, err := b.Build(StepRecommendations, models.IndustryGeneric, testContext(), prior)
	require.NoError(t, err)
	assert.Contains(t, p, "Lakeside builder.")
	assert.Contains(t, p, `"warm"`)
	assert.Contains(t, p, `"score": 80`)
	assert.Contains(t, p, "Your earlier analysis")
}

func TestBuild_EarlyStepsIgnorePriorOutputs(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	prior := StepOutputs{StepBrandSynopsis: json.RawMessage(`{"summary": "x"}`)}
	p, err := b.Build(StepToneOfVoice, models.IndustryGeneric, testContext(), prior)
	require.NoError(t, err)
	assert.NotContains(t, p, "Your earlier analysis")
}

func TestTruncateString_UTF8Safe(t *testing.T) {
	s := strings.Repeat("é", 100) // 2 bytes per rune

	out := truncateString(s, 25)
	assert.LessOrEqual(t, len(out), 25)
	assert.True(t, strings.HasPrefix(s, out))
	for _, r := range out {
		assert.NotEqual(t, '�', r)
	}

	assert.Equal(t, "abc", truncateString("abc", 10))
}

func TestBuild_TruncatesLongContent(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	pctx := testContext()
	pctx.MainPage.Content = strings.Repeat("lakeside living ", 1000)

	p, err := b.Build(StepBrandSynopsis, models.IndustryGeneric, pctx, nil)
	require.NoError(t, err)
	assert.Less(t, len(p), len(pctx.MainPage.Content))
}
