// Package analysis orchestrates one project's full lifecycle: scrape the
// site, fan the eight-step prompt battery out to every provider, persist
// runs and findings, and drive the project to a terminal status.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/ai"
	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/prompt"
	"github.com/brandlens/brandlens/internal/scraper"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

var (
	ErrProjectNotFound     = errors.New("project not found")
	ErrMainPageUnreachable = errors.New("main page unreachable")
	ErrCancelled           = errors.New("analysis cancelled")
)

const progressTTL = 30 * time.Minute

// Service drives the analysis pipeline. Providers are injected; the service
// never constructs clients itself.
type Service struct {
	providers []models.LLMProvider
	scraper   scraper.Scraper
	store     store.Store
	cache     cache.Cache
	prompts   *prompt.Builder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       config.AIConfig

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewService creates the orchestrator.
func NewService(
	providers []models.LLMProvider,
	sc scraper.Scraper,
	st store.Store,
	ca cache.Cache,
	prompts *prompt.Builder,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.AIConfig,
) *Service {
	return &Service{
		providers: providers,
		scraper:   sc,
		store:     st,
		cache:     ca,
		prompts:   prompts,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Trigger creates the project row and dispatches RunAnalysis in a background
// goroutine. Returns immediately without waiting for the analysis.
func (s *Service) Trigger(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.Status = models.ProjectStatusPending
	project.CreatedAt = time.Now().UTC()
	project.UpdatedAt = project.CreatedAt

	if err := s.store.CreateProject(ctx, project); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	go func() {
		if err := s.RunAnalysis(context.Background(), project.ID); err != nil {
			s.logger.Error("analysis failed", "project_id", project.ID, "error", err)
		}
	}()

	return nil
}

// Cancel aborts an in-flight analysis. Returns false when no analysis for
// the project is running.
func (s *Service) Cancel(projectID uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[projectID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// RunAnalysis executes the full pipeline for one project. It always leaves
// the project in a terminal status; only pipeline-fatal errors are returned.
func (s *Service) RunAnalysis(ctx context.Context, projectID uuid.UUID) (err error) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[projectID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, projectID)
		s.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in RunAnalysis", "project_id", projectID, "panic", r)
			s.fail(projectID, fmt.Sprintf("internal error: %v", r))
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return fmt.Errorf("loading project: %w", err)
	}

	run := &pipelineRun{
		service:   s,
		project:   project,
		states:    make(map[models.Provider]models.ProviderState, len(s.providers)),
		stepTotal: len(s.providers) * prompt.NumSteps,
	}
	for _, p := range s.providers {
		run.states[p.Name()] = models.ProviderStateWaiting
	}

	run.setStatus(models.ProjectStatusScraping, "Fetching website content", 10)

	result, err := s.scraper.Scrape(runCtx, project.URL)
	if err != nil {
		s.fail(projectID, fmt.Sprintf("scraping failed: %v", err))
		return fmt.Errorf("%w: %v", ErrMainPageUnreachable, err)
	}
	if result.Error != "" {
		s.fail(projectID, fmt.Sprintf("could not reach %s: %s", project.URL, result.Error))
		return fmt.Errorf("%w: %s", ErrMainPageUnreachable, result.Error)
	}
	if result.Warning != "" {
		s.logger.Warn("partial scrape", "project_id", projectID, "warning", result.Warning)
	}

	if err := s.persistSources(ctx, projectID, result); err != nil {
		s.fail(projectID, fmt.Sprintf("storing scraped pages: %v", err))
		return err
	}

	run.setStatus(models.ProjectStatusAnalyzing,
		fmt.Sprintf("Analyzing with %d AI models", len(s.providers)), 25)

	pctx := prompt.Context{
		Domain:   domainOf(project.URL),
		MainPage: result.MainPage,
		SubPages: result.SubPages,
	}

	var wg sync.WaitGroup
	branchErrs := make([]error, len(s.providers))
	for i, provider := range s.providers {
		wg.Add(1)
		go func(i int, provider models.LLMProvider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic in provider branch",
						"project_id", projectID, "provider", provider.Name(), "panic", r)
					branchErrs[i] = fmt.Errorf("provider panic: %v", r)
					run.setProviderState(provider.Name(), models.ProviderStateFailed)
				}
			}()
			branchErrs[i] = run.runProvider(runCtx, provider, pctx)
		}(i, provider)
	}
	wg.Wait()

	if runCtx.Err() != nil {
		s.fail(projectID, "analysis cancelled")
		if s.metrics != nil {
			s.metrics.ObserveAnalysis("cancelled")
		}
		return ErrCancelled
	}

	for i, branchErr := range branchErrs {
		if branchErr != nil {
			s.logger.Warn("provider branch failed",
				"project_id", projectID,
				"provider", s.providers[i].Name(),
				"error", branchErr)
		}
	}

	run.setStatus(models.ProjectStatusCompleted, "Analysis complete", 100)
	if s.metrics != nil {
		s.metrics.ObserveAnalysis("completed")
	}

	s.logger.Info("analysis completed", "project_id", projectID)
	return nil
}

// fail drives the project to the failed terminal state with a reason a UI
// can display. Best-effort; the pipeline is already unwinding.
func (s *Service) fail(projectID uuid.UUID, reason string) {
	ctx := context.Background()
	_ = s.store.UpdateProjectStatus(ctx, projectID, models.ProjectStatusFailed,
		store.WithProgress(reason, 100))
	_ = s.cache.SetProgress(ctx, &models.ProgressSnapshot{
		ProjectID: projectID,
		Status:    models.ProjectStatusFailed,
		Message:   reason,
		Percent:   100,
		UpdatedAt: time.Now().UTC(),
	}, progressTTL)
	if s.metrics != nil {
		s.metrics.ObserveAnalysis("failed")
	}
}

func (s *Service) persistSources(ctx context.Context, projectID uuid.UUID, result *scraper.Result) error {
	pages := append([]scraper.Page{result.MainPage}, result.SubPages...)
	for _, page := range pages {
		src := &models.Source{
			ID:          uuid.New(),
			ProjectID:   projectID,
			Type:        page.Type,
			URL:         page.URL,
			ContentHash: contentHash(page.Content),
			TextExcerpt: page.Excerpt,
			FullContent: page.Content,
			Metadata:    page.Metadata,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.CreateSource(ctx, src); err != nil {
			return fmt.Errorf("storing source %s: %w", page.URL, err)
		}
		if s.metrics != nil {
			s.metrics.PagesScraped.Inc()
		}
	}
	return nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func domainOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

// pipelineRun carries the mutable state of one RunAnalysis invocation.
type pipelineRun struct {
	service   *Service
	project   *models.Project
	stepTotal int

	mu        sync.Mutex
	states    map[models.Provider]models.ProviderState
	stepsDone int
	status    string
	message   string
	percent   int
}

// runProvider executes the eight steps for one provider, strictly in order.
// The first step error ends the branch; earlier findings remain persisted.
func (r *pipelineRun) runProvider(ctx context.Context, provider models.LLMProvider, pctx prompt.Context) error {
	s := r.service
	name := provider.Name()
	r.setProviderState(name, models.ProviderStateRunning)

	prior := prompt.StepOutputs{}
	for step := 1; step <= prompt.NumSteps; step++ {
		if ctx.Err() != nil {
			r.setProviderState(name, models.ProviderStateFailed)
			return ctx.Err()
		}

		promptText, err := s.prompts.Build(step, r.project.Industry, pctx, prior)
		if err != nil {
			r.setProviderState(name, models.ProviderStateFailed)
			return err
		}

		reqCfg := models.RequestConfig{
			Model:       s.modelFor(name),
			Temperature: float32(s.cfg.Temperature),
			MaxTokens:   s.cfg.MaxTokens,
		}

		result, err := r.callProvider(ctx, provider, promptText, reqCfg)

		llmRun := &models.LlmRun{
			ID:          uuid.New(),
			ProjectID:   r.project.ID,
			Provider:    name,
			Step:        step,
			Model:       reqCfg.Model,
			Temperature: reqCfg.Temperature,
			MaxTokens:   reqCfg.MaxTokens,
			Status:      models.RunStatusCompleted,
			CreatedAt:   time.Now().UTC(),
		}
		if err != nil {
			msg := err.Error()
			llmRun.Status = models.RunStatusFailed
			llmRun.Error = &msg
			if storeErr := s.store.CreateLlmRun(ctx, llmRun); storeErr != nil {
				s.logger.Error("storing failed llm run",
					"project_id", r.project.ID, "provider", name, "error", storeErr)
			}
			r.setProviderState(name, models.ProviderStateFailed)
			return fmt.Errorf("step %d: %w", step, err)
		}

		llmRun.RawResponse = result.Raw
		llmRun.TokensUsed = result.TokensUsed
		llmRun.Cost = result.Cost
		if err := s.store.CreateLlmRun(ctx, llmRun); err != nil {
			r.setProviderState(name, models.ProviderStateFailed)
			return fmt.Errorf("step %d: storing llm run: %w", step, err)
		}

		findings, err := decodeFindings(step, result.Content)
		if err != nil {
			// Well-formed but unexpectedly shaped output yields no findings
			// for this step; the run record keeps the raw response.
			s.logger.Warn("unexpected response shape",
				"project_id", r.project.ID, "provider", name, "step", step, "error", err)
		}
		for _, f := range findings {
			f.ID = uuid.New()
			f.ProjectID = r.project.ID
			f.LlmRunID = llmRun.ID
			f.Provider = name
			f.EvidenceRef = promptText
			f.CreatedAt = time.Now().UTC()
			if err := s.store.CreateFinding(ctx, &f); err != nil {
				r.setProviderState(name, models.ProviderStateFailed)
				return fmt.Errorf("step %d: storing finding: %w", step, err)
			}
		}

		prior[step] = result.Content
		r.stepDone(name, step)
	}

	r.setProviderState(name, models.ProviderStateCompleted)
	return nil
}

func (r *pipelineRun) callProvider(ctx context.Context, provider models.LLMProvider, promptText string, reqCfg models.RequestConfig) (*models.LLMResult, error) {
	s := r.service
	name := provider.Name()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	result, err := ai.WithRetry(callCtx, s.cfg.RetryAttempts, s.cfg.RetryDelay,
		func(attempt int, attemptErr error) {
			s.logger.Warn("provider call retrying",
				"project_id", r.project.ID,
				"provider", name,
				"attempt", attempt,
				"error", attemptErr)
		},
		func(ctx context.Context) (*models.LLMResult, error) {
			return provider.Analyze(ctx, promptText, reqCfg)
		})

	if s.metrics != nil {
		tokens, cost := 0, 0.0
		if result != nil {
			tokens, cost = result.TokensUsed, result.Cost
		}
		s.metrics.ObserveProviderCall(string(name), err, time.Since(start), tokens, cost)
	}
	return result, err
}

func (s *Service) modelFor(provider models.Provider) string {
	switch provider {
	case models.ProviderOpenAI:
		return s.cfg.OpenAI.Model
	case models.ProviderAnthropic:
		return s.cfg.Anthropic.Model
	case models.ProviderGoogle:
		return s.cfg.Google.Model
	default:
		return ""
	}
}

// setStatus transitions the project and publishes a progress snapshot.
func (r *pipelineRun) setStatus(status, message string, percent int) {
	ctx := context.Background()
	s := r.service

	if err := s.store.UpdateProjectStatus(ctx, r.project.ID, status,
		store.WithProgress(message, percent)); err != nil {
		s.logger.Error("updating project status",
			"project_id", r.project.ID, "status", status, "error", err)
	}

	r.mu.Lock()
	r.status = status
	r.message = message
	if percent > r.percent {
		r.percent = percent
	}
	r.mu.Unlock()

	r.publishSnapshot()
}

func (r *pipelineRun) setProviderState(provider models.Provider, state models.ProviderState) {
	r.mu.Lock()
	r.states[provider] = state
	r.mu.Unlock()
	r.publishSnapshot()
}

// stepDone advances the shared progress counter after one completed step.
func (r *pipelineRun) stepDone(provider models.Provider, step int) {
	r.mu.Lock()
	r.stepsDone++
	percent := 25 + 70*r.stepsDone/r.stepTotal
	if percent > r.percent {
		r.percent = percent
	}
	r.message = fmt.Sprintf("%s finished step %d of %d", provider, step, prompt.NumSteps)
	message := r.message
	r.mu.Unlock()

	ctx := context.Background()
	if err := r.service.store.UpdateProjectProgress(ctx, r.project.ID, message, percent); err != nil {
		r.service.logger.Error("updating progress",
			"project_id", r.project.ID, "error", err)
	}
	r.publishSnapshot()
}

func (r *pipelineRun) publishSnapshot() {
	r.mu.Lock()
	snapshot := &models.ProgressSnapshot{
		ProjectID: r.project.ID,
		Status:    r.status,
		Message:   r.message,
		Percent:   r.percent,
		Providers: make(map[models.Provider]models.ProviderState, len(r.states)),
		UpdatedAt: time.Now().UTC(),
	}
	for p, st := range r.states {
		snapshot.Providers[p] = st
	}
	r.mu.Unlock()

	if err := r.service.cache.SetProgress(context.Background(), snapshot, progressTTL); err != nil {
		r.service.logger.Warn("caching progress snapshot",
			"project_id", r.project.ID, "error", err)
	}
}

// decodeFindings explodes one step's JSON content into typed finding rows.
// Array-shaped payloads become one finding per element.
func decodeFindings(step int, content json.RawMessage) ([]models.Finding, error) {
	switch step {
	case prompt.StepBrandSynopsis:
		return singleFinding(models.FindingBrandSynopsis, content), nil

	case prompt.StepPositioningPillars:
		return explode[models.PositioningPillar](content, "pillars", models.FindingPositioningPillar)

	case prompt.StepToneOfVoice:
		return singleFinding(models.FindingToneOfVoice, content), nil

	case prompt.StepBuyerSegments:
		return explode[models.BuyerSegment](content, "segments", models.FindingBuyerSegment)

	case prompt.StepAmenities:
		return explode[models.AmenityClaim](content, "amenities", models.FindingAmenityClaim)

	case prompt.StepTrustSignals:
		return explode[models.TrustSignal](content, "trust_signals", models.FindingTrustSignal)

	case prompt.StepMessagingScores:
		return scoreFindings(content)

	case prompt.StepRecommendations:
		return explode[models.Recommendation](content, "recommendations", models.FindingRecommendation)

	default:
		return nil, fmt.Errorf("unknown analysis step %d", step)
	}
}

func singleFinding(kind models.FindingKind, content json.RawMessage) []models.Finding {
	return []models.Finding{{Kind: kind, Value: content}}
}

// explode unwraps {"<field>": [...]} and emits one finding per element.
// Each element is validated against its typed payload schema.
func explode[T any](content json.RawMessage, field string, kind models.FindingKind) ([]models.Finding, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s envelope: %w", field, err)
	}

	raw, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", field)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", field, err)
	}

	findings := make([]models.Finding, 0, len(elements))
	for _, element := range elements {
		var typed T
		if err := json.Unmarshal(element, &typed); err != nil {
			return findings, fmt.Errorf("decoding %s element: %w", field, err)
		}
		findings = append(findings, models.Finding{Kind: kind, Value: element})
	}
	return findings, nil
}

// scoreFindings splits the four-dimension score object into one finding per
// dimension. Missing dimensions are skipped; the assembler fills defaults.
func scoreFindings(content json.RawMessage) ([]models.Finding, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, fmt.Errorf("decoding scores envelope: %w", err)
	}

	var findings []models.Finding
	for _, kind := range models.ScoreKinds {
		dimension := strings.TrimSuffix(string(kind), "_score")
		raw, ok := envelope[dimension]
		if !ok {
			continue
		}
		var score models.MessagingScore
		if err := json.Unmarshal(raw, &score); err != nil {
			return findings, fmt.Errorf("decoding %s score: %w", dimension, err)
		}
		findings = append(findings, models.Finding{Kind: kind, Value: raw})
	}
	return findings, nil
}
