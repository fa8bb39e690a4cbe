package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/api/response"
	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/prompt"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

// ProgressHandler serves live analysis progress. It prefers the cached
// snapshot written by the pipeline and falls back to rebuilding one from
// the store when the cache has expired or the analysis is long finished.
type ProgressHandler struct {
	store  store.Store
	cache  cache.Cache
	logger *slog.Logger
}

func NewProgressHandler(st store.Store, c cache.Cache, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{store: st, cache: c, logger: logger}
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid project ID", nil)
		return
	}

	snapshot, found, err := h.cache.GetProgress(r.Context(), id)
	if err != nil {
		h.logger.Warn("progress cache read failed", "error", err, "project_id", id)
	}
	if found {
		response.JSON(w, snapshot)
		return
	}

	snapshot, err = h.rebuildSnapshot(r, id)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Project not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to rebuild progress", "error", err, "project_id", id)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to load progress", nil)
		return
	}

	response.JSON(w, snapshot)
}

func (h *ProgressHandler) rebuildSnapshot(r *http.Request, id uuid.UUID) (*models.ProgressSnapshot, error) {
	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		return nil, err
	}

	runs, err := h.store.ListLlmRuns(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return &models.ProgressSnapshot{
		ProjectID: project.ID,
		Status:    project.Status,
		Message:   project.ProgressMessage,
		Percent:   project.ProgressPercent,
		Providers: deriveProviderStates(project.Status, runs),
		UpdatedAt: project.UpdatedAt,
	}, nil
}

// deriveProviderStates reconstructs per-provider branch states from the
// persisted run rows. A branch with a failed run is failed, one with all
// steps recorded is completed, one with any run is running, otherwise it
// is still waiting (or failed, if the whole project failed).
func deriveProviderStates(projectStatus string, runs []*models.LlmRun) map[models.Provider]models.ProviderState {
	type branch struct {
		failed bool
		steps  map[int]bool
	}
	branches := make(map[models.Provider]*branch)
	for _, run := range runs {
		b := branches[run.Provider]
		if b == nil {
			b = &branch{steps: make(map[int]bool)}
			branches[run.Provider] = b
		}
		if run.Status == models.RunStatusFailed {
			b.failed = true
		} else {
			b.steps[run.Step] = true
		}
	}

	states := make(map[models.Provider]models.ProviderState, len(models.AllProviders))
	for _, p := range models.AllProviders {
		b := branches[p]
		switch {
		case b == nil && projectStatus == models.ProjectStatusFailed:
			states[p] = models.ProviderStateFailed
		case b == nil:
			states[p] = models.ProviderStateWaiting
		case b.failed:
			states[p] = models.ProviderStateFailed
		case len(b.steps) >= prompt.NumSteps:
			states[p] = models.ProviderStateCompleted
		default:
			states[p] = models.ProviderStateRunning
		}
	}
	return states
}
