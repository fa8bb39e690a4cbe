package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/api/response"
	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

const publicReportTTL = 10 * time.Minute

// Assembler builds (or returns the frozen) report for a project.
type Assembler interface {
	Assemble(ctx context.Context, projectID uuid.UUID) (*models.Report, error)
}

// ReportHandler serves report assembly and public report reads.
type ReportHandler struct {
	store     store.Store
	cache     cache.Cache
	assembler Assembler
	logger    *slog.Logger
}

func NewReportHandler(st store.Store, c cache.Cache, a Assembler, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{store: st, cache: c, assembler: a, logger: logger}
}

// GetForProject assembles the report for a completed project, or returns
// the existing one. Requires the analysis to have finished.
func (h *ReportHandler) GetForProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid project ID", nil)
		return
	}

	project, err := h.store.GetProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Project not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load project", "error", err, "project_id", id)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to load project", nil)
		return
	}

	if project.Status != models.ProjectStatusCompleted {
		response.Error(w, http.StatusConflict, "ANALYSIS_NOT_COMPLETE",
			"Report is only available once the analysis has completed",
			map[string]any{"status": project.Status})
		return
	}

	report, err := h.assembler.Assemble(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to assemble report", "error", err, "project_id", id)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to assemble report", nil)
		return
	}

	response.JSON(w, report)
}

// GetByToken serves a public report by its share token. No authentication;
// unknown tokens are indistinguishable from never-issued ones.
func (h *ReportHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		response.NotFound(w, "Report not found")
		return
	}

	key := cache.ReportKey(token)
	if cached, found, err := h.cache.Get(r.Context(), key); err == nil && found {
		var report models.Report
		if json.Unmarshal(cached, &report) == nil {
			response.JSON(w, &report)
			return
		}
	}

	report, err := h.store.GetReportByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Report not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load report", "error", err)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to load report", nil)
		return
	}

	if payload, err := json.Marshal(report); err == nil {
		if err := h.cache.Set(r.Context(), key, payload, publicReportTTL); err != nil {
			h.logger.Warn("report cache write failed", "error", err)
		}
	}

	response.JSON(w, report)
}
