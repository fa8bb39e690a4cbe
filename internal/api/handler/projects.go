package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/api/middleware"
	"github.com/brandlens/brandlens/internal/api/response"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

// AnalysisService starts and cancels analysis pipelines.
type AnalysisService interface {
	Trigger(ctx context.Context, project *models.Project) error
	Cancel(projectID uuid.UUID) bool
}

// ProjectHandler serves project lifecycle endpoints.
type ProjectHandler struct {
	store    store.Store
	analysis AnalysisService
	logger   *slog.Logger
}

func NewProjectHandler(st store.Store, svc AnalysisService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{store: st, analysis: svc, logger: logger}
}

type createProjectRequest struct {
	URL      string `json:"url"`
	Industry string `json:"industry"`
	Email    string `json:"email"`
}

// Create validates the request, persists a pending project, and launches
// the analysis in the background. Responds 202 immediately.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	if msg := validateCreateProject(&req); msg != "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return
	}

	project := &models.Project{
		URL:      req.URL,
		Industry: models.Industry(req.Industry),
		Email:    req.Email,
	}
	if prefix, ok := middleware.KeyPrefix(r); ok {
		project.CreatedBy = prefix
	}

	if err := h.analysis.Trigger(r.Context(), project); err != nil {
		h.logger.Error("failed to create project", "error", err, "url", req.URL)
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to create project", nil)
		return
	}

	h.logger.Info("project created",
		"project_id", project.ID, "url", project.URL, "industry", project.Industry)
	response.Accepted(w, project)
}

// Get returns a project by ID.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	response.JSON(w, project)
}

// Cancel aborts a running analysis. Responds 409 when nothing is running.
func (h *ProjectHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid project ID", nil)
		return
	}

	if !h.analysis.Cancel(id) {
		response.Error(w, http.StatusConflict,
			"NOT_RUNNING", "No analysis is running for this project", nil)
		return
	}

	h.logger.Info("analysis cancelled", "project_id", id)
	response.Accepted(w, map[string]any{"project_id": id, "cancelled": true})
}

func validateCreateProject(req *createProjectRequest) string {
	if req.URL == "" {
		return "url is required"
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "url must be a valid http or https URL"
	}
	if req.Industry == "" {
		req.Industry = string(models.IndustryGeneric)
	}
	if !models.ValidIndustry(req.Industry) {
		return "unknown industry"
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return "email is not a valid address"
		}
	}
	return ""
}
