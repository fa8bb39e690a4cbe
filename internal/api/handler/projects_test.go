package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func projectRouter(h *ProjectHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/projects", h.Create)
	r.Get("/projects/{projectID}", h.Get)
	r.Post("/projects/{projectID}/cancel", h.Cancel)
	return r
}

func TestCreateProject_Accepted(t *testing.T) {
	svc := &mockAnalysis{}
	h := NewProjectHandler(newMockStore(), svc, testLogger())

	body := `{"url": "https://lakeside-homes.example", "industry": "real_estate", "email": "owner@example.com"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(body))

	projectRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, svc.triggered, 1)
	created := svc.triggered[0]
	assert.Equal(t, "https://lakeside-homes.example", created.URL)
	assert.Equal(t, models.IndustryRealEstate, created.Industry)
	assert.NotEqual(t, uuid.Nil, created.ID)

	var envelope struct {
		Data models.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, created.ID, envelope.Data.ID)
	assert.Equal(t, models.ProjectStatusPending, envelope.Data.Status)
}

func TestCreateProject_DefaultsToGenericIndustry(t *testing.T) {
	svc := &mockAnalysis{}
	h := NewProjectHandler(newMockStore(), svc, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects",
		strings.NewReader(`{"url": "https://example.com"}`))

	projectRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, svc.triggered, 1)
	assert.Equal(t, models.IndustryGeneric, svc.triggered[0].Industry)
}

func TestCreateProject_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{"industry": "saas"}`},
		{"relative url", `{"url": "/no-scheme"}`},
		{"ftp url", `{"url": "ftp://example.com"}`},
		{"unknown industry", `{"url": "https://example.com", "industry": "finance"}`},
		{"bad email", `{"url": "https://example.com", "email": "not-an-email"}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAnalysis{}
			h := NewProjectHandler(newMockStore(), svc, testLogger())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(tt.body))

			projectRouter(h).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.triggered)
		})
	}
}

func TestGetProject(t *testing.T) {
	st := newMockStore()
	project := &models.Project{ID: uuid.New(), URL: "https://example.com", Status: models.ProjectStatusAnalyzing}
	st.projects[project.ID] = project
	h := NewProjectHandler(st, &mockAnalysis{}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects/"+project.ID.String(), nil)

	projectRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, project.ID, envelope.Data.ID)
	assert.Equal(t, models.ProjectStatusAnalyzing, envelope.Data.Status)
}

func TestGetProject_NotFound(t *testing.T) {
	h := NewProjectHandler(newMockStore(), &mockAnalysis{}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects/"+uuid.NewString(), nil)

	projectRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProject_BadID(t *testing.T) {
	h := NewProjectHandler(newMockStore(), &mockAnalysis{}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects/not-a-uuid", nil)

	projectRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelProject(t *testing.T) {
	id := uuid.New()
	svc := &mockAnalysis{cancelable: map[uuid.UUID]bool{id: true}}
	h := NewProjectHandler(newMockStore(), svc, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+id.String()+"/cancel", nil)

	projectRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCancelProject_NotRunning(t *testing.T) {
	svc := &mockAnalysis{cancelable: map[uuid.UUID]bool{}}
	h := NewProjectHandler(newMockStore(), svc, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+uuid.NewString()+"/cancel", nil)

	projectRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
