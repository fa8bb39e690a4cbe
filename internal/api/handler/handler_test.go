package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

// mockStore is an in-memory Store for handler tests.
type mockStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
	runs     []*models.LlmRun
	reports  map[uuid.UUID]*models.Report
	keys     map[uuid.UUID]*models.APIKey

	pingErr      error
	getReportErr error
	createKeyErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		projects: make(map[uuid.UUID]*models.Project),
		reports:  make(map[uuid.UUID]*models.Report),
		keys:     make(map[uuid.UUID]*models.APIKey),
	}
}

func (s *mockStore) Ping(_ context.Context) error { return s.pingErr }

func (s *mockStore) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *mockStore) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockStore) UpdateProjectStatus(_ context.Context, id uuid.UUID, status string, opts ...store.ProjectUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok {
		p.Status = status
	}
	return nil
}

func (s *mockStore) UpdateProjectProgress(_ context.Context, id uuid.UUID, message string, percent int) error {
	return nil
}

func (s *mockStore) CreateSource(_ context.Context, _ *models.Source) error { return nil }

func (s *mockStore) ListSources(_ context.Context, _ uuid.UUID) ([]*models.Source, error) {
	return nil, nil
}

func (s *mockStore) CreateLlmRun(_ context.Context, run *models.LlmRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *mockStore) ListLlmRuns(_ context.Context, projectID uuid.UUID) ([]*models.LlmRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LlmRun
	for _, run := range s.runs {
		if run.ProjectID == projectID {
			out = append(out, run)
		}
	}
	return out, nil
}

func (s *mockStore) CreateFinding(_ context.Context, _ *models.Finding) error { return nil }

func (s *mockStore) ListFindings(_ context.Context, _ uuid.UUID) ([]*models.Finding, error) {
	return nil, nil
}

func (s *mockStore) CreateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ProjectID] = r
	return nil
}

func (s *mockStore) GetReportByProjectID(_ context.Context, projectID uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[projectID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (s *mockStore) GetReportByToken(_ context.Context, token string) (*models.Report, error) {
	if s.getReportErr != nil {
		return nil, s.getReportErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.URLToken == token {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *mockStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (s *mockStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if s.createKeyErr != nil {
		return s.createKeyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *mockStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *mockStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	k.DeletedAt = &now
	return nil
}

var _ store.Store = (*mockStore)(nil)

// mockCache is an in-memory Cache for handler tests.
type mockCache struct {
	mu        sync.Mutex
	entries   map[string][]byte
	snapshots map[uuid.UUID]*models.ProgressSnapshot
	pingErr   error
}

func newMockCache() *mockCache {
	return &mockCache{
		entries:   make(map[string][]byte),
		snapshots: make(map[uuid.UUID]*models.ProgressSnapshot),
	}
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mockCache) Ping(_ context.Context) error { return c.pingErr }

func (c *mockCache) SetProgress(_ context.Context, snapshot *models.ProgressSnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[snapshot.ProjectID] = snapshot
	return nil
}

func (c *mockCache) GetProgress(_ context.Context, projectID uuid.UUID) (*models.ProgressSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snapshots[projectID]
	return s, ok, nil
}

func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// mockAnalysis records Trigger and Cancel calls.
type mockAnalysis struct {
	mu         sync.Mutex
	triggered  []*models.Project
	triggerErr error
	cancelable map[uuid.UUID]bool
}

func (m *mockAnalysis) Trigger(_ context.Context, project *models.Project) error {
	if m.triggerErr != nil {
		return m.triggerErr
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.Status = models.ProjectStatusPending
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, project)
	return nil
}

func (m *mockAnalysis) Cancel(projectID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelable[projectID]
}

// mockAssembler returns a fixed report or error.
type mockAssembler struct {
	report *models.Report
	err    error
	calls  int
}

func (m *mockAssembler) Assemble(_ context.Context, _ uuid.UUID) (*models.Report, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}
