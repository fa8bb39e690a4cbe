package store

import (
	"context"
	"errors"

	"github.com/brandlens/brandlens/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, opts ...ProjectUpdateOption) error
	UpdateProjectProgress(ctx context.Context, id uuid.UUID, message string, percent int) error

	CreateSource(ctx context.Context, s *models.Source) error
	ListSources(ctx context.Context, projectID uuid.UUID) ([]*models.Source, error)

	CreateLlmRun(ctx context.Context, run *models.LlmRun) error
	ListLlmRuns(ctx context.Context, projectID uuid.UUID) ([]*models.LlmRun, error)

	CreateFinding(ctx context.Context, f *models.Finding) error
	ListFindings(ctx context.Context, projectID uuid.UUID) ([]*models.Finding, error)

	CreateReport(ctx context.Context, r *models.Report) error
	GetReportByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Report, error)
	GetReportByToken(ctx context.Context, token string) (*models.Report, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type projectUpdateParams struct {
	ProgressMessage *string
	ProgressPercent *int
}

type ProjectUpdateOption func(*projectUpdateParams)

// WithProgress attaches a progress message and percent to a status update.
func WithProgress(message string, percent int) ProjectUpdateOption {
	return func(p *projectUpdateParams) {
		p.ProgressMessage = &message
		p.ProgressPercent = &percent
	}
}
