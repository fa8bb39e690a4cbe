package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandlens/brandlens/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Projects ---

func (s *PostgresStore) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, url, industry, status, progress_message, progress_percent, created_by, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.URL, p.Industry, p.Status, p.ProgressMessage, p.ProgressPercent,
		p.CreatedBy, p.Email, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, industry, status, progress_message, progress_percent, created_by, email, created_at, updated_at
		 FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.URL, &p.Industry, &p.Status, &p.ProgressMessage, &p.ProgressPercent,
		&p.CreatedBy, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// validTransitions encodes the monotonic project lifecycle. failed is reachable
// from every non-terminal state.
var validTransitions = map[string][]string{
	models.ProjectStatusPending:   {models.ProjectStatusScraping, models.ProjectStatusFailed},
	models.ProjectStatusScraping:  {models.ProjectStatusAnalyzing, models.ProjectStatusFailed},
	models.ProjectStatusAnalyzing: {models.ProjectStatusCompleted, models.ProjectStatusFailed},
}

func (s *PostgresStore) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, opts ...ProjectUpdateOption) error {
	params := &projectUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM projects WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get project status: %w", err)
	}

	allowed := validTransitions[currentStatus]
	valid := false
	for _, a := range allowed {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid project status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE projects SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if params.ProgressMessage != nil {
		query += fmt.Sprintf(", progress_message = $%d", argIdx)
		args = append(args, *params.ProgressMessage)
		argIdx++
	}
	if params.ProgressPercent != nil {
		query += fmt.Sprintf(", progress_percent = $%d", argIdx)
		args = append(args, *params.ProgressPercent)
		argIdx++
	}

	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProjectProgress(ctx context.Context, id uuid.UUID, message string, percent int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET progress_message = $2, progress_percent = GREATEST(progress_percent, $3), updated_at = $4
		 WHERE id = $1`,
		id, message, percent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update project progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Sources ---

func (s *PostgresStore) CreateSource(ctx context.Context, src *models.Source) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sources (id, project_id, type, url, content_hash, text_excerpt, full_content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		src.ID, src.ProjectID, src.Type, src.URL, src.ContentHash,
		src.TextExcerpt, src.FullContent, src.Metadata, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context, projectID uuid.UUID) ([]*models.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, type, url, content_hash, text_excerpt, full_content, metadata, created_at
		 FROM sources WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.ProjectID, &src.Type, &src.URL, &src.ContentHash,
			&src.TextExcerpt, &src.FullContent, &src.Metadata, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// --- LLM runs ---

func (s *PostgresStore) CreateLlmRun(ctx context.Context, run *models.LlmRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO llm_runs (id, project_id, provider, step, model, temperature, max_tokens, raw_response, tokens_used, cost, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.ProjectID, run.Provider, run.Step, run.Model, run.Temperature,
		run.MaxTokens, run.RawResponse, run.TokensUsed, run.Cost, run.Status,
		run.Error, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("create llm run: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLlmRuns(ctx context.Context, projectID uuid.UUID) ([]*models.LlmRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, provider, step, model, temperature, max_tokens, raw_response, tokens_used, cost, status, error, created_at
		 FROM llm_runs WHERE project_id = $1 ORDER BY provider, step`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list llm runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.LlmRun
	for rows.Next() {
		var run models.LlmRun
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Provider, &run.Step, &run.Model,
			&run.Temperature, &run.MaxTokens, &run.RawResponse, &run.TokensUsed,
			&run.Cost, &run.Status, &run.Error, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan llm run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// --- Findings ---

func (s *PostgresStore) CreateFinding(ctx context.Context, f *models.Finding) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO findings (id, project_id, llm_run_id, provider, kind, value, evidence_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.ProjectID, f.LlmRunID, f.Provider, f.Kind, f.Value, f.EvidenceRef, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create finding: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFindings(ctx context.Context, projectID uuid.UUID) ([]*models.Finding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, llm_run_id, provider, kind, value, evidence_ref, created_at
		 FROM findings WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var findings []*models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.LlmRunID, &f.Provider, &f.Kind,
			&f.Value, &f.EvidenceRef, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, &f)
	}
	return findings, rows.Err()
}

// --- Reports ---

func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, project_id, url_token, is_public, version, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.ProjectID, r.URLToken, r.IsPublic, r.Version, r.Data, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReportByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Report, error) {
	var r models.Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, url_token, is_public, version, data, created_at
		 FROM reports WHERE project_id = $1 ORDER BY version DESC LIMIT 1`, projectID,
	).Scan(&r.ID, &r.ProjectID, &r.URLToken, &r.IsPublic, &r.Version, &r.Data, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report by project: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) GetReportByToken(ctx context.Context, token string) (*models.Report, error) {
	var r models.Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, url_token, is_public, version, data, created_at
		 FROM reports WHERE url_token = $1`, token,
	).Scan(&r.ID, &r.ProjectID, &r.URLToken, &r.IsPublic, &r.Version, &r.Data, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report by token: %w", err)
	}
	return &r, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
