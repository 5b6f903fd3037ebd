package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/mrz1836/docgen/internal/clock"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed schema.sql
var schemaDDL string

// SQLStore implements Store on top of sqlx. Queries are written with "?"
// placeholders and rebound for the connection's dialect.
type SQLStore struct {
	db    *sqlx.DB
	clock clock.Clock
}

// Compile-time check that SQLStore implements Store.
var _ Store = (*SQLStore)(nil)

// Open connects to the database named by driver and dsn and applies the schema.
// For sqlite, dsn may be a plain file path; pragmas for foreign keys and a
// busy timeout are added automatically.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, docerrors.Wrap(docerrors.ErrEmptyValue, "database dsn")
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sqlx.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sqlx.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", docerrors.ErrConfigInvalid, driver)
	}
	if err != nil {
		return nil, persistErr("open database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, persistErr("ping database", err)
	}

	s := NewSQLStore(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection. The schema is not applied.
func NewSQLStore(db *sqlx.DB, opts ...Option) *SQLStore {
	return &SQLStore{db: db, clock: applyOptions(opts).clock}
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn)
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaDDL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return persistErr("apply schema", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ===================
// Documents
// ===================

type documentRow struct {
	ProjectID string `db:"project_id"`
	Kind      string `db:"kind"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r documentRow) toDomain() *domain.Document {
	return &domain.Document{
		ProjectID: r.ProjectID,
		Kind:      domain.DocumentKind(r.Kind),
		Content:   r.Content,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

// SaveDocument upserts the document for (projectID, kind).
func (s *SQLStore) SaveDocument(ctx context.Context, projectID string, kind domain.DocumentKind, content string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown document kind %q", docerrors.ErrInvalidArgument, kind)
	}
	now := formatTime(s.clock.Now())
	query := s.db.Rebind(`INSERT INTO documents (project_id, kind, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (project_id, kind) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, projectID, string(kind), content, now, now); err != nil {
		return persistErr("save document "+string(kind), err)
	}
	return nil
}

// GetDocument returns the document of the given kind.
func (s *SQLStore) GetDocument(ctx context.Context, projectID string, kind domain.DocumentKind) (*domain.Document, error) {
	var row documentRow
	query := s.db.Rebind(`SELECT project_id, kind, content, created_at, updated_at FROM documents WHERE project_id = ? AND kind = ?`)
	if err := s.db.GetContext(ctx, &row, query, projectID, string(kind)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docerrors.Wrapf(docerrors.ErrDocumentNotFound, "%s for project %s", kind, projectID)
		}
		return nil, persistErr("get document "+string(kind), err)
	}
	return row.toDomain(), nil
}

// ListDocuments returns the project's documents ordered by kind.
func (s *SQLStore) ListDocuments(ctx context.Context, projectID string) ([]*domain.Document, error) {
	var rows []documentRow
	query := s.db.Rebind(`SELECT project_id, kind, content, created_at, updated_at FROM documents WHERE project_id = ? ORDER BY kind`)
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, persistErr("list documents", err)
	}
	docs := make([]*domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDomain())
	}
	return docs, nil
}

// ===================
// Projects
// ===================

type projectRow struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	Technologies  string `db:"technologies"`
	Status        string `db:"status"`
	StatusReason  string `db:"status_reason"`
	Progress      int    `db:"progress"`
	RepositoryURL string `db:"repository_url"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

func (r projectRow) toDomain() (*domain.Project, error) {
	var techs []string
	if r.Technologies != "" {
		if err := json.Unmarshal([]byte(r.Technologies), &techs); err != nil {
			return nil, persistErr("decode technologies for project "+r.ID, err)
		}
	}
	return &domain.Project{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		Description:   r.Description,
		Technologies:  techs,
		Status:        domain.ProjectStatus(r.Status),
		StatusReason:  r.StatusReason,
		Progress:      r.Progress,
		RepositoryURL: r.RepositoryURL,
		CreatedAt:     parseTime(r.CreatedAt),
		UpdatedAt:     parseTime(r.UpdatedAt),
	}, nil
}

const projectColumns = `id, user_id, name, description, technologies, status, status_reason, progress, repository_url, created_at, updated_at`

// CreateProject inserts a new project.
func (s *SQLStore) CreateProject(ctx context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "project id")
	}
	techs := project.Technologies
	if techs == nil {
		techs = []string{}
	}
	techJSON, err := json.Marshal(techs)
	if err != nil {
		return persistErr("encode technologies", err)
	}
	created := project.CreatedAt
	if created.IsZero() {
		created = s.clock.Now()
	}
	updated := project.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	status := project.Status
	if status == "" {
		status = domain.ProjectStatusPending
	}

	query := s.db.Rebind(`INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		project.ID, project.UserID, project.Name, project.Description, string(techJSON),
		string(status), project.StatusReason, project.Progress, project.RepositoryURL,
		formatTime(created), formatTime(updated))
	if err != nil {
		return persistErr("create project "+project.ID, err)
	}
	return nil
}

// GetProject returns the project or ErrProjectNotFound.
func (s *SQLStore) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var row projectRow
	query := s.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
		}
		return nil, persistErr("get project "+projectID, err)
	}
	return row.toDomain()
}

// ListProjects returns all projects, newest first.
func (s *SQLStore) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`); err != nil {
		return nil, persistErr("list projects", err)
	}
	projects := make([]*domain.Project, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// GetProjectOwner returns the owning user id.
func (s *SQLStore) GetProjectOwner(ctx context.Context, projectID string) (string, error) {
	return s.projectColumn(ctx, projectID, "user_id")
}

// GetProjectName returns the project name.
func (s *SQLStore) GetProjectName(ctx context.Context, projectID string) (string, error) {
	return s.projectColumn(ctx, projectID, "name")
}

// projectColumn reads a single text column. column is never user input.
func (s *SQLStore) projectColumn(ctx context.Context, projectID, column string) (string, error) {
	var value string
	query := s.db.Rebind(`SELECT ` + column + ` FROM projects WHERE id = ?`)
	if err := s.db.GetContext(ctx, &value, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
		}
		return "", persistErr("get project "+column, err)
	}
	return value, nil
}

// UpdateProjectStatus sets status and reason unconditionally.
func (s *SQLStore) UpdateProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus, reason string) error {
	return s.updateProject(ctx, projectID, "update project status",
		`UPDATE projects SET status = ?, status_reason = ?, updated_at = ? WHERE id = ?`,
		string(status), reason, formatTime(s.clock.Now()), projectID)
}

// SetRepositoryURL records the scaffolded repository location.
func (s *SQLStore) SetRepositoryURL(ctx context.Context, projectID, url string) error {
	return s.updateProject(ctx, projectID, "set repository url",
		`UPDATE projects SET repository_url = ?, updated_at = ? WHERE id = ?`,
		url, formatTime(s.clock.Now()), projectID)
}

// SetProgress records the generation progress percentage.
func (s *SQLStore) SetProgress(ctx context.Context, projectID string, progress int) error {
	return s.updateProject(ctx, projectID, "set progress",
		`UPDATE projects SET progress = ?, updated_at = ? WHERE id = ?`,
		clampProgress(progress), formatTime(s.clock.Now()), projectID)
}

func (s *SQLStore) updateProject(ctx context.Context, projectID, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return persistErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
	}
	return nil
}

// CompareAndSwapProjectStatus performs a conditional status update in a
// single statement so concurrent callers cannot both win.
func (s *SQLStore) CompareAndSwapProjectStatus(ctx context.Context, projectID string, from []domain.ProjectStatus, to domain.ProjectStatus) (bool, error) {
	if len(from) == 0 {
		return false, docerrors.Wrap(docerrors.ErrInvalidArgument, "compare-and-swap needs at least one source status")
	}
	fromValues := make([]string, len(from))
	for i, st := range from {
		fromValues[i] = string(st)
	}

	query, args, err := sqlx.In(
		`UPDATE projects SET status = ?, status_reason = '', updated_at = ? WHERE id = ? AND status IN (?)`,
		string(to), formatTime(s.clock.Now()), projectID, fromValues)
	if err != nil {
		return false, persistErr("build compare-and-swap", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, persistErr("compare-and-swap project status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("compare-and-swap project status", err)
	}
	if n > 0 {
		return true, nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), projectID); err != nil {
		return false, persistErr("check project", err)
	}
	if count == 0 {
		return false, docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
	}
	return false, nil
}

// ===================
// Jobs
// ===================

// CreateJob inserts a new job. The full record is stored as JSON next to
// the indexed columns.
func (s *SQLStore) CreateJob(ctx context.Context, job *domain.GenerationJob) error {
	if job == nil || job.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return persistErr("encode job", err)
	}
	query := s.db.Rebind(`INSERT INTO generation_jobs (id, project_id, status, cancel_requested, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, job.ID, job.ProjectID, string(job.Status), boolInt(job.CancelRequested),
		string(data), formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		return persistErr("create job "+job.ID, err)
	}
	return nil
}

type jobRow struct {
	CancelRequested int    `db:"cancel_requested"`
	Data            string `db:"data"`
}

// GetJob returns the job or ErrJobNotFound.
func (s *SQLStore) GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	var row jobRow
	query := s.db.Rebind(`SELECT cancel_requested, data FROM generation_jobs WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", jobID)
		}
		return nil, persistErr("get job "+jobID, err)
	}
	return row.decode()
}

// UpdateJob replaces the stored job. The cancel_requested column is left alone.
func (s *SQLStore) UpdateJob(ctx context.Context, job *domain.GenerationJob) error {
	if job == nil || job.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return persistErr("encode job", err)
	}
	query := s.db.Rebind(`UPDATE generation_jobs SET status = ?, data = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, string(job.Status), string(data), formatTime(job.UpdatedAt), job.ID)
	if err != nil {
		return persistErr("update job "+job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("update job "+job.ID, err)
	}
	if n == 0 {
		return docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", job.ID)
	}
	return nil
}

// CompareAndSwapJob replaces the job only if its stored status equals from.
func (s *SQLStore) CompareAndSwapJob(ctx context.Context, job *domain.GenerationJob, from domain.JobStatus) (bool, error) {
	if job == nil || job.ID == "" {
		return false, docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return false, persistErr("encode job", err)
	}
	query := s.db.Rebind(`UPDATE generation_jobs SET status = ?, cancel_requested = ?, data = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := s.db.ExecContext(ctx, query, string(job.Status), boolInt(job.CancelRequested), string(data),
		formatTime(job.UpdatedAt), job.ID, string(from))
	if err != nil {
		return false, persistErr("compare-and-swap job "+job.ID, err)
	}
	return s.swapped(ctx, res, job.ID)
}

// RequestJobCancel raises the cancel flag of a processing job.
func (s *SQLStore) RequestJobCancel(ctx context.Context, jobID string) (bool, error) {
	query := s.db.Rebind(`UPDATE generation_jobs SET cancel_requested = 1 WHERE id = ? AND status = ?`)
	res, err := s.db.ExecContext(ctx, query, jobID, string(domain.JobStatusProcessing))
	if err != nil {
		return false, persistErr("request cancel "+jobID, err)
	}
	return s.swapped(ctx, res, jobID)
}

// swapped interprets a conditional job update: true if a row changed,
// false if the job exists in another state, ErrJobNotFound otherwise.
func (s *SQLStore) swapped(ctx context.Context, res sql.Result, jobID string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("job update result", err)
	}
	if n > 0 {
		return true, nil
	}
	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM generation_jobs WHERE id = ?`), jobID); err != nil {
		return false, persistErr("check job", err)
	}
	if count == 0 {
		return false, docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", jobID)
	}
	return false, nil
}

// ListJobs returns the project's jobs, newest first.
func (s *SQLStore) ListJobs(ctx context.Context, projectID string) ([]*domain.GenerationJob, error) {
	var rows []jobRow
	query := s.db.Rebind(`SELECT cancel_requested, data FROM generation_jobs WHERE project_id = ? ORDER BY created_at DESC, id`)
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, persistErr("list jobs", err)
	}
	jobs := make([]*domain.GenerationJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.decode()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r jobRow) decode() (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	if err := json.Unmarshal([]byte(r.Data), &job); err != nil {
		return nil, persistErr("decode job", err)
	}
	job.CancelRequested = job.CancelRequested || r.CancelRequested != 0
	return &job, nil
}

// ===================
// Helpers
// ===================

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", docerrors.ErrPersistence, op, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
