package eval

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/instantcocoa/naxos/pkg/database"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore is a PostgreSQL implementation of Store. Reports are kept
// as JSONB so a persisted run can be re-rendered without the input artifact.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a Postgres-backed run store and applies
// pending migrations.
func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	migrator := database.NewMigrator(db, "eval")
	if err := migrator.LoadMigrations(migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// CreateRun records a new evaluation run.
func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	report, err := marshalReport(run.Report)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO eval_runs (
			id, name, input_uri, output_uri, metrics, status,
			error_message, sample_count, report, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Name, run.InputURI, run.OutputURI, pq.Array(run.Metrics),
		int(run.Status), run.ErrorMessage, run.SampleCount, report,
		run.CreatedAt, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, input_uri, output_uri, metrics, status,
		       error_message, sample_count, report, created_at, started_at, completed_at
		FROM eval_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// UpdateRun updates a run.
func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	report, err := marshalReport(run.Report)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE eval_runs SET
			name = $2, input_uri = $3, output_uri = $4, metrics = $5, status = $6,
			error_message = $7, sample_count = $8, report = $9,
			started_at = $10, completed_at = $11
		WHERE id = $1`,
		run.ID, run.Name, run.InputURI, run.OutputURI, pq.Array(run.Metrics),
		int(run.Status), run.ErrorMessage, run.SampleCount, report,
		run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// ListRuns returns runs matching the query, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, query ListRunsQuery) ([]*Run, int, error) {
	where := ""
	args := []interface{}{}
	if query.Status != RunStatusUnspecified {
		where = "WHERE status = $1"
		args = append(args, int(query.Status))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM eval_runs %s", where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, query.Offset)

	listQuery := fmt.Sprintf(`
		SELECT id, name, input_uri, output_uri, metrics, status,
		       error_message, sample_count, report, created_at, started_at, completed_at
		FROM eval_runs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		metricNames pq.StringArray
		status      int
		report      []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.Name, &run.InputURI, &run.OutputURI, &metricNames, &status,
		&run.ErrorMessage, &run.SampleCount, &report, &run.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Metrics = []string(metricNames)
	run.Status = RunStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if len(report) > 0 {
		run.Report = &Report{}
		if err := json.Unmarshal(report, run.Report); err != nil {
			return nil, fmt.Errorf("failed to decode stored report: %w", err)
		}
	}

	return &run, nil
}

func marshalReport(report *Report) (interface{}, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}
