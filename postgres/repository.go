// Package postgres provides a PostgreSQL-backed WorkflowRepository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/deepnoodle-ai/dagflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	definition JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// WorkflowRepository stores workflow definitions in PostgreSQL.
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository connects to the database and ensures the schema
// exists. The caller owns closing the repository.
func NewWorkflowRepository(ctx context.Context, dsn string) (*WorkflowRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &WorkflowRepository{db: db}, nil
}

func (r *WorkflowRepository) Close() error {
	return r.db.Close()
}

func (r *WorkflowRepository) Create(ctx context.Context, record *dagflow.WorkflowRecord) error {
	status := record.Status
	if status == "" {
		status = dagflow.WorkflowStatusActive
	}
	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflows (id, name, definition, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.Name, []byte(record.Definition), string(status), createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to create workflow record: %w", err)
	}
	return nil
}

func (r *WorkflowRepository) Find(ctx context.Context, id string) (*dagflow.WorkflowRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, definition, status, created_at, updated_at
		 FROM workflows WHERE id = $1`, id)

	var record dagflow.WorkflowRecord
	var definition []byte
	var status string
	err := row.Scan(&record.ID, &record.Name, &definition, &status,
		&record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, dagflow.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find workflow: %w", err)
	}
	record.Definition = json.RawMessage(definition)
	record.Status = dagflow.WorkflowStatus(status)
	return &record, nil
}

func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status dagflow.WorkflowStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}
	return requireRowAffected(result)
}

func (r *WorkflowRepository) UpdateDefinition(ctx context.Context, id string, definition json.RawMessage) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET definition = $2, updated_at = $3 WHERE id = $1`,
		id, []byte(definition), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update workflow definition: %w", err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return dagflow.ErrWorkflowNotFound
	}
	return nil
}
