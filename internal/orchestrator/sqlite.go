package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mossland/Algora-sub004/internal/database"
	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// SQLiteWorkflowStore is the durable WorkflowStore. The full context travels
// as JSON in context_json; the indexed columns exist for recovery queries.
type SQLiteWorkflowStore struct {
	db *database.DB
}

// NewSQLiteWorkflowStore creates a workflow store over an open database.
func NewSQLiteWorkflowStore(db *database.DB) *SQLiteWorkflowStore {
	return &SQLiteWorkflowStore{db: db}
}

// Save persists a new workflow context.
func (s *SQLiteWorkflowStore) Save(ctx context.Context, wf *workflow.Context) error {
	contextJSON, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to serialize workflow context: %w", err)
	}

	_, err = s.db.Conn().ExecContext(ctx, `
INSERT INTO workflows (id, type, state, issue_id, risk_level, context_json,
	started_at, completed_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID.String(), string(wf.Type), string(wf.State), wf.IssueID.String(),
		string(wf.RiskLevel), string(contextJSON),
		wf.StartedAt, wf.CompletedAt, time.Now(),
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to save workflow", err)
	}
	return nil
}

// Get returns the workflow by id.
func (s *SQLiteWorkflowStore) Get(ctx context.Context, id types.ID) (*workflow.Context, error) {
	var contextJSON string
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT context_json FROM workflows WHERE id = ?`, id.String()).Scan(&contextJSON)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.WORKFLOW_NOT_FOUND, "workflow "+id.String()+" not found")
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to load workflow", err)
	}
	return decodeContext(contextJSON)
}

// Update persists changes to an existing workflow.
func (s *SQLiteWorkflowStore) Update(ctx context.Context, wf *workflow.Context) error {
	contextJSON, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to serialize workflow context: %w", err)
	}

	result, err := s.db.Conn().ExecContext(ctx, `
UPDATE workflows SET state = ?, risk_level = ?, context_json = ?,
	completed_at = ?, updated_at = ?
WHERE id = ?`,
		string(wf.State), string(wf.RiskLevel), string(contextJSON),
		wf.CompletedAt, time.Now(), wf.ID.String(),
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to update workflow", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to check update result", err)
	}
	if affected == 0 {
		return types.NewError(types.WORKFLOW_NOT_FOUND, "workflow "+wf.ID.String()+" not found")
	}
	return nil
}

// List returns every stored workflow ordered by start time.
func (s *SQLiteWorkflowStore) List(ctx context.Context) ([]*workflow.Context, error) {
	return s.query(ctx, `SELECT context_json FROM workflows ORDER BY started_at`)
}

// ListActive returns workflows not yet in a terminal state.
func (s *SQLiteWorkflowStore) ListActive(ctx context.Context) ([]*workflow.Context, error) {
	return s.query(ctx, `
SELECT context_json FROM workflows
WHERE state NOT IN (?, ?, ?, ?)
ORDER BY started_at`,
		string(workflow.StateExecuted), string(workflow.StateVerified),
		string(workflow.StateClosed), string(workflow.StateRejected))
}

func (s *SQLiteWorkflowStore) query(ctx context.Context, q string, args ...any) ([]*workflow.Context, error) {
	rows, err := s.db.Conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list workflows", err)
	}
	defer rows.Close()

	var out []*workflow.Context
	for rows.Next() {
		var contextJSON string
		if err := rows.Scan(&contextJSON); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan workflow", err)
		}
		wf, err := decodeContext(contextJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func decodeContext(contextJSON string) (*workflow.Context, error) {
	var wf workflow.Context
	if err := json.Unmarshal([]byte(contextJSON), &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow context: %w", err)
	}
	return &wf, nil
}

var _ WorkflowStore = (*SQLiteWorkflowStore)(nil)
