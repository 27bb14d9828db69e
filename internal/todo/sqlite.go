package todo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mossland/Algora-sub004/internal/database"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
)

// SQLiteTaskStore is the durable TaskStore. The UNIQUE(workflow_id, stage,
// specialist_code) constraint enforces idempotent creation at the storage
// layer, so a crash between check and insert cannot duplicate a task.
type SQLiteTaskStore struct {
	db *database.DB
}

// NewSQLiteTaskStore creates a task store over an open database.
func NewSQLiteTaskStore(db *database.DB) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: db}
}

const taskColumns = `id, workflow_id, stage, specialist_code, status, payload_json,
	attempts, error, seq, created_at, updated_at, started_at, completed_at`

// Save persists a new task.
func (s *SQLiteTaskStore) Save(ctx context.Context, task *Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize task payload: %w", err)
	}

	_, err = s.db.Conn().ExecContext(ctx, `
INSERT INTO tasks (`+taskColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(), task.WorkflowID.String(), task.Stage, string(task.SpecialistCode),
		string(task.Status), string(payload), task.Attempts, nullString(task.Error),
		task.Seq, task.CreatedAt, task.UpdatedAt, task.StartedAt, task.CompletedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return types.WrapError(types.TASK_DUPLICATE,
				"task already exists for this workflow, stage, and specialist", err)
		}
		return types.WrapError(types.DB_QUERY_FAILED, "failed to save task", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *SQLiteTaskStore) Get(ctx context.Context, id types.ID) (*Task, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.TASK_NOT_FOUND, "task "+id.String()+" not found")
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to load task", err)
	}
	return task, nil
}

// Update persists changed fields of an existing task.
func (s *SQLiteTaskStore) Update(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize task payload: %w", err)
	}

	result, err := s.db.Conn().ExecContext(ctx, `
UPDATE tasks SET status = ?, payload_json = ?, attempts = ?, error = ?,
	updated_at = ?, started_at = ?, completed_at = ?
WHERE id = ?`,
		string(task.Status), string(payload), task.Attempts, nullString(task.Error),
		task.UpdatedAt, task.StartedAt, task.CompletedAt, task.ID.String(),
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to update task", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to check update result", err)
	}
	if affected == 0 {
		return types.NewError(types.TASK_NOT_FOUND, "task "+task.ID.String()+" not found")
	}
	return nil
}

// ListByWorkflow returns all tasks of a workflow ordered by creation.
func (s *SQLiteTaskStore) ListByWorkflow(ctx context.Context, workflowID types.ID) ([]*Task, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workflow_id = ? ORDER BY seq`,
		workflowID.String())
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list tasks", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// FindByKey returns the task with the given idempotency key, or nil.
func (s *SQLiteTaskStore) FindByKey(ctx context.Context, workflowID types.ID, stage string, code specialist.Code) (*Task, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
WHERE workflow_id = ? AND stage = ? AND specialist_code = ?`,
		workflowID.String(), stage, string(code))

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to find task", err)
	}
	return task, nil
}

// NextSeq returns the next creation sequence number for a workflow.
func (s *SQLiteTaskStore) NextSeq(ctx context.Context, workflowID types.ID) (int64, error) {
	var max sql.NullInt64
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT MAX(seq) FROM tasks WHERE workflow_id = ?`,
		workflowID.String()).Scan(&max)
	if err != nil {
		return 0, types.WrapError(types.DB_QUERY_FAILED, "failed to read task sequence", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var task Task
	var id, workflowID, code, status, payload string
	var taskErr sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&id, &workflowID, &task.Stage, &code, &status, &payload,
		&task.Attempts, &taskErr, &task.Seq, &task.CreatedAt, &task.UpdatedAt,
		&startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	task.ID = types.ID(id)
	task.WorkflowID = types.ID(workflowID)
	task.SpecialistCode = specialist.Code(code)
	task.Status = Status(status)
	if taskErr.Valid {
		task.Error = taskErr.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &task.Payload); err != nil {
			return nil, fmt.Errorf("failed to parse task payload: %w", err)
		}
	}

	return &task, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// touch updates the UpdatedAt timestamp; split out so tests can assert on it.
func touch(task *Task) {
	task.UpdatedAt = time.Now()
}

var _ TaskStore = (*SQLiteTaskStore)(nil)
