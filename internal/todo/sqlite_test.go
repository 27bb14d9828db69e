package todo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/database"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
)

func openTestStore(t *testing.T) *SQLiteTaskStore {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "algora-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return NewSQLiteTaskStore(db)
}

func newTask(workflowID types.ID, stage string, code specialist.Code, seq int64) *Task {
	now := time.Now()
	return &Task{
		ID:             types.NewID(),
		WorkflowID:     workflowID,
		Stage:          stage,
		SpecialistCode: code,
		Status:         StatusPending,
		Payload:        map[string]any{"topic": "grants"},
		Seq:            seq,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSQLiteTaskStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	workflowID := types.NewID()

	task := newTask(workflowID, "research", specialist.Researcher, 1)
	require.NoError(t, store.Save(ctx, task))

	loaded, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, loaded.ID)
	assert.Equal(t, task.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, StatusPending, loaded.Status)
	assert.Equal(t, "grants", loaded.Payload["topic"])
}

func TestSQLiteTaskStore_UniqueKeyEnforced(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	workflowID := types.NewID()

	require.NoError(t, store.Save(ctx, newTask(workflowID, "research", specialist.Researcher, 1)))

	err := store.Save(ctx, newTask(workflowID, "research", specialist.Researcher, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.TASK_DUPLICATE, ""))
}

func TestSQLiteTaskStore_ListOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	workflowID := types.NewID()

	// Insert out of order; list must come back in seq order.
	require.NoError(t, store.Save(ctx, newTask(workflowID, "analysis", specialist.Analyst, 2)))
	require.NoError(t, store.Save(ctx, newTask(workflowID, "research", specialist.Researcher, 1)))
	require.NoError(t, store.Save(ctx, newTask(workflowID, "drafting", specialist.Drafter, 3)))

	tasks, err := store.ListByWorkflow(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, specialist.Researcher, tasks[0].SpecialistCode)
	assert.Equal(t, specialist.Analyst, tasks[1].SpecialistCode)
	assert.Equal(t, specialist.Drafter, tasks[2].SpecialistCode)
}

func TestSQLiteTaskStore_UpdateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	task := newTask(types.NewID(), "review", specialist.Reviewer, 1)
	require.NoError(t, store.Save(ctx, task))

	now := time.Now()
	task.Status = StatusInProgress
	task.Attempts = 2
	task.StartedAt = &now
	require.NoError(t, store.Update(ctx, task))

	loaded, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, loaded.Status)
	assert.Equal(t, 2, loaded.Attempts)
	require.NotNil(t, loaded.StartedAt)
}

func TestSQLiteTaskStore_FindByKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	workflowID := types.NewID()

	task := newTask(workflowID, "voting", specialist.Summarizer, 1)
	require.NoError(t, store.Save(ctx, task))

	found, err := store.FindByKey(ctx, workflowID, "voting", specialist.Summarizer)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, task.ID, found.ID)

	missing, err := store.FindByKey(ctx, workflowID, "voting", specialist.Translator)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteTaskStore_NextSeq(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	workflowID := types.NewID()

	seq, err := store.NextSeq(ctx, workflowID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, store.Save(ctx, newTask(workflowID, "research", specialist.Researcher, seq)))

	seq, err = store.NextSeq(ctx, workflowID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestSQLiteTaskStore_ManagerCrashReplay(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	ctx := context.Background()
	workflowID := types.NewID()

	m1 := NewManager(NewSQLiteTaskStore(db), nil, nil)
	tasks, err := m1.CreateTasks(ctx, workflowID, "research", []Spec{
		{SpecialistCode: specialist.Researcher},
		{SpecialistCode: specialist.Analyst},
	})
	require.NoError(t, err)

	_, err = m1.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m1.MarkCompleted(ctx, tasks[0].ID)
	require.NoError(t, err)

	// New manager over the same database sees the identical pending set.
	m2 := NewManager(NewSQLiteTaskStore(db), nil, nil)
	replayed, err := m2.ListTasks(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.Equal(t, StatusCompleted, replayed[0].Status)
	assert.Equal(t, StatusPending, replayed[1].Status)
}
