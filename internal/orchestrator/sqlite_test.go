package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/database"
	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

func openTestWorkflowStore(t *testing.T) *SQLiteWorkflowStore {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "algora.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	return NewSQLiteWorkflowStore(db)
}

func TestSQLiteWorkflowStore_RoundTrip(t *testing.T) {
	store := openTestWorkflowStore(t)
	ctx := context.Background()

	wf := workflow.NewContext(workflow.TypeEcosystemExpansion, types.NewID())
	wf.RiskLevel = types.RiskHigh
	wf.Metadata["category"] = "treasury"
	require.NoError(t, store.Save(ctx, wf))

	loaded, err := store.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, loaded.ID)
	assert.Equal(t, workflow.TypeEcosystemExpansion, loaded.Type)
	assert.Equal(t, types.RiskHigh, loaded.RiskLevel)
	assert.Equal(t, "treasury", loaded.Metadata["category"])
}

func TestSQLiteWorkflowStore_UpdatePersistsProgress(t *testing.T) {
	store := openTestWorkflowStore(t)
	ctx := context.Background()

	wf := workflow.NewContext(workflow.TypeFreeDebate, types.NewID())
	require.NoError(t, store.Save(ctx, wf))

	wf.State = workflow.StateVoting
	wf.CompletedStages = []workflow.WorkflowState{
		workflow.StateIntake, workflow.StateResearch, workflow.StateDebate,
		workflow.StateDrafting, workflow.StateReview,
	}
	wf.DocumentIDs = []types.ID{types.NewID(), types.NewID()}
	wf.VotingID = types.NewID()
	require.NoError(t, store.Update(ctx, wf))

	loaded, err := store.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateVoting, loaded.State)
	assert.Len(t, loaded.CompletedStages, 5)
	assert.Len(t, loaded.DocumentIDs, 2)
	assert.Equal(t, wf.VotingID, loaded.VotingID)
}

func TestSQLiteWorkflowStore_ListActiveSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "algora.db")

	db, err := database.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	store := NewSQLiteWorkflowStore(db)

	running := workflow.NewContext(workflow.TypeWorkingGroups, types.NewID())
	running.State = workflow.StateDrafting
	require.NoError(t, store.Save(ctx, running))

	finished := workflow.NewContext(workflow.TypeWorkingGroups, types.NewID())
	finished.State = workflow.StateClosed
	now := time.Now()
	finished.CompletedAt = &now
	require.NoError(t, store.Save(ctx, finished))
	require.NoError(t, db.Close())

	// Reopen as a restarted process would.
	db, err = database.Open(path)
	require.NoError(t, err)
	defer db.Close()
	store = NewSQLiteWorkflowStore(db)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, running.ID, active[0].ID)
	assert.Equal(t, workflow.StateDrafting, active[0].State)
}

func TestSQLiteWorkflowStore_UnknownID(t *testing.T) {
	store := openTestWorkflowStore(t)

	_, err := store.Get(context.Background(), types.NewID())
	assert.True(t, errors.Is(err, types.NewError(types.WORKFLOW_NOT_FOUND, "")))

	err = store.Update(context.Background(), workflow.NewContext(workflow.TypeFreeDebate, types.NewID()))
	assert.True(t, errors.Is(err, types.NewError(types.WORKFLOW_NOT_FOUND, "")))
}
