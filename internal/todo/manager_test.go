package todo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
)

func newManager(t *testing.T) (*Manager, *MemoryTaskStore, *events.DefaultEventBus) {
	t.Helper()
	store := NewMemoryTaskStore()
	bus := events.NewEventBus()
	t.Cleanup(func() { bus.Close() })
	return NewManager(store, bus, nil), store, bus
}

func TestCreateTasks(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	tasks, err := m.CreateTasks(ctx, workflowID, "research", []Spec{
		{SpecialistCode: specialist.Researcher},
		{SpecialistCode: specialist.Analyst, Payload: map[string]any{"focus": "impact"}},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, StatusPending, tasks[0].Status)
	assert.Equal(t, specialist.Researcher, tasks[0].SpecialistCode)
	assert.Less(t, tasks[0].Seq, tasks[1].Seq)
}

func TestCreateTasks_Idempotent(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	specs := []Spec{{SpecialistCode: specialist.Drafter}}

	first, err := m.CreateTasks(ctx, workflowID, "drafting", specs)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same key again: exactly one task must exist, and the existing one is
	// returned.
	second, err := m.CreateTasks(ctx, workflowID, "drafting", specs)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	all, err := m.ListTasks(ctx, workflowID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateTasks_SameSpecialistDifferentStage(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	_, err := m.CreateTasks(ctx, workflowID, "research", []Spec{{SpecialistCode: specialist.Researcher}})
	require.NoError(t, err)
	_, err = m.CreateTasks(ctx, workflowID, "analysis", []Spec{{SpecialistCode: specialist.Researcher}})
	require.NoError(t, err)

	all, err := m.ListTasks(ctx, workflowID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateTasks_RejectsUnknownSpecialist(t *testing.T) {
	m, _, _ := newManager(t)

	_, err := m.CreateTasks(context.Background(), types.NewID(), "research",
		[]Spec{{SpecialistCode: specialist.Code("astrologer")}})
	assert.Error(t, err)
}

func TestTaskLifecycle(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	tasks, err := m.CreateTasks(ctx, workflowID, "drafting", []Spec{{SpecialistCode: specialist.Drafter}})
	require.NoError(t, err)
	taskID := tasks[0].ID

	next, err := m.NextPendingTask(ctx, workflowID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, taskID, next.ID)

	inProgress, err := m.MarkInProgress(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, inProgress.Status)
	assert.Equal(t, 1, inProgress.Attempts)
	assert.NotNil(t, inProgress.StartedAt)

	// Nothing pending while the only task runs.
	next, err = m.NextPendingTask(ctx, workflowID)
	require.NoError(t, err)
	assert.Nil(t, next)

	completed, err := m.MarkCompleted(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
}

func TestMarkCompleted_RequiresInProgress(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	tasks, err := m.CreateTasks(ctx, workflowID, "drafting", []Spec{{SpecialistCode: specialist.Drafter}})
	require.NoError(t, err)

	// pending -> completed skips in_progress and must be rejected.
	_, err = m.MarkCompleted(ctx, tasks[0].ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.TASK_INVALID_STATUS, ""))
}

func TestMarkInProgress_SerializedPerStage(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	tasks, err := m.CreateTasks(ctx, workflowID, "review", []Spec{
		{SpecialistCode: specialist.Reviewer},
		{SpecialistCode: specialist.Summarizer},
	})
	require.NoError(t, err)

	_, err = m.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)

	// No two tasks of the same workflow+stage may run concurrently.
	_, err = m.MarkInProgress(ctx, tasks[1].ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.TASK_INVALID_STATUS, ""))

	// Once the first completes, the second may start.
	_, err = m.MarkCompleted(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m.MarkInProgress(ctx, tasks[1].ID)
	assert.NoError(t, err)
}

func TestCrashReplay_PendingSetSurvives(t *testing.T) {
	store := NewMemoryTaskStore()
	ctx := context.Background()
	workflowID := types.NewID()

	m1 := NewManager(store, nil, nil)
	tasks, err := m1.CreateTasks(ctx, workflowID, "research", []Spec{
		{SpecialistCode: specialist.Researcher},
		{SpecialistCode: specialist.Analyst},
		{SpecialistCode: specialist.Summarizer},
	})
	require.NoError(t, err)

	_, err = m1.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m1.MarkCompleted(ctx, tasks[0].ID)
	require.NoError(t, err)

	// Simulated crash: a new manager over the same persisted store must see
	// exactly the tasks that were pending before, no duplicates, no losses.
	m2 := NewManager(store, nil, nil)
	replayed, err := m2.ListTasks(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, replayed, 3)

	var pending []specialist.Code
	for _, task := range replayed {
		if task.Status == StatusPending {
			pending = append(pending, task.SpecialistCode)
		}
	}
	assert.Equal(t, []specialist.Code{specialist.Analyst, specialist.Summarizer}, pending)

	// Re-seeding the stage after restart must not duplicate anything.
	_, err = m2.CreateTasks(ctx, workflowID, "research", []Spec{
		{SpecialistCode: specialist.Researcher},
		{SpecialistCode: specialist.Analyst},
		{SpecialistCode: specialist.Summarizer},
	})
	require.NoError(t, err)

	after, err := m2.ListTasks(ctx, workflowID)
	require.NoError(t, err)
	assert.Len(t, after, 3)
}

func TestStageSatisfied(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	satisfied, err := m.StageSatisfied(ctx, workflowID, "review")
	require.NoError(t, err)
	assert.False(t, satisfied, "empty stage is not satisfied")

	tasks, err := m.CreateTasks(ctx, workflowID, "review", []Spec{
		{SpecialistCode: specialist.Reviewer},
		{SpecialistCode: specialist.Summarizer},
	})
	require.NoError(t, err)

	_, err = m.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m.MarkCompleted(ctx, tasks[0].ID)
	require.NoError(t, err)

	satisfied, err = m.StageSatisfied(ctx, workflowID, "review")
	require.NoError(t, err)
	assert.False(t, satisfied)

	_, err = m.MarkInProgress(ctx, tasks[1].ID)
	require.NoError(t, err)
	_, err = m.MarkCompleted(ctx, tasks[1].ID)
	require.NoError(t, err)

	satisfied, err = m.StageSatisfied(ctx, workflowID, "review")
	require.NoError(t, err)
	assert.True(t, satisfied)
}

func TestStageSatisfied_FailedTaskBlocks(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	tasks, err := m.CreateTasks(ctx, workflowID, "red_team", []Spec{{SpecialistCode: specialist.RedTeam}})
	require.NoError(t, err)

	_, err = m.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m.MarkFailed(ctx, tasks[0].ID, "quality gate exhausted")
	require.NoError(t, err)

	satisfied, err := m.StageSatisfied(ctx, workflowID, "red_team")
	require.NoError(t, err)
	assert.False(t, satisfied)
}

func TestLifecycleEventsPublished(t *testing.T) {
	m, _, bus := newManager(t)
	ctx := context.Background()
	workflowID := types.NewID()

	received, cleanup := bus.Subscribe(ctx, events.Filter{WorkflowID: workflowID}, 10)
	defer cleanup()

	tasks, err := m.CreateTasks(ctx, workflowID, "drafting", []Spec{{SpecialistCode: specialist.Drafter}})
	require.NoError(t, err)
	_, err = m.MarkInProgress(ctx, tasks[0].ID)
	require.NoError(t, err)
	_, err = m.MarkCompleted(ctx, tasks[0].ID)
	require.NoError(t, err)

	want := []events.EventType{events.EventTaskCreated, events.EventTaskCompleted}
	for _, wantType := range want {
		select {
		case event := <-received:
			assert.Equal(t, wantType, event.Type)
			payload, ok := event.Payload.(events.TaskPayload)
			require.True(t, ok)
			assert.Equal(t, tasks[0].ID, payload.TaskID)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for %s", wantType)
		}
	}
}
