package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/types"
)

func newMachine(t *testing.T) *StateMachine {
	t.Helper()
	sm, err := NewStateMachine()
	require.NoError(t, err)
	return sm
}

func TestStateMachine_HappyPathTransitions(t *testing.T) {
	sm := newMachine(t)

	for _, workflowType := range Types() {
		t.Run(string(workflowType), func(t *testing.T) {
			ctx := NewContext(workflowType, types.NewID())
			// Satisfy document and risk criteria up front so the walk only
			// exercises edge legality and stage ordering.
			ctx.DocumentIDs = []types.ID{types.NewID()}
			ctx.RiskLevel = types.RiskLow
			ctx.ApprovalID = types.NewID()

			path, err := HappyPath(workflowType)
			require.NoError(t, err)

			for _, next := range path[1:] {
				var terr error
				ctx, terr = sm.Transition(ctx, next)
				require.NoError(t, terr, "transition to %s", next)
				assert.Equal(t, next, ctx.State)
			}

			assert.True(t, ctx.Done())
			// Completed stages are exactly the path minus the terminal state.
			assert.Equal(t, path[:len(path)-1], ctx.CompletedStages)
		})
	}
}

func TestStateMachine_InvalidEdgeRejected(t *testing.T) {
	sm := newMachine(t)

	ctx := NewContext(TypeFreeDebate, types.NewID())

	// intake -> voting is not in type B's table.
	result, err := sm.Transition(ctx, StateVoting)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
	assert.Same(t, ctx, result)
	assert.Equal(t, StateIntake, ctx.State)
}

func TestStateMachine_CrossTypeEdgeRejected(t *testing.T) {
	sm := newMachine(t)

	// debate belongs to type B only; a type E workflow must not enter it even
	// though the state itself is defined.
	ctx := NewContext(TypeWorkingGroups, types.NewID())
	_, err := sm.Transition(ctx, StateDebate)
	assert.True(t, IsInvalidTransition(err))
}

func TestStateMachine_CriteriaUnmetLeavesContextUntouched(t *testing.T) {
	sm := newMachine(t)

	ctx := NewContext(TypeWorkingGroups, types.NewID())

	var err error
	ctx, err = sm.Transition(ctx, StateDrafting)
	require.NoError(t, err)

	before := ctx.Clone()

	// drafting -> review is a legal edge but no document has been produced.
	result, err := sm.Transition(ctx, StateReview)
	require.Error(t, err)
	assert.True(t, IsCriteriaUnmet(err))

	var criteriaErr *AcceptanceCriteriaError
	require.ErrorAs(t, err, &criteriaErr)
	assert.Equal(t, "has_draft_document", criteriaErr.Criterion)

	// The returned context is the input, byte for byte.
	assert.Same(t, ctx, result)
	assert.Equal(t, before.State, result.State)
	assert.Equal(t, before.CompletedStages, result.CompletedStages)
}

func TestStateMachine_CriteriaRetryAfterRequirementProduced(t *testing.T) {
	sm := newMachine(t)

	ctx := NewContext(TypeWorkingGroups, types.NewID())
	var err error
	ctx, err = sm.Transition(ctx, StateDrafting)
	require.NoError(t, err)

	_, err = sm.Transition(ctx, StateReview)
	require.True(t, IsCriteriaUnmet(err))

	// Produce the blocking document, then retry the same transition.
	ctx.DocumentIDs = append(ctx.DocumentIDs, types.NewID())
	ctx, err = sm.Transition(ctx, StateReview)
	require.NoError(t, err)
	assert.Equal(t, StateReview, ctx.State)
}

func TestStateMachine_HighRiskRequiresRedTeamBeforeApproval(t *testing.T) {
	sm := newMachine(t)

	// Walk type D to voting with HIGH risk but pretend the red-team stage was
	// skipped by building the context directly.
	ctx := NewContext(TypeEcosystemExpansion, types.NewID())
	ctx.State = StateVoting
	ctx.CompletedStages = []WorkflowState{
		StateIntake, StateResearch, StateAnalysis, StateDrafting, StateReview,
	}
	ctx.DocumentIDs = []types.ID{types.NewID()}
	ctx.RiskLevel = types.RiskHigh

	_, err := sm.Transition(ctx, StateApproval)
	require.Error(t, err)
	var criteriaErr *AcceptanceCriteriaError
	require.ErrorAs(t, err, &criteriaErr)
	assert.Equal(t, "red_team_for_high_risk", criteriaErr.Criterion)

	// With red-team completed the transition goes through.
	ctx.CompletedStages = append(ctx.CompletedStages[:4], StateRedTeam, StateReview)
	next, err := sm.Transition(ctx, StateApproval)
	require.NoError(t, err)
	assert.Equal(t, StateApproval, next.State)
}

func TestStateMachine_ElevatedRiskDecisionNeedsApprovalToFinish(t *testing.T) {
	sm := newMachine(t)

	// Type B finishes in executed without an approval or execution stage; an
	// elevated risk level must still block the finish until approved.
	ctx := NewContext(TypeFreeDebate, types.NewID())
	ctx.State = StateVoting
	ctx.CompletedStages = []WorkflowState{
		StateIntake, StateResearch, StateDebate, StateDrafting, StateReview,
	}
	ctx.DocumentIDs = []types.ID{types.NewID()}
	ctx.RiskLevel = types.RiskHigh

	_, err := sm.Transition(ctx, StateExecuted)
	require.Error(t, err)
	var criteriaErr *AcceptanceCriteriaError
	require.ErrorAs(t, err, &criteriaErr)
	assert.Equal(t, "approval_for_elevated_risk", criteriaErr.Criterion)

	ctx.ApprovalID = types.NewID()
	next, err := sm.Transition(ctx, StateExecuted)
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, next.State)

	// Same rule on the closed terminal of type E templates.
	wg := NewContext(TypeWorkingGroups, types.NewID())
	wg.State = StateVoting
	wg.CompletedStages = []WorkflowState{StateIntake, StateDrafting, StateReview}
	wg.DocumentIDs = []types.ID{types.NewID()}
	wg.RiskLevel = types.RiskMid

	_, err = sm.Transition(wg, StateClosed)
	require.ErrorAs(t, err, &criteriaErr)
	assert.Equal(t, "approval_for_elevated_risk", criteriaErr.Criterion)

	wg.ApprovalID = types.NewID()
	_, err = sm.Transition(wg, StateClosed)
	require.NoError(t, err)
}

func TestStateMachine_TerminalStatesHaveNoExits(t *testing.T) {
	sm := newMachine(t)

	for _, terminal := range []WorkflowState{StateExecuted, StateVerified, StateClosed, StateRejected} {
		ctx := NewContext(TypeFreeDebate, types.NewID())
		ctx.State = terminal

		for _, target := range States() {
			_, err := sm.Transition(ctx, target)
			assert.True(t, IsInvalidTransition(err),
				"terminal state %s must reject transition to %s", terminal, target)
		}
	}
}

func TestStateMachine_EscalationAlwaysOpen(t *testing.T) {
	sm := newMachine(t)

	// Escalation must be reachable from any non-terminal state with no
	// criteria, even on a context with nothing produced yet.
	for _, workflowType := range Types() {
		table, err := Table(workflowType)
		require.NoError(t, err)

		for from := range table {
			if from == StateEscalated {
				continue
			}
			ctx := NewContext(workflowType, types.NewID())
			ctx.State = from

			next, err := sm.Transition(ctx, StateEscalated)
			require.NoError(t, err, "%s: %s -> escalated", workflowType, from)
			assert.Equal(t, StateEscalated, next.State)
		}
	}
}

func TestValidatePath_AcceptsTableSequences(t *testing.T) {
	sm := newMachine(t)

	for _, workflowType := range Types() {
		path, err := HappyPath(workflowType)
		require.NoError(t, err)
		assert.NoError(t, sm.ValidatePath(workflowType, path), "happy path of %s", workflowType)
	}

	// Escalation detour is a valid path too.
	assert.NoError(t, sm.ValidatePath(TypeWorkingGroups, []WorkflowState{
		StateIntake, StateDrafting, StateEscalated, StateRejected,
	}))
}

func TestValidatePath_RejectsForeignSequences(t *testing.T) {
	sm := newMachine(t)

	// Type B's path is not valid for type E.
	pathB, err := HappyPath(TypeFreeDebate)
	require.NoError(t, err)
	err = sm.ValidatePath(TypeWorkingGroups, pathB)
	assert.True(t, IsInvalidTransition(err))

	// A path must start at intake.
	err = sm.ValidatePath(TypeFreeDebate, []WorkflowState{StateResearch, StateDebate})
	assert.True(t, IsInvalidTransition(err))

	assert.Error(t, sm.ValidatePath(TypeFreeDebate, nil))
}

func TestPossiblePaths_AllEndTerminal(t *testing.T) {
	sm := newMachine(t)

	for _, workflowType := range Types() {
		paths, err := sm.PossiblePaths(workflowType, InitialState)
		require.NoError(t, err)
		require.NotEmpty(t, paths)

		happy, err := HappyPath(workflowType)
		require.NoError(t, err)

		foundHappy := false
		for _, path := range paths {
			assert.True(t, path[len(path)-1].Terminal(),
				"%s path %v must end terminal", workflowType, path)
			assert.NoError(t, sm.ValidatePath(workflowType, path))
			if assert.ObjectsAreEqual(happy, path) {
				foundHappy = true
			}
		}
		assert.True(t, foundHappy, "%s: happy path missing from enumeration", workflowType)
	}
}

func TestPossiblePaths_FromTerminalIsItself(t *testing.T) {
	sm := newMachine(t)

	paths, err := sm.PossiblePaths(TypeFreeDebate, StateExecuted)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []WorkflowState{StateExecuted}, paths[0])
}

func TestContext_CloneIsDeep(t *testing.T) {
	ctx := NewContext(TypeFreeDebate, types.NewID())
	ctx.DocumentIDs = []types.ID{types.NewID()}
	ctx.Metadata["key"] = "value"

	clone := ctx.Clone()
	clone.DocumentIDs[0] = types.NewID()
	clone.CompletedStages = append(clone.CompletedStages, StateIntake)
	clone.Metadata["key"] = "changed"

	assert.NotEqual(t, ctx.DocumentIDs[0], clone.DocumentIDs[0])
	assert.Empty(t, ctx.CompletedStages)
	assert.Equal(t, "value", ctx.Metadata["key"])
}
