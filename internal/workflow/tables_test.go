package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/issue"
)

func TestValidateTables(t *testing.T) {
	assert.NoError(t, ValidateTables())
}

func TestSelectType_CategoryMapping(t *testing.T) {
	highPriority := issue.PriorityScore{Total: 8.0}

	tests := []struct {
		category issue.Category
		want     WorkflowType
	}{
		{issue.CategoryAcademic, TypeAcademicActivity},
		{issue.CategoryCommunity, TypeFreeDebate},
		{issue.CategoryDevelopment, TypeDeveloperSupport},
		{issue.CategoryEcosystem, TypeEcosystemExpansion},
		{issue.CategoryTreasury, TypeEcosystemExpansion},
		{issue.CategoryProtocol, TypeFreeDebate},
		{issue.CategorySecurity, TypeDeveloperSupport},
		{issue.CategoryProcess, TypeWorkingGroups},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got, err := SelectType(tt.category, highPriority)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectType_DebateThreshold(t *testing.T) {
	// Below the community-debate threshold, debate-bound issues are routed to
	// the lightweight working-groups template.
	low := issue.PriorityScore{Total: CommunityDebateThreshold - 0.1}
	got, err := SelectType(issue.CategoryCommunity, low)
	require.NoError(t, err)
	assert.Equal(t, TypeWorkingGroups, got)

	atThreshold := issue.PriorityScore{Total: CommunityDebateThreshold}
	got, err = SelectType(issue.CategoryCommunity, atThreshold)
	require.NoError(t, err)
	assert.Equal(t, TypeFreeDebate, got)

	// The threshold only affects debate-bound categories.
	got, err = SelectType(issue.CategoryDevelopment, low)
	require.NoError(t, err)
	assert.Equal(t, TypeDeveloperSupport, got)
}

func TestSelectType_UnknownCategory(t *testing.T) {
	_, err := SelectType(issue.Category("gossip"), issue.PriorityScore{})
	assert.Error(t, err)
}

func TestNextOnPath(t *testing.T) {
	next, ok := NextOnPath(TypeFreeDebate, StateIntake)
	require.True(t, ok)
	assert.Equal(t, StateResearch, next)

	next, ok = NextOnPath(TypeFreeDebate, StateVoting)
	require.True(t, ok)
	assert.Equal(t, StateExecuted, next)

	// Final path state has no successor.
	_, ok = NextOnPath(TypeFreeDebate, StateExecuted)
	assert.False(t, ok)

	// States off the path have no successor either.
	_, ok = NextOnPath(TypeWorkingGroups, StateDebate)
	assert.False(t, ok)
}

func TestEveryNonTerminalStateCanEscalate(t *testing.T) {
	for _, workflowType := range Types() {
		table, err := Table(workflowType)
		require.NoError(t, err)

		for from := range table {
			if from == StateEscalated {
				continue
			}
			assert.True(t, hasEdge(table, from, StateEscalated),
				"%s: %s has no escalation edge", workflowType, from)
		}
	}
}

func TestLoadDefinitions_Override(t *testing.T) {
	input := `
workflows:
  working_groups:
    transitions:
      intake: [drafting, escalated]
      drafting: [review, escalated]
      review: [voting, rejected, escalated]
      voting: [closed, rejected, escalated]
      escalated: [closed, rejected]
    path: [intake, drafting, review, voting, closed]
`
	tables, paths, err := LoadDefinitions(strings.NewReader(input))
	require.NoError(t, err)
	require.Contains(t, tables, TypeWorkingGroups)
	assert.Len(t, paths[TypeWorkingGroups], 5)

	require.NoError(t, ApplyDefinitions(tables, paths))
	assert.NoError(t, ValidateTables())
}

func TestLoadDefinitions_RejectsUnknownStates(t *testing.T) {
	_, _, err := LoadDefinitions(strings.NewReader(`
workflows:
  free_debate:
    transitions:
      intake: [warp_drive]
`))
	assert.Error(t, err)

	_, _, err = LoadDefinitions(strings.NewReader(`
workflows:
  not_a_type:
    transitions:
      intake: [research]
`))
	assert.Error(t, err)
}

func TestApplyDefinitions_RollsBackOnBrokenTable(t *testing.T) {
	// An override that removes the initial state fails validation, and the
	// built-in table must survive.
	broken := map[WorkflowType]TransitionTable{
		TypeWorkingGroups: {
			StateDrafting: {StateReview},
		},
	}

	err := ApplyDefinitions(broken, nil)
	require.Error(t, err)

	table, terr := Table(TypeWorkingGroups)
	require.NoError(t, terr)
	assert.True(t, hasEdge(table, StateIntake, StateDrafting))
}
