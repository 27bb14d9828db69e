package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/issue"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

func TestStagePlans_Validate(t *testing.T) {
	require.NoError(t, ValidatePlans())
}

func TestStagePlan_KnownStages(t *testing.T) {
	assert.Equal(t, []specialist.Code{specialist.RedTeam},
		StagePlan(workflow.TypeEcosystemExpansion, workflow.StateRedTeam))
	assert.Equal(t, []specialist.Code{specialist.Summarizer, specialist.Translator},
		StagePlan(workflow.TypeFreeDebate, workflow.StateDebate))

	// Stages outside the type's path plan nothing.
	assert.Empty(t, StagePlan(workflow.TypeWorkingGroups, workflow.StateRedTeam))
	assert.Empty(t, StagePlan(workflow.WorkflowType("unknown"), workflow.StateIntake))
}

func TestStagePlan_ReturnsCopy(t *testing.T) {
	plan := StagePlan(workflow.TypeAcademicActivity, workflow.StateResearch)
	require.NotEmpty(t, plan)
	plan[0] = specialist.Archivist

	again := StagePlan(workflow.TypeAcademicActivity, workflow.StateResearch)
	assert.Equal(t, specialist.Researcher, again[0])
}

func TestRiskForCategory(t *testing.T) {
	tests := []struct {
		category issue.Category
		level    types.RiskLevel
	}{
		{issue.CategoryAcademic, types.RiskLow},
		{issue.CategoryCommunity, types.RiskLow},
		{issue.CategoryDevelopment, types.RiskMid},
		{issue.CategoryEcosystem, types.RiskHigh},
		{issue.CategoryTreasury, types.RiskHigh},
		{issue.CategoryProtocol, types.RiskHigh},
		{issue.CategorySecurity, types.RiskHigh},
		{issue.CategoryProcess, types.RiskLow},
	}
	for _, tt := range tests {
		level, err := RiskForCategory(tt.category)
		require.NoError(t, err)
		assert.Equal(t, tt.level, level, "category %s", tt.category)
	}

	_, err := RiskForCategory(issue.Category("astrology"))
	assert.Error(t, err)
}
