package orchestrator

import (
	"fmt"

	"github.com/mossland/Algora-sub004/internal/issue"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// stagePlans names the specialists seeded for each stage of each workflow
// type. A stage absent from its type's plan is a pure gate: it has no
// specialist work and is satisfied by its external collaborator. Like the
// transition tables, plans are data validated at startup.
var stagePlans = map[workflow.WorkflowType]map[workflow.WorkflowState][]specialist.Code{
	workflow.TypeAcademicActivity: {
		workflow.StateIntake:   {specialist.Summarizer},
		workflow.StateResearch: {specialist.Researcher},
		workflow.StateAnalysis: {specialist.Analyst},
		workflow.StateDrafting: {specialist.Drafter},
		workflow.StateReview:   {specialist.Reviewer},
	},
	workflow.TypeFreeDebate: {
		workflow.StateIntake:   {specialist.Summarizer},
		workflow.StateResearch: {specialist.Researcher},
		workflow.StateDebate:   {specialist.Summarizer, specialist.Translator},
		workflow.StateDrafting: {specialist.Drafter},
		workflow.StateReview:   {specialist.Reviewer},
		workflow.StateVoting:   {specialist.Summarizer},
	},
	workflow.TypeDeveloperSupport: {
		workflow.StateIntake:    {specialist.Summarizer},
		workflow.StateAnalysis:  {specialist.Analyst},
		workflow.StateDrafting:  {specialist.Drafter},
		workflow.StateReview:    {specialist.Reviewer},
		workflow.StateExecution: {specialist.Archivist},
	},
	workflow.TypeEcosystemExpansion: {
		workflow.StateIntake:    {specialist.Summarizer},
		workflow.StateResearch:  {specialist.Researcher},
		workflow.StateAnalysis:  {specialist.Analyst},
		workflow.StateDrafting:  {specialist.Drafter},
		workflow.StateRedTeam:   {specialist.RedTeam},
		workflow.StateReview:    {specialist.Reviewer},
		workflow.StateVoting:    {specialist.Summarizer},
		workflow.StateApproval:  {specialist.Reviewer},
		workflow.StateExecution: {specialist.Archivist},
	},
	workflow.TypeWorkingGroups: {
		workflow.StateIntake:   {specialist.Summarizer},
		workflow.StateDrafting: {specialist.Drafter},
		workflow.StateReview:   {specialist.Reviewer},
		workflow.StateVoting:   {specialist.Summarizer},
	},
}

// categoryRiskLevel is the static action -> risk-level lookup. Triage at the
// end of intake resolves a workflow's risk level from its issue category.
var categoryRiskLevel = map[issue.Category]types.RiskLevel{
	issue.CategoryAcademic:    types.RiskLow,
	issue.CategoryCommunity:   types.RiskLow,
	issue.CategoryDevelopment: types.RiskMid,
	issue.CategoryEcosystem:   types.RiskHigh,
	issue.CategoryTreasury:    types.RiskHigh,
	issue.CategoryProtocol:    types.RiskHigh,
	issue.CategorySecurity:    types.RiskHigh,
	issue.CategoryProcess:     types.RiskLow,
}

// StagePlan returns the specialists seeded for a stage. An empty slice means
// the stage is a pure gate.
func StagePlan(workflowType workflow.WorkflowType, state workflow.WorkflowState) []specialist.Code {
	plan, ok := stagePlans[workflowType]
	if !ok {
		return nil
	}
	return append([]specialist.Code(nil), plan[state]...)
}

// RiskForCategory resolves the static risk classification of an issue
// category.
func RiskForCategory(category issue.Category) (types.RiskLevel, error) {
	level, ok := categoryRiskLevel[category]
	if !ok {
		return types.RiskUnknown, fmt.Errorf("no risk level mapped for category %q", category)
	}
	return level, nil
}

// ValidatePlans checks the static stage plans at startup: every workflow
// type has a plan, every happy-path working stage before the terminal has an
// entry or is a known gate, every planned specialist exists, and every issue
// category has a risk classification.
func ValidatePlans() error {
	for _, workflowType := range workflow.Types() {
		plan, ok := stagePlans[workflowType]
		if !ok {
			return fmt.Errorf("workflow type %s has no stage plan", workflowType)
		}

		if len(plan[workflow.InitialState]) == 0 {
			return fmt.Errorf("workflow type %s plans no specialists for the initial stage", workflowType)
		}

		for state, codes := range plan {
			if !state.Valid() {
				return fmt.Errorf("workflow type %s plans unknown stage %q", workflowType, state)
			}
			if state.Terminal() {
				return fmt.Errorf("workflow type %s plans specialists for terminal stage %s", workflowType, state)
			}
			for _, code := range codes {
				if !code.Valid() {
					return fmt.Errorf("workflow type %s stage %s plans unknown specialist %q",
						workflowType, state, code)
				}
			}
		}

		path, err := workflow.HappyPath(workflowType)
		if err != nil {
			return err
		}
		for _, state := range path {
			if state.Terminal() {
				continue
			}
			if _, ok := plan[state]; !ok {
				return fmt.Errorf("workflow type %s happy-path stage %s has no plan entry",
					workflowType, state)
			}
		}
	}

	for _, category := range issue.Categories() {
		if _, err := RiskForCategory(category); err != nil {
			return err
		}
	}

	return nil
}
