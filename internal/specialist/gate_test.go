package specialist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGate_Evaluate(t *testing.T) {
	gate := NewDefaultGate()
	longEnough := strings.Repeat("governance analysis. ", 30)

	tests := []struct {
		name       string
		content    string
		difficulty Difficulty
		passed     bool
	}{
		{"empty output rejected", "", DifficultyBasic, false},
		{"whitespace only rejected", "   \n\t  ", DifficultyBasic, false},
		{"short output rejected for tier", "too short for standard", DifficultyStandard, false},
		{"basic floor is forgiving", strings.Repeat("summary text ", 5), DifficultyBasic, true},
		{"refusal rejected", "I cannot help with that request. " + longEnough, DifficultyStandard, false},
		{"meta preamble rejected", "As an AI, here is my view: " + longEnough, DifficultyStandard, false},
		{"substantial output passes", longEnough, DifficultyExpert, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := gate.Evaluate(context.Background(), Task{}, Output{
				Content:    tt.content,
				Difficulty: tt.difficulty,
			})
			assert.Equal(t, tt.passed, verdict.Passed)
			if !tt.passed {
				assert.NotEmpty(t, verdict.Reason)
			}
		})
	}
}

func TestDefaultGate_HigherTiersDemandMoreSubstance(t *testing.T) {
	gate := NewDefaultGate()
	content := strings.Repeat("x", 150)

	standard := gate.Evaluate(context.Background(), Task{}, Output{Content: content, Difficulty: DifficultyStandard})
	expert := gate.Evaluate(context.Background(), Task{}, Output{Content: content, Difficulty: DifficultyExpert})

	assert.True(t, standard.Passed)
	assert.False(t, expert.Passed)
}
