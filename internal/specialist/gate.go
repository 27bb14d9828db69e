package specialist

import (
	"context"
	"fmt"
	"strings"
)

// Verdict is a quality gate's judgement of one specialist output.
type Verdict struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// QualityGate evaluates specialist output before it is accepted into a
// workflow. Pluggable so deterministic test doubles can replace it.
type QualityGate interface {
	Evaluate(ctx context.Context, task Task, output Output) Verdict
}

// minContentLength is the floor for accepted output per difficulty tier.
// Higher tiers produce the higher-stakes documents and owe more substance.
var minContentLength = map[Difficulty]int{
	DifficultyBasic:    40,
	DifficultyStandard: 120,
	DifficultyAdvanced: 240,
	DifficultyExpert:   400,
}

// DefaultGate is the built-in quality gate: output must be non-empty, meet
// the tier's length floor, and not be a refusal.
type DefaultGate struct{}

// NewDefaultGate creates the built-in gate.
func NewDefaultGate() *DefaultGate {
	return &DefaultGate{}
}

// Evaluate applies the built-in checks.
func (g *DefaultGate) Evaluate(ctx context.Context, task Task, output Output) Verdict {
	content := strings.TrimSpace(output.Content)
	if content == "" {
		return Verdict{Passed: false, Reason: "empty output"}
	}

	if min := minContentLength[output.Difficulty]; len(content) < min {
		return Verdict{
			Passed: false,
			Reason: fmt.Sprintf("output too short: %d chars, need %d for %s tier",
				len(content), min, output.Difficulty),
		}
	}

	lowered := strings.ToLower(content)
	for _, marker := range []string{"i cannot help", "i can't help", "as an ai"} {
		if strings.Contains(lowered, marker) {
			return Verdict{Passed: false, Reason: "output is a refusal, not work product"}
		}
	}

	return Verdict{Passed: true}
}

var _ QualityGate = (*DefaultGate)(nil)
