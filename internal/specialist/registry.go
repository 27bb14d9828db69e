// Package specialist routes units of work to LLM-backed specialist roles,
// enforces quality gates on their output, and retries with difficulty
// escalation when a gate rejects.
package specialist

import "fmt"

// Code identifies a specialist role in the fixed registry.
type Code string

const (
	Researcher Code = "researcher"
	Analyst    Code = "analyst"
	Drafter    Code = "drafter"
	Reviewer   Code = "reviewer"
	RedTeam    Code = "red_team"
	Summarizer Code = "summarizer"
	Translator Code = "translator"
	Archivist  Code = "archivist"
)

// Codes returns all specialist codes in stable order.
func Codes() []Code {
	return []Code{
		Researcher, Analyst, Drafter, Reviewer,
		RedTeam, Summarizer, Translator, Archivist,
	}
}

// Valid reports whether the code belongs to the fixed registry.
func (c Code) Valid() bool {
	_, ok := registry[c]
	return ok
}

// Difficulty is the model-capability tier a task requires. Retries escalate
// one level at a time while below Expert.
type Difficulty int

const (
	DifficultyBasic Difficulty = iota
	DifficultyStandard
	DifficultyAdvanced
	DifficultyExpert
)

// String returns the difficulty tier name.
func (d Difficulty) String() string {
	switch d {
	case DifficultyBasic:
		return "basic"
	case DifficultyStandard:
		return "standard"
	case DifficultyAdvanced:
		return "advanced"
	case DifficultyExpert:
		return "expert"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// Escalate returns the next difficulty tier, capped at Expert.
func (d Difficulty) Escalate() Difficulty {
	if d >= DifficultyExpert {
		return DifficultyExpert
	}
	return d + 1
}

// Definition describes one specialist role: what it produces and at which
// difficulty tier it operates by default.
type Definition struct {
	Code Code

	// Description is used when building the dispatch prompt.
	Description string

	// Difficulty is the default model tier for this role.
	Difficulty Difficulty

	// DocumentType names the registry document type this role's output
	// becomes when a workflow records it.
	DocumentType string
}

// registry is the fixed specialist registry. It is data, not control flow:
// validated at startup by ValidateRegistry and never mutated afterwards.
var registry = map[Code]Definition{
	Researcher: {
		Code:         Researcher,
		Description:  "gathers background evidence and prior art for a governance issue",
		Difficulty:   DifficultyStandard,
		DocumentType: "research_brief",
	},
	Analyst: {
		Code:         Analyst,
		Description:  "analyzes impact, risk, and options for a governance issue",
		Difficulty:   DifficultyAdvanced,
		DocumentType: "analysis_report",
	},
	Drafter: {
		Code:         Drafter,
		Description:  "drafts the decision packet or proposal document",
		Difficulty:   DifficultyStandard,
		DocumentType: "draft_proposal",
	},
	Reviewer: {
		Code:         Reviewer,
		Description:  "reviews a draft for completeness, consistency, and policy fit",
		Difficulty:   DifficultyAdvanced,
		DocumentType: "review_report",
	},
	RedTeam: {
		Code:         RedTeam,
		Description:  "attacks the proposal, enumerating failure modes and abuse paths",
		Difficulty:   DifficultyExpert,
		DocumentType: "red_team_report",
	},
	Summarizer: {
		Code:         Summarizer,
		Description:  "condenses workflow output for community consumption",
		Difficulty:   DifficultyBasic,
		DocumentType: "summary",
	},
	Translator: {
		Code:         Translator,
		Description:  "translates governance documents for the community",
		Difficulty:   DifficultyBasic,
		DocumentType: "translation",
	},
	Archivist: {
		Code:         Archivist,
		Description:  "records final outcomes into the permanent archive",
		Difficulty:   DifficultyBasic,
		DocumentType: "archive_record",
	},
}

// documentTypeDifficulty maps registry document types to the difficulty tier
// required to produce them. Used to bump a task's starting difficulty when
// its payload targets a higher-stakes document than the role default.
var documentTypeDifficulty = map[string]Difficulty{
	"research_brief":  DifficultyStandard,
	"analysis_report": DifficultyAdvanced,
	"draft_proposal":  DifficultyStandard,
	"review_report":   DifficultyAdvanced,
	"red_team_report": DifficultyExpert,
	"summary":         DifficultyBasic,
	"translation":     DifficultyBasic,
	"archive_record":  DifficultyBasic,
	"decision_packet": DifficultyExpert,
}

// Lookup returns the definition for a specialist code.
func Lookup(code Code) (Definition, error) {
	def, ok := registry[code]
	if !ok {
		return Definition{}, fmt.Errorf("unknown specialist code: %q", code)
	}
	return def, nil
}

// DocumentDifficulty returns the difficulty tier required for a document
// type, defaulting to Standard for unknown types.
func DocumentDifficulty(documentType string) Difficulty {
	if d, ok := documentTypeDifficulty[documentType]; ok {
		return d
	}
	return DifficultyStandard
}

// ValidateRegistry checks the static specialist tables at startup: every
// code maps to a definition with a document type, and every document type
// has a difficulty mapping.
func ValidateRegistry() error {
	for _, code := range Codes() {
		def, ok := registry[code]
		if !ok {
			return fmt.Errorf("specialist %s missing from registry", code)
		}
		if def.DocumentType == "" {
			return fmt.Errorf("specialist %s has no document type", code)
		}
		if _, ok := documentTypeDifficulty[def.DocumentType]; !ok {
			return fmt.Errorf("document type %s (specialist %s) has no difficulty mapping",
				def.DocumentType, code)
		}
	}
	return nil
}
