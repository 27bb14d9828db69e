package workflow

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// definitionsFile is the on-disk YAML shape for transition table overrides.
// Operators may tighten a template (drop an edge) or re-route escalation
// without rebuilding; the overridden tables still have to pass the same
// validation as the built-ins.
//
// Example:
//
//	workflows:
//	  working_groups:
//	    transitions:
//	      intake: [drafting, escalated]
//	      drafting: [review, escalated]
//	      review: [voting, rejected, escalated]
//	      voting: [closed, rejected, escalated]
//	      escalated: [closed, rejected]
//	    path: [intake, drafting, review, voting, closed]
type definitionsFile struct {
	Workflows map[string]definition `yaml:"workflows"`
}

type definition struct {
	Transitions map[string][]string `yaml:"transitions"`
	Path        []string            `yaml:"path"`
}

// LoadDefinitions parses transition table overrides from YAML. Types absent
// from the file keep their built-in tables. The parsed overrides are
// validated structurally here; ApplyDefinitions re-runs full table
// validation after installation.
func LoadDefinitions(r io.Reader) (map[WorkflowType]TransitionTable, map[WorkflowType][]WorkflowState, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read workflow definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse workflow definitions: %w", err)
	}

	tables := make(map[WorkflowType]TransitionTable, len(file.Workflows))
	paths := make(map[WorkflowType][]WorkflowState, len(file.Workflows))

	for name, def := range file.Workflows {
		workflowType, err := ParseType(name)
		if err != nil {
			return nil, nil, err
		}

		table := make(TransitionTable, len(def.Transitions))
		for from, targets := range def.Transitions {
			fromState := WorkflowState(from)
			if !fromState.Valid() {
				return nil, nil, fmt.Errorf("workflow %s: unknown state %q", name, from)
			}
			edges := make([]WorkflowState, 0, len(targets))
			for _, to := range targets {
				toState := WorkflowState(to)
				if !toState.Valid() {
					return nil, nil, fmt.Errorf("workflow %s: unknown target state %q", name, to)
				}
				edges = append(edges, toState)
			}
			table[fromState] = edges
		}
		tables[workflowType] = table

		if len(def.Path) > 0 {
			path := make([]WorkflowState, 0, len(def.Path))
			for _, s := range def.Path {
				state := WorkflowState(s)
				if !state.Valid() {
					return nil, nil, fmt.Errorf("workflow %s: unknown path state %q", name, s)
				}
				path = append(path, state)
			}
			paths[workflowType] = path
		}
	}

	return tables, paths, nil
}

// ApplyDefinitions installs table and path overrides, then re-validates the
// whole table set. On validation failure the built-ins are restored so a bad
// definitions file can never leave the process with broken tables.
func ApplyDefinitions(tables map[WorkflowType]TransitionTable, paths map[WorkflowType][]WorkflowState) error {
	savedTables := make(map[WorkflowType]TransitionTable, len(transitionTables))
	for t, table := range transitionTables {
		savedTables[t] = table
	}
	savedPaths := make(map[WorkflowType][]WorkflowState, len(happyPaths))
	for t, path := range happyPaths {
		savedPaths[t] = path
	}

	for t, table := range tables {
		transitionTables[t] = table
	}
	for t, path := range paths {
		happyPaths[t] = path
	}

	if err := ValidateTables(); err != nil {
		for t, table := range savedTables {
			transitionTables[t] = table
		}
		for t, path := range savedPaths {
			happyPaths[t] = path
		}
		return fmt.Errorf("workflow definition overrides rejected: %w", err)
	}

	return nil
}
