// Package issue defines the detected-issue data model and the priority
// scoring that feeds workflow type selection.
package issue

import (
	"fmt"
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
)

// Category is the fixed topic taxonomy for detected issues. The taxonomy is
// closed: signal collectors must map raw signals onto one of these values
// before an issue reaches the orchestrator.
type Category string

const (
	CategoryAcademic    Category = "academic"
	CategoryCommunity   Category = "community"
	CategoryDevelopment Category = "development"
	CategoryEcosystem   Category = "ecosystem"
	CategoryTreasury    Category = "treasury"
	CategoryProtocol    Category = "protocol"
	CategorySecurity    Category = "security"
	CategoryProcess     Category = "process"
)

// Categories returns all valid categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryAcademic,
		CategoryCommunity,
		CategoryDevelopment,
		CategoryEcosystem,
		CategoryTreasury,
		CategoryProtocol,
		CategorySecurity,
		CategoryProcess,
	}
}

// Valid reports whether the category belongs to the fixed taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Status tracks the orchestrator-owned lifecycle of an issue. All other
// fields are immutable once a workflow starts.
type Status string

const (
	StatusDetected   Status = "detected"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Issue represents a detected governance issue awaiting or undergoing a
// decision workflow. Identity, description, and signal linkage are immutable
// once a workflow starts; only Status and UpdatedAt are owned (and mutated)
// by the orchestrator.
type Issue struct {
	ID          types.ID `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`

	// Priority is the computed priority score. Zero until Score is called.
	Priority PriorityScore `json:"priority"`

	// Source names the signal collector that detected the issue.
	Source string `json:"source,omitempty"`

	// SignalIDs links the issue back to the raw signals that produced it.
	SignalIDs []types.ID `json:"signal_ids,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a detected issue with a fresh ID and timestamps.
func New(title, description string, category Category) (*Issue, error) {
	if title == "" {
		return nil, fmt.Errorf("issue title cannot be empty")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("invalid issue category: %q", category)
	}

	now := time.Now()
	return &Issue{
		ID:          types.NewID(),
		Title:       title,
		Description: description,
		Category:    category,
		Status:      StatusDetected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks structural integrity of an issue handed to the orchestrator.
func (i *Issue) Validate() error {
	if err := i.ID.Validate(); err != nil {
		return fmt.Errorf("issue ID: %w", err)
	}
	if i.Title == "" {
		return fmt.Errorf("issue %s has no title", i.ID)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("issue %s has invalid category %q", i.ID, i.Category)
	}
	return nil
}
