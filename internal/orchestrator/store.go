package orchestrator

import (
	"context"
	"sync"

	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// WorkflowStore persists workflow contexts. The orchestrator is the only
// writer; the store is a pluggable repository so the in-memory stand-in and
// the durable SQLite implementation are interchangeable.
type WorkflowStore interface {
	// Save persists a new workflow context.
	Save(ctx context.Context, wf *workflow.Context) error

	// Get returns the workflow by id, or WORKFLOW_NOT_FOUND.
	Get(ctx context.Context, id types.ID) (*workflow.Context, error)

	// Update persists changes to an existing workflow.
	Update(ctx context.Context, wf *workflow.Context) error

	// List returns every stored workflow.
	List(ctx context.Context) ([]*workflow.Context, error)

	// ListActive returns workflows not yet in a terminal state, for
	// crash-recovery resumption.
	ListActive(ctx context.Context) ([]*workflow.Context, error)
}

// MemoryWorkflowStore is the in-memory WorkflowStore. Contexts are cloned on
// every boundary so callers can never alias stored state.
type MemoryWorkflowStore struct {
	mu        sync.RWMutex
	workflows map[types.ID]*workflow.Context
	order     []types.ID
}

// NewMemoryWorkflowStore creates an empty in-memory store.
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{workflows: make(map[types.ID]*workflow.Context)}
}

// Save persists a new workflow context.
func (s *MemoryWorkflowStore) Save(ctx context.Context, wf *workflow.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return types.NewError(types.DB_QUERY_FAILED,
			"workflow "+wf.ID.String()+" already exists")
	}
	s.workflows[wf.ID] = wf.Clone()
	s.order = append(s.order, wf.ID)
	return nil
}

// Get returns the workflow by id.
func (s *MemoryWorkflowStore) Get(ctx context.Context, id types.ID) (*workflow.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, types.NewError(types.WORKFLOW_NOT_FOUND, "workflow "+id.String()+" not found")
	}
	return wf.Clone(), nil
}

// Update persists changes to an existing workflow.
func (s *MemoryWorkflowStore) Update(ctx context.Context, wf *workflow.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[wf.ID]; !ok {
		return types.NewError(types.WORKFLOW_NOT_FOUND, "workflow "+wf.ID.String()+" not found")
	}
	s.workflows[wf.ID] = wf.Clone()
	return nil
}

// List returns every stored workflow in insertion order.
func (s *MemoryWorkflowStore) List(ctx context.Context) ([]*workflow.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Context, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.workflows[id].Clone())
	}
	return out, nil
}

// ListActive returns workflows not yet in a terminal state.
func (s *MemoryWorkflowStore) ListActive(ctx context.Context) ([]*workflow.Context, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var active []*workflow.Context
	for _, wf := range all {
		if !wf.State.Terminal() {
			active = append(active, wf)
		}
	}
	return active, nil
}

var _ WorkflowStore = (*MemoryWorkflowStore)(nil)
