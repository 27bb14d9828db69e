package todo

import (
	"context"
	"sort"
	"sync"

	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
)

// TaskStore is the persistence contract for tasks (repository pattern). The
// TodoManager is its only writer; production swaps the SQLite implementation
// in behind the same contract without touching manager logic.
type TaskStore interface {
	// Save persists a new task. Returns types.TASK_DUPLICATE if a task with
	// the same (workflow, stage, specialist) key already exists.
	Save(ctx context.Context, task *Task) error

	// Get retrieves a task by ID.
	Get(ctx context.Context, id types.ID) (*Task, error)

	// Update persists changed fields of an existing task.
	Update(ctx context.Context, task *Task) error

	// ListByWorkflow returns all tasks of a workflow ordered by creation.
	ListByWorkflow(ctx context.Context, workflowID types.ID) ([]*Task, error)

	// FindByKey returns the task with the given idempotency key, or nil.
	FindByKey(ctx context.Context, workflowID types.ID, stage string, code specialist.Code) (*Task, error)

	// NextSeq returns the next creation sequence number for a workflow.
	NextSeq(ctx context.Context, workflowID types.ID) (int64, error)
}

// MemoryTaskStore is an in-memory TaskStore for tests and ephemeral runs.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[types.ID]*Task
	seqs  map[types.ID]int64
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[types.ID]*Task),
		seqs:  make(map[types.ID]int64),
	}
}

// Save persists a new task, enforcing the idempotency key.
func (s *MemoryTaskStore) Save(ctx context.Context, task *Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tasks {
		if existing.WorkflowID == task.WorkflowID &&
			existing.Stage == task.Stage &&
			existing.SpecialistCode == task.SpecialistCode {
			return types.NewError(types.TASK_DUPLICATE,
				"task already exists for this workflow, stage, and specialist")
		}
	}

	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

// Get retrieves a task by ID.
func (s *MemoryTaskStore) Get(ctx context.Context, id types.ID) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, types.NewError(types.TASK_NOT_FOUND, "task "+id.String()+" not found")
	}
	clone := *task
	return &clone, nil
}

// Update persists changed fields of an existing task.
func (s *MemoryTaskStore) Update(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return types.NewError(types.TASK_NOT_FOUND, "task "+task.ID.String()+" not found")
	}
	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

// ListByWorkflow returns all tasks of a workflow ordered by creation.
func (s *MemoryTaskStore) ListByWorkflow(ctx context.Context, workflowID types.ID) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*Task
	for _, task := range s.tasks {
		if task.WorkflowID == workflowID {
			clone := *task
			tasks = append(tasks, &clone)
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Seq < tasks[j].Seq })
	return tasks, nil
}

// FindByKey returns the task with the given idempotency key, or nil.
func (s *MemoryTaskStore) FindByKey(ctx context.Context, workflowID types.ID, stage string, code specialist.Code) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, task := range s.tasks {
		if task.WorkflowID == workflowID && task.Stage == stage && task.SpecialistCode == code {
			clone := *task
			return &clone, nil
		}
	}
	return nil, nil
}

// NextSeq returns the next creation sequence number for a workflow.
func (s *MemoryTaskStore) NextSeq(ctx context.Context, workflowID types.ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[workflowID]++
	return s.seqs[workflowID], nil
}

var _ TaskStore = (*MemoryTaskStore)(nil)
