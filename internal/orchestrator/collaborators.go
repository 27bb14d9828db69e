package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
)

// DocumentRegistry stores specialist work products. The core only records
// the returned ids in the workflow context.
type DocumentRegistry interface {
	CreateDocument(ctx context.Context, documentType, content, provenance string) (types.ID, error)
}

// VotingService submits a drafted proposal to the dual-house vote. The vote
// itself is external; its completion comes back as task completion.
type VotingService interface {
	SubmitForVote(ctx context.Context, workflowID types.ID, documentIDs []types.ID) (types.ID, error)
}

// ApprovalService requests human approval for elevated-risk actions.
type ApprovalService interface {
	RequestApproval(ctx context.Context, workflowID types.ID, riskLevel types.RiskLevel) (types.ID, error)
}

// LockService is the safe-autonomy lock around HIGH-risk executions.
type LockService interface {
	LockAction(ctx context.Context, actionID types.ID, reason string) (types.ID, error)
	UnlockAction(ctx context.Context, lockID types.ID) error
}

// MemoryDocumentRegistry keeps documents in memory. The production registry
// is external; this stand-in serves tests and local runs.
type MemoryDocumentRegistry struct {
	mu        sync.Mutex
	documents map[types.ID]StoredDocument
}

// StoredDocument is one document held by the in-memory registry.
type StoredDocument struct {
	ID           types.ID
	DocumentType string
	Content      string
	Provenance   string
	CreatedAt    time.Time
}

// NewMemoryDocumentRegistry creates an empty in-memory registry.
func NewMemoryDocumentRegistry() *MemoryDocumentRegistry {
	return &MemoryDocumentRegistry{documents: make(map[types.ID]StoredDocument)}
}

// CreateDocument stores the document and returns its fresh id.
func (r *MemoryDocumentRegistry) CreateDocument(ctx context.Context, documentType, content, provenance string) (types.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := types.NewID()
	r.documents[id] = StoredDocument{
		ID:           id,
		DocumentType: documentType,
		Content:      content,
		Provenance:   provenance,
		CreatedAt:    time.Now(),
	}
	return id, nil
}

// Document returns a stored document by id.
func (r *MemoryDocumentRegistry) Document(id types.ID) (StoredDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	return doc, ok
}

// Count returns the number of stored documents.
func (r *MemoryDocumentRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

// MemoryVotingService auto-assigns voting ids. Stands in for the external
// dual-house voting system in tests and local runs.
type MemoryVotingService struct {
	mu          sync.Mutex
	submissions map[types.ID]types.ID
}

// NewMemoryVotingService creates the stand-in voting service.
func NewMemoryVotingService() *MemoryVotingService {
	return &MemoryVotingService{submissions: make(map[types.ID]types.ID)}
}

// SubmitForVote records the submission and returns a fresh voting id.
func (v *MemoryVotingService) SubmitForVote(ctx context.Context, workflowID types.ID, documentIDs []types.ID) (types.ID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	votingID := types.NewID()
	v.submissions[workflowID] = votingID
	return votingID, nil
}

// VotingID returns the voting id assigned to a workflow, if any.
func (v *MemoryVotingService) VotingID(workflowID types.ID) (types.ID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.submissions[workflowID]
	return id, ok
}

// MemoryApprovalService auto-grants approvals with fresh ids.
type MemoryApprovalService struct {
	mu       sync.Mutex
	requests map[types.ID]types.RiskLevel
}

// NewMemoryApprovalService creates the stand-in approval service.
func NewMemoryApprovalService() *MemoryApprovalService {
	return &MemoryApprovalService{requests: make(map[types.ID]types.RiskLevel)}
}

// RequestApproval records the request and returns a fresh approval id.
func (a *MemoryApprovalService) RequestApproval(ctx context.Context, workflowID types.ID, riskLevel types.RiskLevel) (types.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests[workflowID] = riskLevel
	return types.NewID(), nil
}

// Requested returns the risk level an approval was requested at, if any.
func (a *MemoryApprovalService) Requested(workflowID types.ID) (types.RiskLevel, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	level, ok := a.requests[workflowID]
	return level, ok
}

// MemoryLockService tracks held locks in memory.
type MemoryLockService struct {
	mu    sync.Mutex
	locks map[types.ID]types.ID
}

// NewMemoryLockService creates the stand-in lock service.
func NewMemoryLockService() *MemoryLockService {
	return &MemoryLockService{locks: make(map[types.ID]types.ID)}
}

// LockAction takes a lock for the action and returns the lock id.
func (l *MemoryLockService) LockAction(ctx context.Context, actionID types.ID, reason string) (types.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lockID := types.NewID()
	l.locks[lockID] = actionID
	return lockID, nil
}

// UnlockAction releases a held lock.
func (l *MemoryLockService) UnlockAction(ctx context.Context, lockID types.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.locks[lockID]; !ok {
		return types.NewError(types.ORCHESTRATOR_DISPATCH_ERROR, "unknown lock id "+lockID.String())
	}
	delete(l.locks, lockID)
	return nil
}

// HeldLocks returns the number of currently held locks.
func (l *MemoryLockService) HeldLocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var (
	_ DocumentRegistry = (*MemoryDocumentRegistry)(nil)
	_ VotingService    = (*MemoryVotingService)(nil)
	_ ApprovalService  = (*MemoryApprovalService)(nil)
	_ LockService      = (*MemoryLockService)(nil)
)
