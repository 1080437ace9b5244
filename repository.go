package dagflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// WorkflowStatus is the persisted status of a workflow definition. Active
// and Archived describe the registry lifecycle; the remaining values record
// the terminal status of the latest run.
type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "active"
	WorkflowStatusArchived  WorkflowStatus = "archived"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// workflowStatusFor maps a terminal execution status onto the status the
// repository records for the workflow.
func workflowStatusFor(status ExecutionStatus) WorkflowStatus {
	switch status {
	case ExecutionStatusCompleted:
		return WorkflowStatusCompleted
	case ExecutionStatusCancelled:
		return WorkflowStatusCancelled
	default:
		return WorkflowStatusFailed
	}
}

// WorkflowRecord is the persisted form of a registered workflow.
type WorkflowRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
	Status     WorkflowStatus  `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// WorkflowRepository stores workflow definitions. The engine writes through
// it on registration and updates; implementations decide durability.
type WorkflowRepository interface {
	// Create stores a new workflow record.
	Create(ctx context.Context, record *WorkflowRecord) error

	// Find retrieves a workflow record by id. Returns ErrWorkflowNotFound
	// when no record exists.
	Find(ctx context.Context, id string) (*WorkflowRecord, error)

	// UpdateStatus changes a workflow's lifecycle status.
	UpdateStatus(ctx context.Context, id string, status WorkflowStatus) error

	// UpdateDefinition replaces a workflow's stored definition.
	UpdateDefinition(ctx context.Context, id string, definition json.RawMessage) error
}

// MemoryWorkflowRepository is an in-process WorkflowRepository. It is the
// default repository when the engine is constructed without one.
type MemoryWorkflowRepository struct {
	mutex   sync.RWMutex
	records map[string]*WorkflowRecord
}

func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{records: map[string]*WorkflowRecord{}}
}

func (r *MemoryWorkflowRepository) Create(ctx context.Context, record *WorkflowRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := *record
	if stored.Status == "" {
		stored.Status = WorkflowStatusActive
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.records[stored.ID] = &stored
	return nil
}

func (r *MemoryWorkflowRepository) Find(ctx context.Context, id string) (*WorkflowRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryWorkflowRepository) UpdateStatus(ctx context.Context, id string, status WorkflowStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ErrWorkflowNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryWorkflowRepository) UpdateDefinition(ctx context.Context, id string, definition json.RawMessage) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ErrWorkflowNotFound
	}
	record.Definition = definition
	record.UpdatedAt = time.Now()
	return nil
}
