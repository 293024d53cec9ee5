package workflow

import (
	"context"
	"time"
)

type Workflow struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	TriggerType   string    `json:"trigger_type"` // keyword, schedule, manual, webhook
	TriggerConfig string    `json:"trigger_config"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Execution struct {
	ID             string     `json:"id"`
	WorkflowID     string     `json:"workflow_id"`
	Status         string     `json:"status"` // pending, running, completed, failed, cancelled
	TriggerPayload string     `json:"trigger_payload"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

const (
	ExecutionPending   = "pending"
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
	ExecutionCancelled = "cancelled"
)

type CreateRequest struct {
	Name          string `json:"name"`
	TriggerType   string `json:"trigger_type"`
	TriggerConfig string `json:"trigger_config"`
	IsActive      *bool  `json:"is_active"`
}

type UpdateRequest struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	TriggerType   *string `json:"trigger_type"`
	TriggerConfig *string `json:"trigger_config"`
	IsActive      *bool   `json:"is_active"`
}

type IWorkflowRepository interface {
	Create(ctx context.Context, w *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	GetByName(ctx context.Context, name string) (*Workflow, error)
	List(ctx context.Context) ([]Workflow, error)
	Update(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id string) error

	CreateExecution(ctx context.Context, e *Execution) error
	UpdateExecution(ctx context.Context, e *Execution) error
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error)
}

type IWorkflowUsecase interface {
	Create(ctx context.Context, request CreateRequest) (*Workflow, error)
	Get(ctx context.Context, id string) (*Workflow, error)
	List(ctx context.Context) ([]Workflow, error)
	Update(ctx context.Context, request UpdateRequest) (*Workflow, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string, isActive bool) (*Workflow, error)
}
