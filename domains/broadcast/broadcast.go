package broadcast

import (
	"context"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"

	MessagePending = "pending"
	MessageSending = "sending"
	MessageSent    = "sent"
	MessageFailed  = "failed"

	DelayMode1to2 = "1-2min"
	DelayMode2to3 = "2-3min"
)

type Execution struct {
	ID                  string     `json:"id"`
	BroadcastID         string     `json:"broadcast_id"`
	Status              string     `json:"status"`
	TotalContacts       int        `json:"total_contacts"`
	CurrentIndex        int        `json:"current_index"`
	SentCount           int        `json:"sent_count"`
	FailedCount         int        `json:"failed_count"`
	MessageContent      string     `json:"message_content"`
	ImageURL            string     `json:"image_url,omitempty"`
	DelayMode           string     `json:"delay_mode"`
	NotificationContact string     `json:"notification_contact,omitempty"`
	StartedAt           time.Time  `json:"started_at"`
	LastSentAt          *time.Time `json:"last_sent_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Error               string     `json:"error,omitempty"`
}

type Message struct {
	ID             string     `json:"id"`
	ExecutionID    string     `json:"execution_id"`
	ContactID      string     `json:"contact_id,omitempty"`
	RecipientName  string     `json:"recipient_name"`
	RecipientPhone string     `json:"recipient_phone"`
	SendOrder      int        `json:"send_order"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type TargetContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type StartRequest struct {
	Contacts            []TargetContact `json:"contacts"`
	Message             string          `json:"message"`
	ImageURL            string          `json:"image_url"`
	DelayMode           string          `json:"delay_mode"`
	NotificationContact string          `json:"notification_contact"`
}

type StartResponse struct {
	BroadcastID string `json:"broadcast_id"`
	ExecutionID string `json:"execution_id"`
	Total       int    `json:"total"`
	DelayMode   string `json:"delay_mode"`
}

// StatusReport is the dashboard view of one execution.
type StatusReport struct {
	Execution Execution      `json:"execution"`
	Messages  []Message      `json:"messages"`
	Summary   map[string]any `json:"summary"`
}

type IBroadcastRepository interface {
	// CreateExecution is keyed by broadcast_id; a duplicate key returns the
	// existing row without error.
	CreateExecution(ctx context.Context, e *Execution) error
	GetExecution(ctx context.Context, idOrBroadcastID string) (*Execution, error)
	UpdateExecution(ctx context.Context, e *Execution) error
	ListExecutions(ctx context.Context, status string, limit int) ([]Execution, error)

	BulkCreateMessages(ctx context.Context, msgs []Message) error
	UpdateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, executionID string) ([]Message, error)
}

type IBroadcastUsecase interface {
	Start(ctx context.Context, request StartRequest) (*StartResponse, error)
	Status(ctx context.Context, idOrBroadcastID string) (*StatusReport, error)
	History(ctx context.Context, status string, limit int) ([]Execution, error)
	Cancel(ctx context.Context, idOrBroadcastID string) error
}
