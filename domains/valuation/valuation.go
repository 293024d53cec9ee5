package valuation

import (
	"context"
	"time"
)

const (
	StatusPending         = "pending"
	StatusForwarded       = "forwarded"
	StatusRepliedByBanker = "replied_by_banker"
	StatusCompleted       = "completed"
)

type Request struct {
	ID                         string     `json:"id"`
	RequesterGroupID           string     `json:"requester_group_id"`
	RequestMessageID           string     `json:"request_message_id"`
	Address                    string     `json:"address"`
	Size                       string     `json:"size"`
	Asking                     string     `json:"asking"`
	SalespersonName            string     `json:"salesperson_name"`
	AgentNumberRaw             string     `json:"agent_number_raw"`
	AgentPhoneE164             string     `json:"agent_phone_e164"`
	AgentWhatsappID            string     `json:"agent_whatsapp_id"`
	BankerNameRequested        string     `json:"banker_name_requested"`
	BankerID                   string     `json:"banker_id"`
	BankerName                 string     `json:"banker_name"`
	TargetGroupID              string     `json:"target_group_id"`
	ForwardMessageID           string     `json:"forward_message_id,omitempty"`
	ForwardedAt                *time.Time `json:"forwarded_at,omitempty"`
	AcknowledgmentMessageID    string     `json:"acknowledgment_message_id,omitempty"`
	BankerReplyMessageID       string     `json:"banker_reply_message_id,omitempty"`
	BankerReplyText            string     `json:"banker_reply_text,omitempty"`
	BankerRepliedAt            *time.Time `json:"banker_replied_at,omitempty"`
	FinalReplyMessageID        string     `json:"final_reply_message_id,omitempty"`
	AgentNotificationMessageID string     `json:"agent_notification_message_id,omitempty"`
	Status                     string     `json:"status"`
	CreatedAt                  time.Time  `json:"created_at"`
	CompletedAt                *time.Time `json:"completed_at,omitempty"`
}

// CreateRequest is a manually filed valuation record from the dashboard, as
// opposed to one captured off an agent group message.
type CreateRequest struct {
	Address             string `json:"address"`
	Size                string `json:"size"`
	Asking              string `json:"asking"`
	SalespersonName     string `json:"salesperson_name"`
	AgentNumber         string `json:"agent_number"`
	BankerNameRequested string `json:"banker_name"`
	RequesterGroupID    string `json:"requester_group_id"`
}

type UpdateRequest struct {
	ID              string  `json:"-"`
	Address         *string `json:"address"`
	Size            *string `json:"size"`
	Asking          *string `json:"asking"`
	SalespersonName *string `json:"salesperson_name"`
	BankerReplyText *string `json:"banker_reply_text"`
	Status          *string `json:"status"`
}

type IValuationRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)

	// GetByForwardMessageID is the join a quoted banker reply uses to find
	// the original request.
	GetByForwardMessageID(ctx context.Context, forwardMessageID, targetGroupID string) (*Request, error)

	List(ctx context.Context, status string, limit int) ([]Request, error)
	Update(ctx context.Context, r *Request) error
	Delete(ctx context.Context, id string) error
}

type IValuationUsecase interface {
	Create(ctx context.Context, request CreateRequest) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, status string, limit int) ([]Request, error)
	Update(ctx context.Context, request UpdateRequest) (*Request, error)
	Delete(ctx context.Context, id string) error
}
