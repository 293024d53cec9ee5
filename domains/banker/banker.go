package banker

import (
	"context"
	"time"
)

type Banker struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	AgentNumber     string    `json:"agent_number"`
	BankName        string    `json:"bank_name"`
	WhatsappGroupID string    `json:"whatsapp_group_id"`
	RoutingKeywords []string  `json:"routing_keywords"`
	Priority        int       `json:"priority"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	AgentNumber     string   `json:"agent_number"`
	BankName        string   `json:"bank_name"`
	WhatsappGroupID string   `json:"whatsapp_group_id"`
	RoutingKeywords []string `json:"routing_keywords"`
	Priority        int      `json:"priority"`
	IsActive        *bool    `json:"is_active"`
}

type UpdateRequest struct {
	ID              string    `json:"id"`
	Name            *string   `json:"name"`
	DisplayName     *string   `json:"display_name"`
	AgentNumber     *string   `json:"agent_number"`
	BankName        *string   `json:"bank_name"`
	WhatsappGroupID *string   `json:"whatsapp_group_id"`
	RoutingKeywords *[]string `json:"routing_keywords"`
	Priority        *int      `json:"priority"`
	IsActive        *bool     `json:"is_active"`
}

type IBankerRepository interface {
	Create(ctx context.Context, b *Banker) error
	GetByID(ctx context.Context, id string) (*Banker, error)
	List(ctx context.Context, activeOnly bool) ([]Banker, error)
	ListBankNames(ctx context.Context) ([]string, error)
	Update(ctx context.Context, b *Banker) error
	Delete(ctx context.Context, id string) error
}

type IBankerUsecase interface {
	Create(ctx context.Context, request CreateRequest) (*Banker, error)
	Get(ctx context.Context, id string) (*Banker, error)
	List(ctx context.Context) ([]Banker, error)
	ListBankNames(ctx context.Context) ([]string, error)
	Update(ctx context.Context, request UpdateRequest) (*Banker, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string, isActive bool) (*Banker, error)

	// Route selects the active banker with the highest priority whose
	// routing keywords appear in body, ties broken by earliest creation.
	Route(ctx context.Context, body string) (*Banker, error)
}
