package contact

import (
	"context"
	"time"
)

type List struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

type Contact struct {
	ID       string `json:"id"`
	ListID   string `json:"list_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Tier     string `json:"tier,omitempty"`
	IsActive bool   `json:"is_active"`
}

type CreateListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

type ImportContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

type ImportRequest struct {
	ListID   string          `json:"list_id"`
	Contacts []ImportContact `json:"contacts"`
}

// ImportSummary reports what an import actually did. Duplicates within a
// list are dropped silently, not errored.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Rejected int `json:"rejected"`
}

type IContactRepository interface {
	CreateList(ctx context.Context, l *List) error
	GetList(ctx context.Context, id string) (*List, error)
	ListLists(ctx context.Context) ([]List, error)
	DeleteList(ctx context.Context, id string) error

	// CreateContact treats a (list_id, phone) unique violation as
	// idempotent success and reports it via the bool return.
	CreateContact(ctx context.Context, c *Contact) (inserted bool, err error)
	GetContact(ctx context.Context, id string) (*Contact, error)
	ListContacts(ctx context.Context, listID string) ([]Contact, error)
	UpdateContact(ctx context.Context, c *Contact) error
	DeleteContact(ctx context.Context, id string) error
}

type IContactUsecase interface {
	CreateList(ctx context.Context, request CreateListRequest) (*List, error)
	GetList(ctx context.Context, id string) (*List, error)
	ListLists(ctx context.Context) ([]List, error)
	DeleteList(ctx context.Context, id string) error
	Import(ctx context.Context, request ImportRequest) (*ImportSummary, error)
	ListContacts(ctx context.Context, listID string) ([]Contact, error)
	UpdateContact(ctx context.Context, c Contact) (*Contact, error)
	DeleteContact(ctx context.Context, id string) error
}
