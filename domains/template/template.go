package template

import "context"

type Template struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
	ImageURL  string   `json:"image_url,omitempty"`
}

type CreateRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type UpdateRequest struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

type DuplicateRequest struct {
	ID      string `json:"id"`
	NewName string `json:"new_name"`
}

type ITemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context, category string) ([]Template, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id string) error
}

type ITemplateUsecase interface {
	Create(ctx context.Context, request CreateRequest) (*Template, error)
	Get(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context, category string) ([]Template, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, request UpdateRequest) (*Template, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, request DuplicateRequest) (*Template, error)
	Render(content string, vars map[string]string) string
}
