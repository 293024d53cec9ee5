package usecase

import (
	"context"
	"regexp"
	"strings"

	domainTemplate "github.com/keyquest/wa-gateway/domains/template"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/validations"
)

var templateVarPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

type serviceTemplate struct {
	repo domainTemplate.ITemplateRepository
}

func NewTemplateService(repo domainTemplate.ITemplateRepository) domainTemplate.ITemplateUsecase {
	return &serviceTemplate{repo: repo}
}

func (service serviceTemplate) Create(ctx context.Context, request domainTemplate.CreateRequest) (*domainTemplate.Template, error) {
	if err := validations.ValidateCreateTemplate(ctx, request); err != nil {
		return nil, err
	}

	t := &domainTemplate.Template{
		Name:      request.Name,
		Category:  request.Category,
		Content:   request.Content,
		Variables: ExtractVariables(request.Content),
		ImageURL:  request.ImageURL,
	}
	if err := service.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (service serviceTemplate) Get(ctx context.Context, id string) (*domainTemplate.Template, error) {
	t, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, pkgError.NotFoundError("template not found")
	}
	return t, nil
}

func (service serviceTemplate) List(ctx context.Context, category string) ([]domainTemplate.Template, error) {
	return service.repo.List(ctx, category)
}

func (service serviceTemplate) ListCategories(ctx context.Context) ([]string, error) {
	return service.repo.ListCategories(ctx)
}

func (service serviceTemplate) Update(ctx context.Context, request domainTemplate.UpdateRequest) (*domainTemplate.Template, error) {
	t, err := service.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	if request.Name != nil {
		t.Name = *request.Name
	}
	if request.Category != nil {
		t.Category = *request.Category
	}
	if request.Content != nil {
		t.Content = *request.Content
		t.Variables = ExtractVariables(t.Content)
	}
	if request.ImageURL != nil {
		t.ImageURL = *request.ImageURL
	}

	if err := service.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (service serviceTemplate) Delete(ctx context.Context, id string) error {
	if _, err := service.Get(ctx, id); err != nil {
		return err
	}
	return service.repo.Delete(ctx, id)
}

func (service serviceTemplate) Duplicate(ctx context.Context, request domainTemplate.DuplicateRequest) (*domainTemplate.Template, error) {
	if err := validations.ValidateDuplicateTemplate(ctx, request); err != nil {
		return nil, err
	}

	src, err := service.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	copy := &domainTemplate.Template{
		Name:      request.NewName,
		Category:  src.Category,
		Content:   src.Content,
		Variables: src.Variables,
		ImageURL:  src.ImageURL,
	}
	if err := service.repo.Create(ctx, copy); err != nil {
		return nil, err
	}
	return copy, nil
}

// Render substitutes {{var}} placeholders from vars. Placeholders without a
// binding pass through untouched so a preview shows what is missing.
func (service serviceTemplate) Render(content string, vars map[string]string) string {
	return templateVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.Trim(match, "{}")
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// ExtractVariables lists the distinct placeholder names in order of first
// appearance.
func ExtractVariables(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range templateVarPattern.FindAllStringSubmatch(content, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
