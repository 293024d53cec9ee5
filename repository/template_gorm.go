package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/template"
	"gorm.io/gorm"
)

type templateModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index:idx_templates_name;not null"`
	Category  string `gorm:"index:idx_templates_category"`
	Content   string `gorm:"type:text;not null"`
	Variables string `gorm:"type:text;default:'[]'"` // JSON
	ImageURL  string
}

func (templateModel) TableName() string {
	return "message_templates"
}

type TemplateGormRepository struct {
	db *gorm.DB
}

func NewTemplateGormRepository(db *gorm.DB) *TemplateGormRepository {
	return &TemplateGormRepository{db: db}
}

func (r *TemplateGormRepository) Create(ctx context.Context, t *template.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m := toTemplateModel(t)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *TemplateGormRepository) GetByID(ctx context.Context, id string) (*template.Template, error) {
	var m templateModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	t := fromTemplateModel(m)
	return &t, nil
}

func (r *TemplateGormRepository) List(ctx context.Context, category string) ([]template.Template, error) {
	query := r.db.WithContext(ctx).Model(&templateModel{}).Order("name ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var models []templateModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]template.Template, len(models))
	for i, m := range models {
		out[i] = fromTemplateModel(m)
	}
	return out, nil
}

func (r *TemplateGormRepository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&templateModel{}).
		Distinct("category").
		Where("category <> ''").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *TemplateGormRepository) Update(ctx context.Context, t *template.Template) error {
	m := toTemplateModel(t)
	result := r.db.WithContext(ctx).Model(&templateModel{ID: t.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TemplateGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&templateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func toTemplateModel(t *template.Template) templateModel {
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	varsJSON, _ := json.Marshal(vars)
	return templateModel{
		ID:        t.ID,
		Name:      t.Name,
		Category:  t.Category,
		Content:   t.Content,
		Variables: string(varsJSON),
		ImageURL:  t.ImageURL,
	}
}

func fromTemplateModel(m templateModel) template.Template {
	t := template.Template{
		ID:       m.ID,
		Name:     m.Name,
		Category: m.Category,
		Content:  m.Content,
		ImageURL: m.ImageURL,
	}
	if m.Variables != "" {
		_ = json.Unmarshal([]byte(m.Variables), &t.Variables)
	}
	if t.Variables == nil {
		t.Variables = []string{}
	}
	return t
}
