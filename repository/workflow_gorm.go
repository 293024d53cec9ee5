package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/workflow"
	"gorm.io/gorm"
)

type workflowModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex:idx_workflows_name;not null"`
	TriggerType   string `gorm:"index:idx_workflows_trigger;not null"`
	TriggerConfig string `gorm:"type:text;default:'{}'"`
	IsActive      bool   `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (workflowModel) TableName() string {
	return "workflows"
}

type workflowExecutionModel struct {
	ID             string `gorm:"primaryKey"`
	WorkflowID     string `gorm:"index:idx_workflow_executions_workflow;not null"`
	Status         string `gorm:"index:idx_workflow_executions_status;not null"`
	TriggerPayload string `gorm:"type:text"`
	StartedAt      time.Time
	CompletedAt    *time.Time
	Error          string `gorm:"type:text"`
}

func (workflowExecutionModel) TableName() string {
	return "workflow_executions"
}

type WorkflowGormRepository struct {
	db *gorm.DB
}

func NewWorkflowGormRepository(db *gorm.DB) *WorkflowGormRepository {
	return &WorkflowGormRepository{db: db}
}

func (r *WorkflowGormRepository) Create(ctx context.Context, w *workflow.Workflow) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	m := toWorkflowModel(w)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *WorkflowGormRepository) GetByID(ctx context.Context, id string) (*workflow.Workflow, error) {
	var m workflowModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	w := fromWorkflowModel(m)
	return &w, nil
}

func (r *WorkflowGormRepository) GetByName(ctx context.Context, name string) (*workflow.Workflow, error) {
	var m workflowModel
	if err := r.db.WithContext(ctx).First(&m, "name = ?", name).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	w := fromWorkflowModel(m)
	return &w, nil
}

func (r *WorkflowGormRepository) List(ctx context.Context) ([]workflow.Workflow, error) {
	var models []workflowModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]workflow.Workflow, len(models))
	for i, m := range models {
		out[i] = fromWorkflowModel(m)
	}
	return out, nil
}

func (r *WorkflowGormRepository) Update(ctx context.Context, w *workflow.Workflow) error {
	w.UpdatedAt = time.Now().UTC()
	m := toWorkflowModel(w)
	result := r.db.WithContext(ctx).Model(&workflowModel{ID: w.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *WorkflowGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&workflowModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *WorkflowGormRepository) CreateExecution(ctx context.Context, e *workflow.Execution) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m := workflowExecutionModel(*e)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *WorkflowGormRepository) UpdateExecution(ctx context.Context, e *workflow.Execution) error {
	m := workflowExecutionModel(*e)
	return r.db.WithContext(ctx).Model(&workflowExecutionModel{ID: e.ID}).Select("*").Updates(&m).Error
}

func (r *WorkflowGormRepository) ListExecutions(ctx context.Context, workflowID string, limit int) ([]workflow.Execution, error) {
	query := r.db.WithContext(ctx).Model(&workflowExecutionModel{}).Order("started_at DESC")
	if workflowID != "" {
		query = query.Where("workflow_id = ?", workflowID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []workflowExecutionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]workflow.Execution, len(models))
	for i, m := range models {
		out[i] = workflow.Execution(m)
	}
	return out, nil
}

func toWorkflowModel(w *workflow.Workflow) workflowModel {
	return workflowModel(*w)
}

func fromWorkflowModel(m workflowModel) workflow.Workflow {
	return workflow.Workflow(m)
}
