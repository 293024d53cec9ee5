package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/broadcast"
	"gorm.io/gorm"
)

type broadcastExecutionModel struct {
	ID                  string `gorm:"primaryKey"`
	BroadcastID         string `gorm:"uniqueIndex:idx_broadcast_executions_bid;not null"`
	Status              string `gorm:"index:idx_broadcast_executions_status;not null"`
	TotalContacts       int
	CurrentIndex        int
	SentCount           int
	FailedCount         int
	MessageContent      string `gorm:"type:text"`
	ImageURL            string
	DelayMode           string
	NotificationContact string
	StartedAt           time.Time
	LastSentAt          *time.Time
	CompletedAt         *time.Time
	Error               string `gorm:"type:text"`
}

func (broadcastExecutionModel) TableName() string {
	return "broadcast_executions"
}

type broadcastMessageModel struct {
	ID             string `gorm:"primaryKey"`
	ExecutionID    string `gorm:"index:idx_broadcast_messages_exec;not null"`
	ContactID      string
	RecipientName  string
	RecipientPhone string `gorm:"not null"`
	SendOrder      int
	Status         string `gorm:"index:idx_broadcast_messages_status;not null"`
	SentAt         *time.Time
	Error          string `gorm:"type:text"`
}

func (broadcastMessageModel) TableName() string {
	return "broadcast_messages"
}

type BroadcastGormRepository struct {
	db *gorm.DB
}

func NewBroadcastGormRepository(db *gorm.DB) *BroadcastGormRepository {
	return &BroadcastGormRepository{db: db}
}

// CreateExecution inserts the row, or loads the existing one when the
// broadcast id was already started. Retried dashboard submits resolve to
// the first execution instead of double-sending.
func (r *BroadcastGormRepository) CreateExecution(ctx context.Context, e *broadcast.Execution) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m := broadcastExecutionModel(*e)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			var existing broadcastExecutionModel
			if lookupErr := r.db.WithContext(ctx).First(&existing, "broadcast_id = ?", e.BroadcastID).Error; lookupErr != nil {
				return lookupErr
			}
			*e = broadcast.Execution(existing)
			return nil
		}
		return err
	}
	return nil
}

func (r *BroadcastGormRepository) GetExecution(ctx context.Context, idOrBroadcastID string) (*broadcast.Execution, error) {
	var m broadcastExecutionModel
	err := r.db.WithContext(ctx).
		Where("id = ? OR broadcast_id = ?", idOrBroadcastID, idOrBroadcastID).
		First(&m).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	e := broadcast.Execution(m)
	return &e, nil
}

func (r *BroadcastGormRepository) UpdateExecution(ctx context.Context, e *broadcast.Execution) error {
	m := broadcastExecutionModel(*e)
	return r.db.WithContext(ctx).Model(&broadcastExecutionModel{ID: e.ID}).Select("*").Updates(&m).Error
}

func (r *BroadcastGormRepository) ListExecutions(ctx context.Context, status string, limit int) ([]broadcast.Execution, error) {
	query := r.db.WithContext(ctx).Model(&broadcastExecutionModel{}).Order("started_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []broadcastExecutionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]broadcast.Execution, len(models))
	for i, m := range models {
		out[i] = broadcast.Execution(m)
	}
	return out, nil
}

func (r *BroadcastGormRepository) BulkCreateMessages(ctx context.Context, msgs []broadcast.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	models := make([]broadcastMessageModel, len(msgs))
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		models[i] = broadcastMessageModel(msgs[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

func (r *BroadcastGormRepository) UpdateMessage(ctx context.Context, m *broadcast.Message) error {
	model := broadcastMessageModel(*m)
	return r.db.WithContext(ctx).Model(&broadcastMessageModel{ID: m.ID}).Select("*").Updates(&model).Error
}

func (r *BroadcastGormRepository) ListMessages(ctx context.Context, executionID string) ([]broadcast.Message, error) {
	var models []broadcastMessageModel
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("send_order ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]broadcast.Message, len(models))
	for i, m := range models {
		out[i] = broadcast.Message(m)
	}
	return out, nil
}
