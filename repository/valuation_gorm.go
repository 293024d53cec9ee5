package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/valuation"
	"gorm.io/gorm"
)

type valuationModel struct {
	ID                         string `gorm:"primaryKey"`
	RequesterGroupID           string `gorm:"index:idx_valuations_requester;not null"`
	RequestMessageID           string `gorm:"index:idx_valuations_request_msg"`
	Address                    string `gorm:"type:text"`
	Size                       string
	Asking                     string
	SalespersonName            string
	AgentNumberRaw             string
	AgentPhoneE164             string
	AgentWhatsappID            string
	BankerNameRequested        string
	BankerID                   string `gorm:"index:idx_valuations_banker"`
	BankerName                 string
	TargetGroupID              string `gorm:"index:idx_valuations_forward,priority:2"`
	ForwardMessageID           string `gorm:"index:idx_valuations_forward,priority:1"`
	ForwardedAt                *time.Time
	AcknowledgmentMessageID    string
	BankerReplyMessageID       string
	BankerReplyText            string `gorm:"type:text"`
	BankerRepliedAt            *time.Time
	FinalReplyMessageID        string
	AgentNotificationMessageID string
	Status                     string `gorm:"index:idx_valuations_status;not null"`
	CreatedAt                  time.Time
	CompletedAt                *time.Time
}

func (valuationModel) TableName() string {
	return "valuation_requests"
}

type ValuationGormRepository struct {
	db *gorm.DB
}

func NewValuationGormRepository(db *gorm.DB) *ValuationGormRepository {
	return &ValuationGormRepository{db: db}
}

func (r *ValuationGormRepository) Create(ctx context.Context, v *valuation.Request) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	m := valuationModel(*v)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ValuationGormRepository) GetByID(ctx context.Context, id string) (*valuation.Request, error) {
	var m valuationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	v := valuation.Request(m)
	return &v, nil
}

func (r *ValuationGormRepository) GetByForwardMessageID(ctx context.Context, forwardMessageID, targetGroupID string) (*valuation.Request, error) {
	var m valuationModel
	err := r.db.WithContext(ctx).
		Where("forward_message_id = ? AND target_group_id = ?", forwardMessageID, targetGroupID).
		First(&m).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	v := valuation.Request(m)
	return &v, nil
}

func (r *ValuationGormRepository) List(ctx context.Context, status string, limit int) ([]valuation.Request, error) {
	query := r.db.WithContext(ctx).Model(&valuationModel{}).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []valuationModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]valuation.Request, len(models))
	for i, m := range models {
		out[i] = valuation.Request(m)
	}
	return out, nil
}

func (r *ValuationGormRepository) Update(ctx context.Context, v *valuation.Request) error {
	m := valuationModel(*v)
	result := r.db.WithContext(ctx).Model(&valuationModel{ID: v.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ValuationGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&valuationModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
