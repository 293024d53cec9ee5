package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/banker"
	"gorm.io/gorm"
)

type bankerModel struct {
	ID              string `gorm:"primaryKey"`
	Name            string `gorm:"index:idx_bankers_name;not null"`
	DisplayName     string
	AgentNumber     string
	BankName        string `gorm:"index:idx_bankers_bank"`
	WhatsappGroupID string `gorm:"not null"`
	RoutingKeywords string `gorm:"type:text;default:'[]'"` // JSON
	Priority        int    `gorm:"default:0"`
	IsActive        bool   `gorm:"default:true"`
	CreatedAt       time.Time
}

func (bankerModel) TableName() string {
	return "bankers"
}

type BankerGormRepository struct {
	db *gorm.DB
}

func NewBankerGormRepository(db *gorm.DB) *BankerGormRepository {
	return &BankerGormRepository{db: db}
}

func (r *BankerGormRepository) Create(ctx context.Context, b *banker.Banker) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m := toBankerModel(b)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *BankerGormRepository) GetByID(ctx context.Context, id string) (*banker.Banker, error) {
	var m bankerModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	b := fromBankerModel(m)
	return &b, nil
}

func (r *BankerGormRepository) List(ctx context.Context, activeOnly bool) ([]banker.Banker, error) {
	query := r.db.WithContext(ctx).Model(&bankerModel{}).Order("priority DESC, created_at ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var models []bankerModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]banker.Banker, len(models))
	for i, m := range models {
		out[i] = fromBankerModel(m)
	}
	return out, nil
}

func (r *BankerGormRepository) ListBankNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&bankerModel{}).
		Distinct("bank_name").
		Where("bank_name <> ''").
		Order("bank_name ASC").
		Pluck("bank_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *BankerGormRepository) Update(ctx context.Context, b *banker.Banker) error {
	m := toBankerModel(b)
	result := r.db.WithContext(ctx).Model(&bankerModel{ID: b.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BankerGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&bankerModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func toBankerModel(b *banker.Banker) bankerModel {
	keywords := b.RoutingKeywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, _ := json.Marshal(keywords)
	return bankerModel{
		ID:              b.ID,
		Name:            b.Name,
		DisplayName:     b.DisplayName,
		AgentNumber:     b.AgentNumber,
		BankName:        b.BankName,
		WhatsappGroupID: b.WhatsappGroupID,
		RoutingKeywords: string(keywordsJSON),
		Priority:        b.Priority,
		IsActive:        b.IsActive,
		CreatedAt:       b.CreatedAt,
	}
}

func fromBankerModel(m bankerModel) banker.Banker {
	b := banker.Banker{
		ID:              m.ID,
		Name:            m.Name,
		DisplayName:     m.DisplayName,
		AgentNumber:     m.AgentNumber,
		BankName:        m.BankName,
		WhatsappGroupID: m.WhatsappGroupID,
		Priority:        m.Priority,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
	}
	if m.RoutingKeywords != "" {
		_ = json.Unmarshal([]byte(m.RoutingKeywords), &b.RoutingKeywords)
	}
	if b.RoutingKeywords == nil {
		b.RoutingKeywords = []string{}
	}
	return b
}
