package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/contact"
	"gorm.io/gorm"
)

type contactListModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"index:idx_contact_lists_name;not null"`
	Description string
	Source      string
	CreatedAt   time.Time
}

func (contactListModel) TableName() string {
	return "contact_lists"
}

type contactModel struct {
	ID       string `gorm:"primaryKey"`
	ListID   string `gorm:"uniqueIndex:idx_contacts_list_phone,priority:1;not null"`
	Name     string
	Phone    string `gorm:"uniqueIndex:idx_contacts_list_phone,priority:2;not null"`
	Email    string
	Tier     string
	IsActive bool `gorm:"default:true"`
}

func (contactModel) TableName() string {
	return "broadcast_contacts"
}

type ContactGormRepository struct {
	db *gorm.DB
}

func NewContactGormRepository(db *gorm.DB) *ContactGormRepository {
	return &ContactGormRepository{db: db}
}

func (r *ContactGormRepository) CreateList(ctx context.Context, l *contact.List) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	m := contactListModel(*l)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContactGormRepository) GetList(ctx context.Context, id string) (*contact.List, error) {
	var m contactListModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	l := contact.List(m)
	return &l, nil
}

func (r *ContactGormRepository) ListLists(ctx context.Context) ([]contact.List, error) {
	var models []contactListModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]contact.List, len(models))
	for i, m := range models {
		out[i] = contact.List(m)
	}
	return out, nil
}

// DeleteList removes the list and its contacts in one transaction.
func (r *ContactGormRepository) DeleteList(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&contactModel{}, "list_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&contactListModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *ContactGormRepository) CreateContact(ctx context.Context, c *contact.Contact) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m := contactModel(*c)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ContactGormRepository) GetContact(ctx context.Context, id string) (*contact.Contact, error) {
	var m contactModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c := contact.Contact(m)
	return &c, nil
}

func (r *ContactGormRepository) ListContacts(ctx context.Context, listID string) ([]contact.Contact, error) {
	var models []contactModel
	if err := r.db.WithContext(ctx).Where("list_id = ?", listID).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]contact.Contact, len(models))
	for i, m := range models {
		out[i] = contact.Contact(m)
	}
	return out, nil
}

func (r *ContactGormRepository) UpdateContact(ctx context.Context, c *contact.Contact) error {
	m := contactModel(*c)
	result := r.db.WithContext(ctx).Model(&contactModel{ID: c.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContactGormRepository) DeleteContact(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&contactModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
