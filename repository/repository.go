package repository

import (
	"strings"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the gateway persists to. Called
// once at startup after the connection is established.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&workflowModel{},
		&workflowExecutionModel{},
		&templateModel{},
		&contactListModel{},
		&contactModel{},
		&bankerModel{},
		&valuationModel{},
		&broadcastExecutionModel{},
		&broadcastMessageModel{},
	)
}

// isDuplicate covers both sqlite and postgres unique-violation wording.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func notFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}
