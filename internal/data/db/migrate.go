package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/identity-backend/internal/domain"
)

// contactIndexes back the match lookup (live email/phone), cluster loads and
// audit reads. Partial indexes work on both Postgres and SQLite.
var contactIndexes = []struct{ name, ddl string }{
	{"idx_contact_email_live", "ON contact (email) WHERE deleted_at IS NULL"},
	{"idx_contact_phone_live", "ON contact (phone_number) WHERE deleted_at IS NULL"},
	{"idx_contact_cluster", "ON contact (linked_id, created_at, id)"},
	{"idx_contact_link_event_primary", "ON contact_link_event (primary_id, created_at, id)"},
}

// AutoMigrateAll brings the schema up to date. It is safe to run repeatedly.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.Contact{}, &types.ContactLinkEvent{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, idx := range contactIndexes {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS " + idx.name + " " + idx.ddl).Error; err != nil {
			return fmt.Errorf("create %s: %w", idx.name, err)
		}
	}
	return nil
}
