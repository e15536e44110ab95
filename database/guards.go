package database

import (
	"github.com/yeremiapane/cleaning-app/models"
	"github.com/yeremiapane/cleaning-app/utils"
	"gorm.io/gorm"
)

// EnsureUniquenessGuards verifies the unique indexes the lifecycle core
// leans on after AutoMigrate: one open session per room, one per worker, and
// globally unique identity codes. Start and EnsureCode rely on these as the
// store-level backstop for their check-then-write transactions, so a missing
// index is fatal.
func EnsureUniquenessGuards(db *gorm.DB) error {
	required := []struct {
		model interface{}
		index string
	}{
		{&models.CleaningSession{}, "idx_cleaning_sessions_active_room_key"},
		{&models.CleaningSession{}, "idx_cleaning_sessions_active_worker_key"},
		{&models.Room{}, "idx_rooms_code"},
		{&models.CodeArchive{}, "idx_code_archives_code"},
	}

	migrator := db.Migrator()
	for _, r := range required {
		if !migrator.HasIndex(r.model, r.index) {
			utils.ErrorLogger.Fatalf("missing uniqueness guard %s", r.index)
		}
		utils.InfoLogger.Printf("Uniqueness guard verified: %s", r.index)
	}
	return nil
}
