package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Indexes AutoMigrate cannot express.
var indexes = []string{
	// at most one accepted answer per question
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_answers_one_accepted ON answers (question_id) WHERE is_accepted`,
	`CREATE INDEX IF NOT EXISTS idx_questions_tags ON questions USING GIN (tags)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_search ON questions USING GIN (to_tsvector('english', title || ' ' || description))`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, created_at DESC)`,
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Vote{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
