package db

import (
	"fmt"

	"gorm.io/gorm"
)

// ApplyRawMigrations добавляет индексы, которые AutoMigrate не выражает.
// Все выражения идемпотентны и работают и на postgres, и на sqlite.
func ApplyRawMigrations(database *gorm.DB) error {
	statements := []string{
		// Частичный индекс под подсчет непрочитанных в списке диалогов
		`CREATE INDEX IF NOT EXISTS idx_messages_unread
			ON messages (conversation_id, sender_id)
			WHERE is_read = false;`,
		// Под периодическую чистку протухших записей троттлинга
		`CREATE INDEX IF NOT EXISTS idx_rate_limits_last_attempt
			ON rate_limits (last_attempt);`,
	}

	for _, stmt := range statements {
		if err := database.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
