package database

import (
	"fmt"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	}
}

// Migrate creates or updates the users, projects, project_members and tasks
// tables together with their indexes and foreign keys.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
