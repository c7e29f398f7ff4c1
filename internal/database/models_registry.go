package database

import "wanderplan/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserProfile{},
		&models.Follow{},
		&models.Plan{},
		&models.Publication{},
		&models.Notification{},
	}
}
