package database

import "ideaboard/internal/models"

// PersistentModels lists the tables AutoMigrate manages on sqlite. It must
// stay in step with the postgres migrations.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Idea{},
		&models.Vote{},
		&models.Comment{},
		&models.Flag{},
	}
}
