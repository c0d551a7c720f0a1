package db

import (
	"fmt"
	"time"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchemaVersion identifies the current schema, format YYYYMMDD. It must
// match the latest row in schemalog or a migration is required.
const SchemaVersion = 20260830

// AllModels returns every GORM model, in foreign-key dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Cluster{},
		&models.Component{},
		&models.APIKey{},
		&models.Reportable{},
		&models.Burst{},
		&models.OldJob{},
		&models.History{},
		&models.Notifier{},
		&models.SchemaLog{},
	}
}

// AutoMigrate creates or updates all tables and stamps the schema version.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	stamp := models.SchemaLog{Version: SchemaVersion, Applied: time.Now().Unix()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&stamp).Error; err != nil {
		return fmt.Errorf("db: stamp schema version: %w", err)
	}
	return nil
}

// SchemaCurrent reports whether the latest applied schema version matches
// what this build expects.
func SchemaCurrent(db *gorm.DB) (bool, error) {
	var latest models.SchemaLog
	err := db.Order("applied DESC").First(&latest).Error
	if err != nil {
		return false, fmt.Errorf("db: read schemalog: %w", err)
	}
	return latest.Version == SchemaVersion, nil
}
