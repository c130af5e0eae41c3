package database

import (
	"fmt"
	"log"

	"forecast-market/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return MigrateAll(DB)
}

// MigrateAll runs automatic migrations for all models on the given handle
func MigrateAll(db *gorm.DB) error {
	// Migrate core models first
	coreModels := []interface{}{
		&models.User{},
		&models.Market{},
		&models.Transaction{},
		&models.UserPosition{},
		&models.UserPayout{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate settlement models
	settlementModels := []interface{}{
		&models.SettlementBond{},
		&models.SettlementContest{},
		&models.ContestVote{},
		&models.Notification{},
		&models.SettlementIssue{},
	}

	for _, model := range settlementModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate admin models
	adminModels := []interface{}{
		&models.AdminUser{},
		&models.AdminLog{},
	}

	for _, model := range adminModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
