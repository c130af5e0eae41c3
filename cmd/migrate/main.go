package main

import (
	"log"
	"os"

	"forecast-market/internal/config"
	"forecast-market/internal/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Runs schema migrations against the configured database. With a file
// argument it applies that SQL file instead of the model migrations.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if len(os.Args) > 1 {
		path := os.Args[1]
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}

		log.Printf("Applying migration: %s", path)
		if err := db.Exec(string(sqlBytes)).Error; err != nil {
			log.Fatalf("Failed to apply migration: %v", err)
		}

		log.Println("Migration applied successfully")
		return
	}

	if err := database.MigrateAll(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Schema migrations applied successfully")
}
