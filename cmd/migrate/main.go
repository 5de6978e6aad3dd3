package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/stirosario/sti-ai-chat-sub006/internal/model"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/database"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create extension: %v. Continuing...", err)
	}

	if err := db.AutoMigrate(&model.Ticket{}); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("Migration completed.")
}
