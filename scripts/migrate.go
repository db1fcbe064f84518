package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Indexes AutoMigrate cannot express: the partial index keeping the
// unconverted-visit lookup fast, and the unique earning-per-visit
// backstop.
var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_visits_unconverted
		ON referral_visits (link_id, created_at DESC)
		WHERE converted = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_earnings_visit_once
		ON ambassador_earnings (visit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_converted_ip
		ON referral_visits (ip_address, created_at)
		WHERE converted = true`,
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	for _, stmt := range indexStatements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute index statement: %v", err)
		}
	}

	log.Println("Index migration completed successfully")
}
