package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Ensures the uniqueness constraints the reward ledger relies on exist even
// on databases created before AutoMigrate started declaring them. Safe to
// re-run.
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

	log.Println("Executing migration...")
	indexSQL := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_referral_edges_unique
			ON referral_edges (referrer_account_id, referred_user_id, layer);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reward_records_unique
			ON reward_records (reward_type, layer, transaction_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reward_wallet_balances_user_id
			ON reward_wallet_balances (user_id);
	`
	_, err = db.Exec(indexSQL)
	if err != nil {
		log.Fatalf("Failed to execute migration: %v", err)
	}

	log.Println("✅ Migration completed successfully!")
}
