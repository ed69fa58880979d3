package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
}

type service struct {
	db *sql.DB
}

var (
	database = os.Getenv("BLUEPRINT_DB_DATABASE")
	password = os.Getenv("BLUEPRINT_DB_PASSWORD")
	username = os.Getenv("BLUEPRINT_DB_USERNAME")
	port     = os.Getenv("BLUEPRINT_DB_PORT")
	host     = os.Getenv("BLUEPRINT_DB_HOST")
	schema   = os.Getenv("BLUEPRINT_DB_SCHEMA")
)

func NewPostgres() *sql.DB {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema,
	)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db
}

// NewService wraps an existing pool so health stats describe the connections
// actually serving traffic.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

// Bootstrap creates the fulfillment tables if they do not exist. The unique
// index on payment_ledger.transaction_id backs the ledger's idempotency; the
// inventory_deductions primary key backs the at-most-once stock deduction.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS order_reviews (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending-payment',
		order_number VARCHAR(100) NOT NULL DEFAULT '',
		total DECIMAL(12,2) NOT NULL DEFAULT 0,
		subtotal DECIMAL(12,2) NOT NULL DEFAULT 0,
		shipping DECIMAL(12,2) NOT NULL DEFAULT 0,
		tax DECIMAL(12,2) NOT NULL DEFAULT 0,
		shipping_address JSONB NOT NULL DEFAULT '{}',
		billing_address JSONB NOT NULL DEFAULT '{}',
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		payment_status VARCHAR(50) NOT NULL DEFAULT '',
		payment_provider VARCHAR(50) NOT NULL DEFAULT '',
		payment_intent_id VARCHAR(255) NOT NULL DEFAULT '',
		transaction_id VARCHAR(255) NOT NULL DEFAULT '',
		card_last4 VARCHAR(4) NOT NULL DEFAULT '',
		card_brand VARCHAR(50) NOT NULL DEFAULT '',
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_order_reviews_user_status
		ON order_reviews(user_id, status, created_at DESC);

	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES order_reviews(id),
		product_id UUID NOT NULL,
		quantity INTEGER NOT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS payment_ledger (
		id UUID PRIMARY KEY,
		order_id UUID,
		order_number VARCHAR(100) NOT NULL DEFAULT '',
		customer_id VARCHAR(255) NOT NULL DEFAULT '',
		customer_name VARCHAR(255) NOT NULL DEFAULT '',
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		amount DECIMAL(12,2) NOT NULL,
		currency VARCHAR(10) NOT NULL DEFAULT 'usd',
		provider VARCHAR(50) NOT NULL DEFAULT '',
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		transaction_id VARCHAR(255) NOT NULL,
		provider_transaction_id VARCHAR(255) NOT NULL DEFAULT '',
		raw_payload JSONB NOT NULL DEFAULT '{}',
		fees DECIMAL(12,2) NOT NULL DEFAULT 0,
		net_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
		metadata JSONB NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_ledger_txn
		ON payment_ledger(transaction_id);

	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		sku VARCHAR(100) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS inventory_deductions (
		order_id UUID PRIMARY KEY,
		deducted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err := db.ExecContext(ctx, ddl)
	return err
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	// Ping the database
	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	// Database is up, add more statistics
	stats["status"] = "up"
	stats["message"] = "It's healthy"

	// Get database stats (like open connections, in use, idle, etc.)
	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	// Evaluate stats to provide a health message
	if dbStats.OpenConnections > 20 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Printf("Disconnected from database: %s", database)
	return s.db.Close()
}
