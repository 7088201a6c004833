package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

func NewConnection(connectStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Println("Database connection established")
	return db, nil
}

// OpenLedger connects to connectStr and prepares the ledger tables. An empty
// connectStr yields a ledger that discards records.
func OpenLedger(ctx context.Context, connectStr string) (*Ledger, func() error, error) {
	if connectStr == "" {
		log.Println("No database configured, usage ledger disabled")
		return NewLedger(nil), func() error { return nil }, nil
	}
	db, err := NewConnection(connectStr)
	if err != nil {
		return nil, nil, err
	}
	l := NewLedger(db)
	if err := l.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, db.Close, nil
}
