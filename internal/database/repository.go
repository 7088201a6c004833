package database

import (
	"context"
	"database/sql"
	"log"
	"time"
)

type AIUsage struct {
	ID               int       `json:"id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Purpose          string    `json:"purpose"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cost             float64   `json:"cost"`
	CreatedAt        time.Time `json:"created_at"`
}

// Talk is a generated talk title together with the variant that produced it.
type Talk struct {
	ID                 int       `json:"id"`
	Title              string    `json:"title"`
	Variant            string    `json:"variant"`
	PresentationNumber string    `json:"presentation_number"`
	SlideCount         int       `json:"slide_count"`
	CreatedAt          time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS ai_usage (
	id SERIAL PRIMARY KEY,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	purpose TEXT NOT NULL DEFAULT '',
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cost NUMERIC(12,6) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS generated_talks (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	variant TEXT NOT NULL,
	presentation_number TEXT NOT NULL DEFAULT '',
	slide_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Ledger records AI usage and generated talks. A Ledger with a nil DB
// discards everything.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the ledger tables if they are missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

func (l *Ledger) LogAIUsage(ctx context.Context, u *AIUsage) error {
	if l == nil || l.db == nil {
		return nil
	}
	query := `
		INSERT INTO ai_usage (provider, model, purpose, prompt_tokens, completion_tokens, total_tokens, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := l.db.ExecContext(ctx, query, u.Provider, u.Model, u.Purpose, u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.Cost)
	return err
}

func (l *Ledger) SaveTalk(ctx context.Context, t *Talk) error {
	if l == nil || l.db == nil {
		return nil
	}
	query := `
		INSERT INTO generated_talks (title, variant, presentation_number, slide_count)
		VALUES ($1, $2, $3, $4)
	`
	_, err := l.db.ExecContext(ctx, query, t.Title, t.Variant, t.PresentationNumber, t.SlideCount)
	if err != nil {
		log.Printf("Failed to save talk %q: %v", t.Title, err)
	}
	return err
}

func (l *Ledger) GetTotalAICost(ctx context.Context) (float64, error) {
	if l == nil || l.db == nil {
		return 0, nil
	}
	var total float64
	err := l.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(cost), 0) FROM ai_usage").Scan(&total)
	return total, err
}

func (l *Ledger) GetRecentTalks(ctx context.Context, limit int) ([]Talk, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx, "SELECT id, title, variant, presentation_number, slide_count, created_at FROM generated_talks ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var talks []Talk
	for rows.Next() {
		var t Talk
		if err := rows.Scan(&t.ID, &t.Title, &t.Variant, &t.PresentationNumber, &t.SlideCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		talks = append(talks, t)
	}
	return talks, rows.Err()
}
