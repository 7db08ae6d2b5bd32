// Package portfolio provides persistence for holdings and the transaction
// log.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/domain"
)

const sqliteTime = "2006-01-02 15:04:05"

// Repository handles holdings and transaction database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "portfolio").Logger(),
	}
}

// Holdings returns all holdings ordered by symbol.
func (r *Repository) Holdings() ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, asset_type, quantity, avg_cost, entry_date, stop_loss, sector
		FROM holdings ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var out []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var assetType string
		var entryDate, sector sql.NullString
		if err := rows.Scan(&h.ID, &h.Symbol, &assetType, &h.Quantity, &h.AvgCost,
			&entryDate, &h.StopLoss, &sector); err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		h.AssetClass = domain.AssetClass(assetType)
		if entryDate.Valid {
			if t, err := time.Parse(sqliteTime, entryDate.String); err == nil {
				h.EntryDate = t.UTC()
			}
		}
		if sector.Valid {
			h.Sector = sector.String
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return out, nil
}

// UpsertHolding inserts or replaces the position for a symbol.
func (r *Repository) UpsertHolding(h domain.Holding) error {
	entryDate := h.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO holdings (symbol, asset_type, quantity, avg_cost, entry_date, stop_loss, sector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			stop_loss = excluded.stop_loss,
			sector = excluded.sector
	`, h.Symbol, string(h.AssetClass), h.Quantity, h.AvgCost,
		entryDate.Format(sqliteTime), h.StopLoss, nullIfEmpty(h.Sector))
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// RemoveHolding deletes the position for a symbol. Idempotent.
func (r *Repository) RemoveHolding(symbol string) error {
	_, err := r.db.Exec("DELETE FROM holdings WHERE symbol = ?", symbol)
	if err != nil {
		return fmt.Errorf("failed to remove holding %s: %w", symbol, err)
	}
	return nil
}

// AddTransaction appends one row to the transaction log.
func (r *Repository) AddTransaction(t domain.Transaction) error {
	executedAt := t.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO transactions (symbol, action, quantity, price, note, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Symbol, string(t.Action), t.Quantity, t.Price, t.Note, executedAt.Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to add transaction for %s: %w", t.Symbol, err)
	}
	return nil
}

// Transactions returns the most recent transactions, newest first.
func (r *Repository) Transactions(limit int) ([]domain.Transaction, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, action, quantity, price, note, executed_at
		FROM transactions ORDER BY executed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var action, executedAt string
		var note sql.NullString
		if err := rows.Scan(&t.ID, &t.Symbol, &action, &t.Quantity, &t.Price, &note, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Action = domain.Direction(action)
		if note.Valid {
			t.Note = note.String
		}
		if ts, err := time.Parse(sqliteTime, executedAt); err == nil {
			t.ExecutedAt = ts.UTC()
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
