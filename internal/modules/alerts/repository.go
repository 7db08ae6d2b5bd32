// Package alerts persists risk alerts surfaced by the risk manager.
package alerts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/domain"
)

const sqliteTime = "2006-01-02 15:04:05"

// Repository handles risk alert database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alerts repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "alerts").Logger(),
	}
}

// Add records a new alert.
func (r *Repository) Add(alertType string, severity domain.AlertSeverity, message, symbol string) error {
	_, err := r.db.Exec(`
		INSERT INTO risk_alerts (alert_type, severity, message, symbol)
		VALUES (?, ?, ?, ?)
	`, alertType, string(severity), message, nullIfEmpty(symbol))
	if err != nil {
		return fmt.Errorf("failed to add risk alert: %w", err)
	}
	return nil
}

// List returns the most recent alerts, optionally only unacknowledged ones.
func (r *Repository) List(limit int, unacknowledgedOnly bool) ([]domain.RiskAlert, error) {
	query := `SELECT id, alert_type, severity, message, symbol, created_at, acknowledged
		FROM risk_alerts`
	if unacknowledgedOnly {
		query += ` WHERE acknowledged = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.RiskAlert
	for rows.Next() {
		var a domain.RiskAlert
		var severity, createdAt string
		var symbol sql.NullString
		var acknowledged int
		if err := rows.Scan(&a.ID, &a.Type, &severity, &a.Message, &symbol, &createdAt, &acknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		a.Severity = domain.AlertSeverity(severity)
		if symbol.Valid {
			a.Symbol = symbol.String
		}
		if t, err := time.Parse(sqliteTime, createdAt); err == nil {
			a.CreatedAt = t.UTC()
		}
		a.Acknowledged = acknowledged == 1
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}
	return out, nil
}

// Acknowledge marks an alert as seen. Idempotent.
func (r *Repository) Acknowledge(id int64) error {
	_, err := r.db.Exec("UPDATE risk_alerts SET acknowledged = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", id, err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
