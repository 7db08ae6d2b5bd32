package papertrading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
)

const sqliteTime = "2006-01-02 15:04:05"

// Repository is the sqlite-backed Storage implementation.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new paper trading repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "papertrading").Logger(),
	}
}

var _ Storage = (*Repository)(nil)

// OpenPositions returns all open positions.
func (r *Repository) OpenPositions() ([]domain.PaperPosition, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, entry_date, entry_price, quantity, stop_loss, trailing_stop,
			highest_price, status, opened_at, closed_at, close_price, realized_pnl
		FROM paper_positions WHERE status = 'open' ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var out []domain.PaperPosition
	for rows.Next() {
		var p domain.PaperPosition
		var entryDate, status, openedAt string
		var closedAt, closePrice = sql.NullString{}, sql.NullFloat64{}
		err := rows.Scan(&p.ID, &p.Symbol, &entryDate, &p.EntryPrice, &p.Quantity,
			&p.StopLoss, &p.TrailingStop, &p.HighestPrice, &status, &openedAt,
			&closedAt, &closePrice, &p.RealizedPnL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		if p.Quantity < 0 {
			return nil, fmt.Errorf("%w: open position %d has negative quantity", domain.ErrInvariant, p.ID)
		}
		p.Status = domain.PositionStatus(status)
		if t, err := time.Parse(sqliteTime, entryDate); err == nil {
			p.EntryDate = t.UTC()
		}
		if t, err := time.Parse(sqliteTime, openedAt); err == nil {
			p.OpenedAt = t.UTC()
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return out, nil
}

// OpenPosition records a new open position.
func (r *Repository) OpenPosition(symbol string, entryPrice, quantity float64, stopLoss *float64) (int64, error) {
	now := time.Now().UTC().Format(sqliteTime)
	result, err := r.db.Exec(`
		INSERT INTO paper_positions
			(symbol, entry_date, entry_price, quantity, stop_loss, highest_price, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, 'open', ?)
	`, symbol, now, entryPrice, quantity, stopLoss, entryPrice, now)
	if err != nil {
		return 0, fmt.Errorf("failed to open position for %s: %w", symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get position id: %w", err)
	}
	return id, nil
}

// UpdateStops lifts the running high and trailing stop.
func (r *Repository) UpdateStops(id int64, highestPrice, trailingStop float64) error {
	_, err := r.db.Exec(`
		UPDATE paper_positions SET highest_price = ?, trailing_stop = ?
		WHERE id = ? AND status = 'open'
	`, highestPrice, trailingStop, id)
	if err != nil {
		return fmt.Errorf("failed to update stops for position %d: %w", id, err)
	}
	return nil
}

// ClosePosition marks the position closed. The row update and trade-log
// insert done by the engine both need to land, so the engine calls
// AddTrade separately inside the same scan; the close itself is a single
// row update and relies on row-level atomicity.
func (r *Repository) ClosePosition(id int64, closePrice, realizedPnL float64, closedAt time.Time) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE paper_positions
			SET status = 'closed', closed_at = ?, close_price = ?, realized_pnl = ?
			WHERE id = ? AND status = 'open'
		`, closedAt.UTC().Format(sqliteTime), closePrice, realizedPnL, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("position %d not found or already closed", id)
		}
		return nil
	})
}

// AddTrade appends one row to the execution log.
func (r *Repository) AddTrade(t domain.PaperTrade) error {
	executedAt := t.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO paper_trades (symbol, action, price, quantity, pnl, reason, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Symbol, string(t.Action), t.Price, t.Quantity, t.PnL, t.Reason,
		executedAt.Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to add paper trade for %s: %w", t.Symbol, err)
	}
	return nil
}

// Trades returns the most recent trades, newest first.
func (r *Repository) Trades(limit int) ([]domain.PaperTrade, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, action, price, quantity, pnl, reason, executed_at
		FROM paper_trades ORDER BY executed_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query paper trades: %w", err)
	}
	defer rows.Close()

	var out []domain.PaperTrade
	for rows.Next() {
		var t domain.PaperTrade
		var action, executedAt string
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.Symbol, &action, &t.Price, &t.Quantity, &t.PnL,
			&reason, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		t.Action = domain.TradeAction(action)
		if reason.Valid {
			t.Reason = reason.String
		}
		if ts, err := time.Parse(sqliteTime, executedAt); err == nil {
			t.ExecutedAt = ts.UTC()
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return out, nil
}

// Reset wipes all positions and trades in one transaction.
func (r *Repository) Reset() error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM paper_positions"); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM paper_trades"); err != nil {
			return err
		}
		return nil
	})
}
