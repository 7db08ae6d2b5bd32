// Package papertrading simulates trade execution against live signals
// without real money. Positions and trades are persisted so the virtual
// portfolio survives restarts. The engine takes its storage as an
// interface so tests can substitute an in-memory implementation.
package papertrading

import (
	"time"

	"github.com/helixtrade/helix/internal/domain"
)

// Storage is the persistence contract of the paper trading engine.
type Storage interface {
	// OpenPositions returns all positions with status open.
	OpenPositions() ([]domain.PaperPosition, error)

	// OpenPosition records a new open position and returns its id.
	OpenPosition(symbol string, entryPrice, quantity float64, stopLoss *float64) (int64, error)

	// UpdateStops lifts the running high and the trailing stop of a position.
	UpdateStops(id int64, highestPrice, trailingStop float64) error

	// ClosePosition marks a position closed at the given price with the
	// realised PnL. The position row and the trade log entry are written
	// in one transaction by the sqlite implementation.
	ClosePosition(id int64, closePrice, realizedPnL float64, closedAt time.Time) error

	// AddTrade appends one row to the execution log.
	AddTrade(trade domain.PaperTrade) error

	// Trades returns the most recent trades, newest first.
	Trades(limit int) ([]domain.PaperTrade, error)

	// Reset wipes all positions and trades.
	Reset() error
}
