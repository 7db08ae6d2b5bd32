// Package backtests persists backtest run results.
package backtests

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/domain"
)

const sqliteTime = "2006-01-02 15:04:05"

// Repository handles backtest result database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new backtests repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "backtests").Logger(),
	}
}

// Save persists a run. A missing ID gets a fresh uuid.
func (r *Repository) Save(result *domain.BacktestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	curve, err := json.Marshal(result.EquityCurve)
	if err != nil {
		return fmt.Errorf("failed to encode equity curve: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO backtest_results (id, name, config, total_return, annual_return,
			sharpe_ratio, sortino_ratio, calmar_ratio, max_drawdown, var_95, cvar_95,
			win_rate, total_trades, equity_curve, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, result.Name, result.Config, result.TotalReturn, result.AnnualReturn,
		result.Sharpe, result.Sortino, result.Calmar, result.MaxDrawdown,
		result.VaR95, result.CVaR95, result.WinRate, result.TotalTrades,
		string(curve), result.CreatedAt.Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to save backtest result %s: %w", result.Name, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (r *Repository) Recent(limit int) ([]domain.BacktestResult, error) {
	rows, err := r.db.Query(`
		SELECT id, name, config, total_return, annual_return, sharpe_ratio,
			sortino_ratio, calmar_ratio, max_drawdown, var_95, cvar_95,
			win_rate, total_trades, equity_curve, created_at
		FROM backtest_results ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestResult
	for rows.Next() {
		var b domain.BacktestResult
		var name, cfg, curve sql.NullString
		var createdAt string
		err := rows.Scan(&b.ID, &name, &cfg, &b.TotalReturn, &b.AnnualReturn,
			&b.Sharpe, &b.Sortino, &b.Calmar, &b.MaxDrawdown, &b.VaR95, &b.CVaR95,
			&b.WinRate, &b.TotalTrades, &curve, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest row: %w", err)
		}
		if name.Valid {
			b.Name = name.String
		}
		if cfg.Valid {
			b.Config = cfg.String
		}
		if curve.Valid && curve.String != "" {
			if err := json.Unmarshal([]byte(curve.String), &b.EquityCurve); err != nil {
				r.log.Warn().Err(err).Str("id", b.ID).Msg("Failed to decode equity curve")
				b.EquityCurve = nil
			}
		}
		if t, err := time.Parse(sqliteTime, createdAt); err == nil {
			b.CreatedAt = t.UTC()
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest rows: %w", err)
	}
	return out, nil
}
