package database

import (
	"database/sql"
	"fmt"
)

// schema is the single source of truth for the database layout.
// Every statement is idempotent so Migrate can run on each startup.
const schema = `
-- Trading signals (append-only; outcome columns filled by the accuracy tracker)
CREATE TABLE IF NOT EXISTS signals (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol          TEXT NOT NULL,
    signal_type     TEXT NOT NULL,
    direction       TEXT NOT NULL,
    strength        REAL NOT NULL,
    confidence      REAL,
    technical_score REAL,
    sentiment_score REAL,
    ml_score        REAL,
    macro_score     REAL,
    macro_regime    TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    outcome_return_5d  REAL,
    outcome_return_10d REAL,
    outcome_correct    INTEGER,
    outcome_checked_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol  ON signals(symbol);
CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at);
-- accuracy tracker: WHERE outcome_checked_at IS NULL AND created_at <= ?
CREATE INDEX IF NOT EXISTS idx_signals_unchecked ON signals(outcome_checked_at, created_at);
-- adaptive weights: WHERE outcome_correct IS NOT NULL AND direction != 'HOLD'
CREATE INDEX IF NOT EXISTS idx_signals_outcome_dir ON signals(outcome_correct, direction);

-- Portfolio holdings
CREATE TABLE IF NOT EXISTS holdings (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol     TEXT NOT NULL UNIQUE,
    asset_type TEXT NOT NULL DEFAULT 'stock',
    quantity   REAL NOT NULL,
    avg_cost   REAL NOT NULL,
    entry_date TEXT,
    stop_loss  REAL,
    sector     TEXT
);

-- Portfolio transactions (append-only)
CREATE TABLE IF NOT EXISTS transactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol      TEXT NOT NULL,
    action      TEXT NOT NULL,
    quantity    REAL NOT NULL,
    price       REAL NOT NULL,
    note        TEXT,
    executed_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Paper trading: virtual positions
CREATE TABLE IF NOT EXISTS paper_positions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT NOT NULL,
    entry_date    TEXT NOT NULL,
    entry_price   REAL NOT NULL,
    quantity      REAL NOT NULL,
    stop_loss     REAL,
    trailing_stop REAL,
    highest_price REAL NOT NULL,
    status        TEXT NOT NULL DEFAULT 'open',
    opened_at     TEXT NOT NULL DEFAULT (datetime('now')),
    closed_at     TEXT,
    close_price   REAL,
    realized_pnl  REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_paper_pos_symbol ON paper_positions(symbol, status);

-- Paper trading: virtual trade log (append-only)
CREATE TABLE IF NOT EXISTS paper_trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol      TEXT NOT NULL,
    action      TEXT NOT NULL,
    price       REAL NOT NULL,
    quantity    REAL NOT NULL,
    pnl         REAL NOT NULL DEFAULT 0,
    reason      TEXT,
    executed_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_paper_trades_sym ON paper_trades(symbol);

-- Backtest results
CREATE TABLE IF NOT EXISTS backtest_results (
    id            TEXT PRIMARY KEY,
    name          TEXT,
    config        TEXT,
    total_return  REAL,
    annual_return REAL,
    sharpe_ratio  REAL,
    sortino_ratio REAL,
    calmar_ratio  REAL,
    max_drawdown  REAL,
    var_95        REAL,
    cvar_95       REAL,
    win_rate      REAL,
    total_trades  INTEGER,
    equity_curve  TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Risk alerts
CREATE TABLE IF NOT EXISTS risk_alerts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    alert_type   TEXT NOT NULL,
    severity     TEXT NOT NULL,
    message      TEXT NOT NULL,
    symbol       TEXT,
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    acknowledged INTEGER NOT NULL DEFAULT 0
);

-- User settings (JSON-encoded values, overrides for code defaults)
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER
);

-- Price data cache, deduplicated by (symbol, date, asset_type)
CREATE TABLE IF NOT EXISTS price_cache (
    symbol     TEXT NOT NULL,
    date       TEXT NOT NULL,
    open       REAL,
    high       REAL,
    low        REAL,
    close      REAL,
    volume     REAL,
    asset_type TEXT NOT NULL DEFAULT 'stock',
    fetched_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (symbol, date, asset_type)
);

CREATE INDEX IF NOT EXISTS idx_price_symbol ON price_cache(symbol);

-- Generic TTL blob cache (news, sentiment, ml predictions, global signals)
CREATE TABLE IF NOT EXISTS data_cache (
    class      TEXT NOT NULL,
    key        TEXT NOT NULL,
    payload    BLOB NOT NULL,
    fetched_at TEXT NOT NULL DEFAULT (datetime('now')),
    expires_at TEXT NOT NULL,
    PRIMARY KEY (class, key)
);

CREATE INDEX IF NOT EXISTS idx_data_cache_expires ON data_cache(expires_at);
`

// Migrate creates all tables and indexes if they do not exist.
func (db *DB) Migrate() error {
	err := WithTransaction(db.conn, func(tx *sql.Tx) error {
		if _, execErr := tx.Exec(schema); execErr != nil {
			return execErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply schema for %s: %w", db.name, err)
	}
	return nil
}
