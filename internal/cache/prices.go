package cache

import (
	"fmt"
	"time"

	"github.com/helixtrade/helix/internal/domain"
)

// Price rows get their own table keyed by (symbol, date, asset class) so
// overlapping date ranges from repeated fetches are deduplicated on insert.

// StorePrices upserts an OHLCV series for a symbol.
func (c *Cache) StorePrices(symbol string, assetClass domain.AssetClass, series domain.Series) error {
	if len(series) == 0 {
		return nil
	}

	mu := c.shardFor(ClassPrice, symbol+"/"+string(assetClass))
	mu.Lock()
	defer mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price cache transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_cache
			(symbol, date, open, high, low, close, volume, asset_type, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price cache insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(sqliteTime)
	for _, candle := range series {
		_, err := stmt.Exec(symbol, candle.Date.UTC().Format("2006-01-02"),
			candle.Open, candle.High, candle.Low, candle.Close, candle.Volume,
			string(assetClass), fetchedAt)
		if err != nil {
			return fmt.Errorf("failed to cache price row for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price cache: %w", err)
	}
	return nil
}

// coverageSlackDays absorbs weekends and market holidays when checking
// whether a cached range reaches back far enough.
const coverageSlackDays = 5

// FreshPrices returns the cached series covering the trailing number of
// days, but only when the newest row was fetched within the price TTL
// and the cached range actually reaches back to the requested cutoff.
// A shorter range left behind by an earlier narrow fetch is a miss.
// Returns nil on a miss.
func (c *Cache) FreshPrices(symbol string, assetClass domain.AssetClass, days int) (domain.Series, error) {
	var fetchedAt string
	err := c.db.QueryRow(`
		SELECT fetched_at FROM price_cache
		WHERE symbol = ? AND asset_type = ?
		ORDER BY date DESC LIMIT 1
	`, symbol, string(assetClass)).Scan(&fetchedAt)
	if err != nil {
		return nil, nil // empty cache is a miss, not an error
	}

	t, err := time.Parse(sqliteTime, fetchedAt)
	if err != nil || time.Since(t.UTC()) > TTLPrice {
		return nil, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := c.db.Query(`
		SELECT date, open, high, low, close, volume FROM price_cache
		WHERE symbol = ? AND asset_type = ? AND date >= ?
		ORDER BY date
	`, symbol, string(assetClass), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query price cache for %s: %w", symbol, err)
	}
	defer rows.Close()

	var series domain.Series
	for rows.Next() {
		var date string
		var candle domain.Candle
		if err := rows.Scan(&date, &candle.Open, &candle.High, &candle.Low,
			&candle.Close, &candle.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price row for %s: %w", symbol, err)
		}
		if t, err := time.Parse("2006-01-02", date); err == nil {
			candle.Date = t.UTC()
		}
		series = append(series, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, nil
	}
	earliest := time.Now().UTC().AddDate(0, 0, -days+coverageSlackDays)
	if series[0].Date.After(earliest) {
		return nil, nil
	}
	return series, nil
}

// ClearPrices wipes the price cache table.
func (c *Cache) ClearPrices() error {
	if _, err := c.db.Exec("DELETE FROM price_cache"); err != nil {
		return fmt.Errorf("failed to clear price cache: %w", err)
	}
	return nil
}
