// Package signals provides persistence for fused trading signals and the
// queries needed by the accuracy tracker and the adaptive weight learner.
package signals

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
)

// sqliteTime matches the format of sqlite's datetime('now').
const sqliteTime = "2006-01-02 15:04:05"

// Repository handles signal database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new signals repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "signals").Logger(),
	}
}

// Save persists a new signal and fills in its ID and CreatedAt.
func (r *Repository) Save(s *domain.Signal) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(`
		INSERT INTO signals (symbol, signal_type, direction, strength, confidence,
			technical_score, sentiment_score, ml_score, macro_score, macro_regime, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Symbol, string(s.Kind), string(s.Direction), s.Strength, s.Confidence,
		s.TechnicalScore, s.SentimentScore, s.MLScore, s.MacroScore, s.MacroRegime,
		s.CreatedAt.Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to save signal for %s: %w", s.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get signal id: %w", err)
	}
	s.ID = id
	return nil
}

// Latest returns the most recent signals across all symbols.
func (r *Repository) Latest(limit int) ([]domain.Signal, error) {
	rows, err := r.db.Query(`
		SELECT `+signalColumns+` FROM signals
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// History returns a symbol's signals over the trailing number of days,
// oldest first.
func (r *Repository) History(symbol string, days int) ([]domain.Signal, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(sqliteTime)
	rows, err := r.db.Query(`
		SELECT `+signalColumns+` FROM signals
		WHERE symbol = ? AND created_at >= ?
		ORDER BY created_at
	`, symbol, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query signal history for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// Unchecked returns up to limit signals with no recorded outcome created at
// or before the cutoff, ordered by creation time. This feeds the accuracy
// tracker.
func (r *Repository) Unchecked(cutoff time.Time, limit int) ([]domain.Signal, error) {
	rows, err := r.db.Query(`
		SELECT `+signalColumns+` FROM signals
		WHERE outcome_checked_at IS NULL AND created_at <= ?
		ORDER BY created_at LIMIT ?
	`, cutoff.UTC().Format(sqliteTime), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unchecked signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// EvaluatedDirectional returns all evaluated non-HOLD signals. This is the
// sample the adaptive weight learner correlates against.
func (r *Repository) EvaluatedDirectional() ([]domain.Signal, error) {
	rows, err := r.db.Query(`
		SELECT ` + signalColumns + ` FROM signals
		WHERE outcome_correct IS NOT NULL AND direction != 'HOLD'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluated signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// RecordOutcome writes the realised forward returns and the correctness
// verdict back onto a signal in a single transaction. correct is nil when
// the 5-day window had too few trading days to judge.
func (r *Repository) RecordOutcome(id int64, return5d, return10d *float64, correct *bool) error {
	now := time.Now().UTC().Format(sqliteTime)
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE signals
			SET outcome_return_5d = ?, outcome_return_10d = ?, outcome_correct = ?, outcome_checked_at = ?
			WHERE id = ? AND outcome_checked_at IS NULL
		`, return5d, return10d, boolPtrToInt(correct), now, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("signal %d not found or already evaluated", id)
		}
		return nil
	})
}

// AccuracyStats is a rollup of evaluated signal outcomes.
type AccuracyStats struct {
	TotalEvaluated int     `json:"total_evaluated"`
	TotalCorrect   int     `json:"total_correct"`
	HitRate        float64 `json:"hit_rate"`
	BuyEvaluated   int     `json:"buy_evaluated"`
	BuyCorrect     int     `json:"buy_correct"`
	SellEvaluated  int     `json:"sell_evaluated"`
	SellCorrect    int     `json:"sell_correct"`
	Pending        int     `json:"pending"`
}

// Accuracy computes the evaluated-signal rollup served by the API.
func (r *Repository) Accuracy() (*AccuracyStats, error) {
	stats := &AccuracyStats{}

	rows, err := r.db.Query(`
		SELECT direction, outcome_correct, COUNT(*)
		FROM signals
		WHERE outcome_correct IS NOT NULL
		GROUP BY direction, outcome_correct
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accuracy stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var direction string
		var correct, count int
		if err := rows.Scan(&direction, &correct, &count); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}
		stats.TotalEvaluated += count
		if correct == 1 {
			stats.TotalCorrect += count
		}
		switch domain.Direction(direction) {
		case domain.DirectionBuy:
			stats.BuyEvaluated += count
			if correct == 1 {
				stats.BuyCorrect += count
			}
		case domain.DirectionSell:
			stats.SellEvaluated += count
			if correct == 1 {
				stats.SellCorrect += count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accuracy rows: %w", err)
	}

	if stats.TotalEvaluated > 0 {
		stats.HitRate = float64(stats.TotalCorrect) / float64(stats.TotalEvaluated)
	}

	err = r.db.QueryRow(`SELECT COUNT(*) FROM signals WHERE outcome_checked_at IS NULL`).
		Scan(&stats.Pending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending signals: %w", err)
	}

	return stats, nil
}

const signalColumns = `id, symbol, signal_type, direction, strength, confidence,
	technical_score, sentiment_score, ml_score, macro_score, macro_regime, created_at,
	outcome_return_5d, outcome_return_10d, outcome_correct, outcome_checked_at`

func scanSignals(rows *sql.Rows) ([]domain.Signal, error) {
	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var kind, direction, createdAt string
		var confidence sql.NullFloat64
		var macroRegime sql.NullString
		var correct sql.NullInt64
		var checkedAt sql.NullString

		err := rows.Scan(&s.ID, &s.Symbol, &kind, &direction, &s.Strength, &confidence,
			&s.TechnicalScore, &s.SentimentScore, &s.MLScore, &s.MacroScore, &macroRegime,
			&createdAt, &s.OutcomeReturn5d, &s.OutcomeReturn10d, &correct, &checkedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}

		s.Kind = domain.SignalKind(kind)
		s.Direction = domain.Direction(direction)
		if confidence.Valid {
			s.Confidence = confidence.Float64
		}
		if macroRegime.Valid {
			s.MacroRegime = macroRegime.String
		}
		if t, err := time.Parse(sqliteTime, createdAt); err == nil {
			s.CreatedAt = t.UTC()
		}
		if correct.Valid {
			v := correct.Int64 == 1
			s.OutcomeCorrect = &v
		}
		if checkedAt.Valid {
			if t, err := time.Parse(sqliteTime, checkedAt.String); err == nil {
				utc := t.UTC()
				s.OutcomeCheckedAt = &utc
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return out, nil
}

func boolPtrToInt(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}
