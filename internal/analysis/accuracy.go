package analysis

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/signals"
)

// === ACCURACY TRACKING ===

const (
	accuracyMinAgeDays = 5
	accuracyBatchLimit = 100
	holdCorrectBand    = 0.02 // HOLD counts as correct within +/-2%
)

// AccuracyTracker verifies past signals against realised price moves.
// Signals without price data stay pending and are retried on later runs.
type AccuracyTracker struct {
	signals *signals.Repository
	prices  *clients.PriceProvider
	log     zerolog.Logger
}

func NewAccuracyTracker(repo *signals.Repository, prices *clients.PriceProvider, log zerolog.Logger) *AccuracyTracker {
	return &AccuracyTracker{
		signals: repo,
		prices:  prices,
		log:     log.With().Str("component", "accuracy").Logger(),
	}
}

// RunSummary reports one evaluation pass.
type RunSummary struct {
	Checked   int
	Evaluated int
	Correct   int
}

// Run evaluates the oldest pending signals that are at least five days old.
func (t *AccuracyTracker) Run(ctx context.Context) (RunSummary, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -accuracyMinAgeDays)
	pending, err := t.signals.Unchecked(cutoff, accuracyBatchLimit)
	if err != nil {
		return RunSummary{}, err
	}

	var summary RunSummary
	for _, sig := range pending {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		outcome := t.evaluate(ctx, sig)
		if outcome == nil {
			continue
		}
		if err := t.signals.RecordOutcome(sig.ID, outcome.return5d, outcome.return10d, outcome.correct); err != nil {
			t.log.Warn().Err(err).Int64("signal_id", sig.ID).Msg("Outcome write failed")
			continue
		}
		summary.Checked++
		if outcome.correct != nil {
			summary.Evaluated++
			if *outcome.correct {
				summary.Correct++
			}
		}
	}

	if summary.Checked > 0 {
		t.log.Info().
			Int("checked", summary.Checked).
			Int("evaluated", summary.Evaluated).
			Int("correct", summary.Correct).
			Msg("Accuracy pass complete")
	}
	return summary, nil
}

type outcome struct {
	return5d  *float64
	return10d *float64
	correct   *bool
}

// evaluate computes forward returns from the first trading day on or after
// the signal date. Nil means no usable price data yet.
func (t *AccuracyTracker) evaluate(ctx context.Context, sig domain.Signal) *outcome {
	// Signals may sit pending for weeks; size the lookback to the actual age
	// plus a buffer for ten forward trading days.
	ageDays := int(time.Since(sig.CreatedAt).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}
	series, err := t.prices.History(ctx, sig.Symbol, domain.ClassOfSymbol(sig.Symbol), ageDays+20)
	if err != nil || len(series) == 0 {
		return nil
	}

	signalDay := sig.CreatedAt.Truncate(24 * time.Hour)
	baseIdx := -1
	for i, c := range series {
		if !c.Date.Before(signalDay) {
			baseIdx = i
			break
		}
	}
	if baseIdx < 0 {
		return nil
	}
	basePrice := series[baseIdx].Close
	if basePrice == 0 {
		return nil
	}

	future := series[baseIdx+1:]
	out := &outcome{}
	if len(future) >= 5 {
		r := future[4].Close/basePrice - 1
		out.return5d = &r
	}
	if len(future) >= 10 {
		r := future[9].Close/basePrice - 1
		out.return10d = &r
	}

	if out.return5d != nil {
		var correct bool
		switch sig.Direction {
		case domain.DirectionBuy:
			correct = *out.return5d > 0
		case domain.DirectionSell:
			correct = *out.return5d < 0
		default:
			correct = math.Abs(*out.return5d) < holdCorrectBand
		}
		out.correct = &correct
	}
	return out
}
