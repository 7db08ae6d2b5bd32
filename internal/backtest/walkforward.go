package backtest

import (
	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === WALK-FORWARD VALIDATION ===

// FoldResult holds the metrics of one out-of-sample fold.
type FoldResult struct {
	Fold         int     `json:"fold"`
	OOSStart     string  `json:"oos_start"` // YYYY-MM-DD
	OOSEnd       string  `json:"oos_end"`
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Sharpe       float64 `json:"sharpe_ratio"`
	Sortino      float64 `json:"sortino_ratio"`
	Calmar       float64 `json:"calmar_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	TotalTrades  int     `json:"total_trades"`
}

// WalkForwardResult aggregates the per-fold out-of-sample metrics.
type WalkForwardResult struct {
	Folds            []FoldResult `json:"folds"`
	NumFolds         int          `json:"n_folds"`
	OOSSharpeMean    float64      `json:"oos_sharpe_mean"`
	OOSSharpeStd     float64      `json:"oos_sharpe_std"`
	OOSReturnMean    float64      `json:"oos_return_mean"`
	OOSMaxDDMean     float64      `json:"oos_max_dd_mean"`
	OOSPositiveFolds int          `json:"oos_positive_folds"`
}

// WalkForward validates a strategy with anchored in-sample windows: each
// fold re-runs the engine on all data up to the end of a fresh
// out-of-sample slice, so the training window grows while every OOS
// period is unseen.
type WalkForward struct {
	InSampleBars    int
	OutOfSampleBars int

	engine *Engine
	log    zerolog.Logger
}

// NewWalkForward builds a validator with the standard 252/63 bar windows.
func NewWalkForward(engine *Engine, log zerolog.Logger) *WalkForward {
	return &WalkForward{
		InSampleBars:    252,
		OutOfSampleBars: 63,
		engine:          engine,
		log:             log.With().Str("component", "walkforward").Logger(),
	}
}

// Run executes every fold that fits in the data and aggregates the
// out-of-sample metrics.
func (w *WalkForward) Run(priceData map[string]domain.Series, scoreFn ScoreFunc) WalkForwardResult {
	dates := unionDates(priceData)
	totalBars := len(dates)

	var out WalkForwardResult
	foldIdx := 0
	for oosEnd := w.InSampleBars + w.OutOfSampleBars; oosEnd <= totalBars; oosEnd += w.OutOfSampleBars {
		oosStartIdx := oosEnd - w.OutOfSampleBars
		cutoff := dates[oosEnd-1]

		window := make(map[string]domain.Series, len(priceData))
		for sym, series := range priceData {
			sliced := series.Upto(cutoff)
			if len(sliced) >= w.InSampleBars+10 {
				window[sym] = sliced
			}
		}
		if len(window) == 0 {
			foldIdx++
			continue
		}

		run := w.engine.Run(window, scoreFn)
		fold := FoldResult{
			Fold:         foldIdx,
			OOSStart:     dates[oosStartIdx].Format("2006-01-02"),
			OOSEnd:       cutoff.Format("2006-01-02"),
			TotalReturn:  run.TotalReturn,
			AnnualReturn: run.AnnualReturn,
			Sharpe:       run.Sharpe,
			Sortino:      run.Sortino,
			Calmar:       run.Calmar,
			MaxDrawdown:  run.MaxDrawdown,
			WinRate:      run.WinRate,
			TotalTrades:  run.TotalTrades,
		}
		out.Folds = append(out.Folds, fold)
		w.log.Debug().
			Int("fold", foldIdx).
			Str("oos_start", fold.OOSStart).
			Str("oos_end", fold.OOSEnd).
			Float64("sharpe", fold.Sharpe).
			Float64("return", fold.TotalReturn).
			Msg("Walk-forward fold complete")
		foldIdx++
	}

	out.NumFolds = len(out.Folds)
	if out.NumFolds == 0 {
		return out
	}

	sharpes := make([]float64, out.NumFolds)
	returns := make([]float64, out.NumFolds)
	maxDDs := make([]float64, out.NumFolds)
	for i, f := range out.Folds {
		sharpes[i] = f.Sharpe
		returns[i] = f.TotalReturn
		maxDDs[i] = f.MaxDrawdown
		if f.TotalReturn > 0 {
			out.OOSPositiveFolds++
		}
	}
	out.OOSSharpeMean = formulas.Mean(sharpes)
	out.OOSSharpeStd = formulas.StdDev(sharpes)
	out.OOSReturnMean = formulas.Mean(returns)
	out.OOSMaxDDMean = formulas.Mean(maxDDs)
	return out
}
