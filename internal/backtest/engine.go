// Package backtest runs the event-driven historical simulation: the
// date-union trading loop, performance metrics, the anchored walk-forward
// validator and the Monte Carlo bootstrap.
package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

const (
	// minHistoryBars is the history a symbol needs before it may trade.
	// SMA200 is the slowest indicator in the scorer.
	minHistoryBars = 200
)

// ScoreFunc scores one symbol from its history up to and including the
// current bar. Implementations must not look past the end of the series.
type ScoreFunc func(symbol string, history domain.Series) (score, confidence float64)

// Trade is one executed order in a simulation.
type Trade struct {
	Symbol   string    `json:"symbol"`
	Action   string    `json:"action"` // BUY, SELL (SIGNAL), SELL (STOP), CLOSE
	Date     time.Time `json:"date"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	PnL      float64   `json:"pnl"` // zero for entries
}

// Result is the full output of one simulation run.
type Result struct {
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturn    float64   `json:"total_return"`
	AnnualReturn   float64   `json:"annual_return"`
	Sharpe         float64   `json:"sharpe_ratio"`
	Sortino        float64   `json:"sortino_ratio"`
	Calmar         float64   `json:"calmar_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	VaR95          float64   `json:"var_95"`
	CVaR95         float64   `json:"cvar_95"`
	WinRate        float64   `json:"win_rate"`
	ProfitFactor   float64   `json:"profit_factor"`
	InformationRatio float64 `json:"information_ratio"`
	TotalTrades    int       `json:"total_trades"`
	Trades         []Trade   `json:"trades"`
	EquityCurve    []float64 `json:"equity_curve"`
	BenchmarkReturn float64  `json:"benchmark_return"`
	BenchmarkCurve []float64 `json:"benchmark_curve"`
}

// Engine simulates trading a scoring function over historical bars.
type Engine struct {
	InitialCapital  float64
	PositionSizePct float64
	Commission      float64
	Thresholds      domain.Thresholds

	log zerolog.Logger
}

// NewEngine builds an engine with the standard capital, sizing, commission
// and entry gates.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		InitialCapital:  config.PaperInitialCapital,
		PositionSizePct: 0.10,
		Commission:      config.PaperCommission,
		Thresholds:      config.DefaultThresholds,
		log:             log.With().Str("component", "backtest").Logger(),
	}
}

// position is an open simulated holding.
type position struct {
	quantity   float64
	entryPrice float64
	stopLoss   float64
	highWater  float64
}

// Run simulates trading scoreFn over the sorted union of all trading days.
// Signals on bar t read only bars <= t. A drawdown at or past the halt
// threshold suspends new entries for the bar; stop exits still fire.
func (e *Engine) Run(priceData map[string]domain.Series, scoreFn ScoreFunc) Result {
	result := Result{InitialCapital: e.InitialCapital}
	if len(priceData) == 0 {
		result.FinalValue = e.InitialCapital
		return result
	}

	dates := unionDates(priceData)
	symbols := sortedSymbols(priceData)

	cash := e.InitialCapital
	positions := make(map[string]*position)
	peak := e.InitialCapital
	equity := make([]float64, 0, len(dates))

	for _, date := range dates {
		// Mark every open position to market. A position with no bar
		// today is carried at its entry price.
		value := cash
		for sym, pos := range positions {
			price := pos.entryPrice
			if c, ok := priceData[sym].At(date); ok {
				price = c.Close
			}
			value += pos.quantity * price
		}
		equity = append(equity, value)
		if value > peak {
			peak = value
		}

		// Stop exits. The trailing stop lifts with each new high and the
		// effective stop is the tighter of fixed and trailing.
		for _, sym := range symbols {
			pos, held := positions[sym]
			if !held {
				continue
			}
			c, ok := priceData[sym].At(date)
			if !ok {
				continue
			}
			price := c.Close
			if price > pos.highWater {
				pos.highWater = price
			}
			trailing := pos.highWater * (1 - config.TrailingStopPct)
			stop := math.Max(pos.stopLoss, trailing)
			if price <= stop {
				cash += pos.quantity * price * (1 - e.Commission)
				result.Trades = append(result.Trades, Trade{
					Symbol:   sym,
					Action:   "SELL (STOP)",
					Date:     date,
					Price:    price,
					Quantity: pos.quantity,
					PnL:      (price - pos.entryPrice) * pos.quantity,
				})
				delete(positions, sym)
			}
		}

		// Portfolio protection: suspend new entries while drawn down past
		// the halt threshold.
		if peak > 0 && (peak-value)/peak >= config.DrawdownHalt {
			continue
		}

		for _, sym := range symbols {
			history := priceData[sym].Upto(date)
			if len(history) < minHistoryBars {
				continue
			}
			last, _ := history.Last()
			if !last.Date.Equal(date) || last.Close <= 0 {
				continue
			}
			price := last.Close
			score, conf := scoreFn(sym, history)
			pos, held := positions[sym]

			switch {
			case !held && score > e.Thresholds.Buy && conf >= e.Thresholds.BuyConfidence:
				quantity := e.PositionSizePct * value / price
				cost := quantity * price * (1 + e.Commission)
				if quantity <= 0 || cost > cash {
					continue
				}
				cash -= cost
				stop := price * (1 - config.StopPercentage)
				if atr, ok := formulas.ATR(history.Highs(), history.Lows(), history.Closes(), 14); ok && atr > 0 {
					stop = price - config.StopATRMultiplier*atr
				}
				positions[sym] = &position{
					quantity:   quantity,
					entryPrice: price,
					stopLoss:   stop,
					highWater:  price,
				}
				result.Trades = append(result.Trades, Trade{
					Symbol:   sym,
					Action:   "BUY",
					Date:     date,
					Price:    price,
					Quantity: quantity,
				})

			case held && score < e.Thresholds.Sell && conf >= e.Thresholds.SellConfidence:
				cash += pos.quantity * price * (1 - e.Commission)
				result.Trades = append(result.Trades, Trade{
					Symbol:   sym,
					Action:   "SELL (SIGNAL)",
					Date:     date,
					Price:    price,
					Quantity: pos.quantity,
					PnL:      (price - pos.entryPrice) * pos.quantity,
				})
				delete(positions, sym)
			}
		}
	}

	// Liquidate everything at the last available price.
	if len(dates) > 0 {
		lastDate := dates[len(dates)-1]
		for _, sym := range symbols {
			pos, held := positions[sym]
			if !held {
				continue
			}
			price := pos.entryPrice
			if c, ok := priceData[sym].Last(); ok {
				price = c.Close
			}
			cash += pos.quantity * price * (1 - e.Commission)
			result.Trades = append(result.Trades, Trade{
				Symbol:   sym,
				Action:   "CLOSE",
				Date:     lastDate,
				Price:    price,
				Quantity: pos.quantity,
				PnL:      (price - pos.entryPrice) * pos.quantity,
			})
			delete(positions, sym)
		}
		if len(equity) > 0 {
			equity[len(equity)-1] = cash
		}
	}

	result.EquityCurve = equity
	result.FinalValue = cash
	result.BenchmarkCurve = benchmarkCurve(priceData, dates, symbols, e.InitialCapital)
	fillMetrics(&result)

	e.log.Info().
		Int("symbols", len(symbols)).
		Int("bars", len(dates)).
		Int("trades", result.TotalTrades).
		Float64("total_return", result.TotalReturn).
		Float64("sharpe", result.Sharpe).
		Msg("Backtest complete")
	return result
}

// ToBacktestResult maps a run onto the persisted record.
func (r Result) ToBacktestResult(name, configJSON string) *domain.BacktestResult {
	return &domain.BacktestResult{
		Name:         name,
		Config:       configJSON,
		TotalReturn:  r.TotalReturn,
		AnnualReturn: r.AnnualReturn,
		Sharpe:       r.Sharpe,
		Sortino:      r.Sortino,
		Calmar:       r.Calmar,
		MaxDrawdown:  r.MaxDrawdown,
		VaR95:        r.VaR95,
		CVaR95:       r.CVaR95,
		WinRate:      r.WinRate,
		TotalTrades:  r.TotalTrades,
		EquityCurve:  r.EquityCurve,
	}
}

// unionDates is the sorted union of trading days across all symbols.
func unionDates(priceData map[string]domain.Series) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, series := range priceData {
		for _, c := range series {
			seen[c.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func sortedSymbols(priceData map[string]domain.Series) []string {
	symbols := make([]string, 0, len(priceData))
	for sym := range priceData {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// benchmarkCurve is an equal-weight buy-and-hold of every symbol, each
// normalised to its first close, carrying the last price forward over
// non-trading days.
func benchmarkCurve(priceData map[string]domain.Series, dates []time.Time, symbols []string, initial float64) []float64 {
	if len(dates) == 0 || len(symbols) == 0 {
		return nil
	}
	base := make(map[string]float64, len(symbols))
	last := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if len(priceData[sym]) > 0 && priceData[sym][0].Close > 0 {
			base[sym] = priceData[sym][0].Close
			last[sym] = priceData[sym][0].Close
		}
	}

	curve := make([]float64, 0, len(dates))
	for _, date := range dates {
		sum, n := 0.0, 0
		for _, sym := range symbols {
			b, ok := base[sym]
			if !ok {
				continue
			}
			if c, found := priceData[sym].At(date); found {
				last[sym] = c.Close
			}
			sum += last[sym] / b
			n++
		}
		if n == 0 {
			curve = append(curve, initial)
			continue
		}
		curve = append(curve, initial*sum/float64(n))
	}
	return curve
}
