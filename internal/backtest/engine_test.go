package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/domain"
)

func dailySeries(closes []float64) domain.Series {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, len(closes))
	for i, c := range closes {
		series[i] = domain.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return series
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

func alwaysBuy(string, domain.Series) (float64, float64) { return 1.0, 1.0 }
func neverTrade(string, domain.Series) (float64, float64) { return 0.0, 0.0 }

func TestRunEmptyData(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	result := e.Run(nil, alwaysBuy)
	assert.Equal(t, e.InitialCapital, result.FinalValue)
	assert.Empty(t, result.Trades)
	assert.Zero(t, result.TotalReturn)
}

func TestRunRequiresHistory(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	data := map[string]domain.Series{"AAPL": dailySeries(risingCloses(150, 100, 0.2))}
	result := e.Run(data, alwaysBuy)
	assert.Empty(t, result.Trades)
	assert.Equal(t, e.InitialCapital, result.FinalValue)
}

func TestRunRisingMarketBuyAndClose(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	data := map[string]domain.Series{"AAPL": dailySeries(risingCloses(260, 100, 0.2))}

	result := e.Run(data, alwaysBuy)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, "BUY", result.Trades[0].Action)
	assert.Equal(t, "CLOSE", result.Trades[1].Action)
	assert.Positive(t, result.Trades[1].PnL)
	assert.Greater(t, result.FinalValue, e.InitialCapital)
	assert.Positive(t, result.TotalReturn)
	assert.Equal(t, 1.0, result.WinRate)
	assert.True(t, result.ProfitFactor > 1)
	assert.Len(t, result.EquityCurve, 260)
	// The last equity bar reflects the liquidation cash
	assert.Equal(t, result.FinalValue, result.EquityCurve[len(result.EquityCurve)-1])
	assert.Len(t, result.BenchmarkCurve, 260)
	assert.Positive(t, result.BenchmarkReturn)
}

func TestRunStopExitOnCrash(t *testing.T) {
	closes := risingCloses(205, 100, 0.1)
	for i := 0; i < 5; i++ {
		closes = append(closes, 100) // 17% gap down, then flat
	}
	data := map[string]domain.Series{"AAPL": dailySeries(closes)}

	// Buy on strength, never rebuy once the tape turns
	momentum := func(_ string, history domain.Series) (float64, float64) {
		closes := history.Closes()
		if len(closes) < 2 || closes[len(closes)-1] <= closes[len(closes)-2] {
			return 0, 0
		}
		return 1.0, 1.0
	}

	e := NewEngine(zerolog.Nop())
	result := e.Run(data, momentum)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, "BUY", result.Trades[0].Action)
	assert.Equal(t, "SELL (STOP)", result.Trades[1].Action)
	assert.Negative(t, result.Trades[1].PnL)
	assert.Zero(t, result.WinRate)
	assert.Less(t, result.FinalValue, e.InitialCapital)
}

func TestRunSignalExit(t *testing.T) {
	data := map[string]domain.Series{"AAPL": dailySeries(risingCloses(220, 100, 0.2))}

	flip := func(_ string, history domain.Series) (float64, float64) {
		if len(history) < 210 {
			return 1.0, 1.0
		}
		return -1.0, 1.0
	}

	e := NewEngine(zerolog.Nop())
	result := e.Run(data, flip)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, "BUY", result.Trades[0].Action)
	assert.Equal(t, "SELL (SIGNAL)", result.Trades[1].Action)
	assert.Positive(t, result.Trades[1].PnL)
}

func TestRunNeverTrades(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	data := map[string]domain.Series{"AAPL": dailySeries(risingCloses(260, 100, 0.2))}
	result := e.Run(data, neverTrade)
	assert.Empty(t, result.Trades)
	assert.Equal(t, e.InitialCapital, result.FinalValue)
	assert.Zero(t, result.MaxDrawdown)
}

func TestToBacktestResult(t *testing.T) {
	r := Result{
		InitialCapital: 100000,
		TotalReturn:    0.12,
		Sharpe:         1.4,
		MaxDrawdown:    0.08,
		WinRate:        0.6,
		TotalTrades:    10,
		EquityCurve:    []float64{100000, 112000},
	}
	stored := r.ToBacktestResult("momentum", `{"days":365}`)
	assert.Equal(t, "momentum", stored.Name)
	assert.Equal(t, 0.12, stored.TotalReturn)
	assert.Equal(t, 10, stored.TotalTrades)
	assert.Equal(t, r.EquityCurve, stored.EquityCurve)
}
