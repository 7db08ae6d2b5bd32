package papertrading

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
)

// Engine executes signals against the virtual portfolio. One engine holds
// one Storage; per-signal operations either fully apply (open + trade log)
// or leave no trace (insufficient cash returns no action).
type Engine struct {
	store           Storage
	log             zerolog.Logger
	initialCapital  float64
	positionSizePct float64
	commission      float64
	trailingPct     float64
}

// Options tunes the engine; zero values fall back to the defaults.
type Options struct {
	InitialCapital  float64
	PositionSizePct float64
	Commission      float64
	TrailingPct     float64
}

// NewEngine creates a paper trading engine on the given storage.
func NewEngine(store Storage, log zerolog.Logger, opts Options) *Engine {
	if opts.InitialCapital <= 0 {
		opts.InitialCapital = config.PaperInitialCapital
	}
	if opts.PositionSizePct <= 0 {
		opts.PositionSizePct = 0.10
	}
	if opts.Commission < 0 {
		opts.Commission = 0
	} else if opts.Commission == 0 {
		opts.Commission = config.PaperCommission
	}
	if opts.TrailingPct <= 0 {
		opts.TrailingPct = config.PaperTrailingPct
	}
	return &Engine{
		store:           store,
		log:             log.With().Str("component", "paper_engine").Logger(),
		initialCapital:  opts.InitialCapital,
		positionSizePct: opts.PositionSizePct,
		commission:      opts.Commission,
		trailingPct:     opts.TrailingPct,
	}
}

// ProcessSignal opens or closes a virtual position for the signal.
// Returns the action taken ("" when nothing happened).
func (e *Engine) ProcessSignal(sig domain.Signal, currentPrice float64, atr *float64, thresholds domain.Thresholds) (domain.TradeAction, error) {
	if currentPrice <= 0 {
		return "", fmt.Errorf("%w: non-positive price for %s", domain.ErrBadInput, sig.Symbol)
	}

	openPositions, err := e.store.OpenPositions()
	if err != nil {
		return "", fmt.Errorf("failed to load open positions: %w", err)
	}

	var existing *domain.PaperPosition
	for i := range openPositions {
		if openPositions[i].Symbol == sig.Symbol {
			existing = &openPositions[i]
			break
		}
	}

	// === BUY ===
	if sig.Direction == domain.DirectionBuy &&
		sig.Strength >= thresholds.Buy &&
		sig.Confidence >= thresholds.BuyConfidence &&
		existing == nil {

		portfolioValue := e.portfolioValue(openPositions, map[string]float64{sig.Symbol: currentPrice})
		positionValue := portfolioValue * e.positionSizePct
		quantity := positionValue / currentPrice

		cost := quantity * currentPrice * (1 + e.commission)
		cash := availableCash(e.initialCapital, openPositions)
		if cost > cash {
			e.log.Info().
				Str("symbol", sig.Symbol).
				Float64("cash", cash).
				Float64("cost", cost).
				Msg("Paper BUY skipped, insufficient cash")
			return "", nil
		}

		// ATR-based stop; fall back to a fixed percentage
		var stop float64
		if atr != nil && *atr > 0 {
			stop = currentPrice - config.StopATRMultiplier**atr
		} else {
			stop = currentPrice * (1 - config.StopPercentage)
		}

		if _, err := e.store.OpenPosition(sig.Symbol, currentPrice, quantity, &stop); err != nil {
			return "", fmt.Errorf("failed to open paper position: %w", err)
		}
		if err := e.store.AddTrade(domain.PaperTrade{
			Symbol:   sig.Symbol,
			Action:   domain.TradeBuy,
			Price:    currentPrice,
			Quantity: quantity,
			Reason:   fmt.Sprintf("Signal BUY (str=%.2f conf=%.2f)", sig.Strength, sig.Confidence),
		}); err != nil {
			return "", fmt.Errorf("failed to log paper trade: %w", err)
		}

		e.log.Info().
			Str("symbol", sig.Symbol).
			Float64("price", currentPrice).
			Float64("quantity", quantity).
			Float64("stop", stop).
			Msg("Paper BUY")
		return domain.TradeBuy, nil
	}

	// === SELL ===
	if sig.Direction == domain.DirectionSell && existing != nil {
		pnl := (currentPrice-existing.EntryPrice)*existing.Quantity -
			existing.Quantity*currentPrice*e.commission

		if err := e.store.ClosePosition(existing.ID, currentPrice, pnl, time.Now().UTC()); err != nil {
			return "", fmt.Errorf("failed to close paper position: %w", err)
		}
		if err := e.store.AddTrade(domain.PaperTrade{
			Symbol:   sig.Symbol,
			Action:   domain.TradeSell,
			Price:    currentPrice,
			Quantity: existing.Quantity,
			PnL:      pnl,
			Reason:   fmt.Sprintf("Signal SELL (str=%.2f)", sig.Strength),
		}); err != nil {
			return "", fmt.Errorf("failed to log paper trade: %w", err)
		}

		e.log.Info().
			Str("symbol", sig.Symbol).
			Float64("price", currentPrice).
			Float64("pnl", pnl).
			Msg("Paper SELL")
		return domain.TradeSell, nil
	}

	return "", nil
}

// UpdatePositions is the tick handler: it lifts trailing stops on new highs,
// then closes any position whose price is at or below the effective stop
// (max of fixed and trailing). Returns the positions stopped out.
func (e *Engine) UpdatePositions(currentPrices map[string]float64) ([]domain.PaperPosition, error) {
	openPositions, err := e.store.OpenPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}

	var stopped []domain.PaperPosition
	for _, pos := range openPositions {
		price, ok := currentPrices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}

		high := pos.HighestPrice
		if high == 0 {
			high = pos.EntryPrice
		}
		trailing := derefOrZero(pos.TrailingStop)
		if price > high {
			high = price
			trailing = price * (1 - e.trailingPct)
			if err := e.store.UpdateStops(pos.ID, high, trailing); err != nil {
				return nil, fmt.Errorf("failed to lift trailing stop for %s: %w", pos.Symbol, err)
			}
			pos.HighestPrice = high
			pos.TrailingStop = &trailing
		}

		effectiveStop := math.Max(derefOrZero(pos.StopLoss), trailing)
		if effectiveStop > 0 && price <= effectiveStop {
			pnl := (price-pos.EntryPrice)*pos.Quantity - pos.Quantity*price*e.commission
			if err := e.store.ClosePosition(pos.ID, price, pnl, time.Now().UTC()); err != nil {
				return nil, fmt.Errorf("failed to close stopped position %s: %w", pos.Symbol, err)
			}
			if err := e.store.AddTrade(domain.PaperTrade{
				Symbol:   pos.Symbol,
				Action:   domain.TradeStop,
				Price:    price,
				Quantity: pos.Quantity,
				PnL:      pnl,
				Reason:   fmt.Sprintf("Stop-loss triggered @ %.4f", effectiveStop),
			}); err != nil {
				return nil, fmt.Errorf("failed to log stop trade: %w", err)
			}

			pos.ClosePrice = &price
			pos.RealizedPnL = pnl
			stopped = append(stopped, pos)

			e.log.Info().
				Str("symbol", pos.Symbol).
				Float64("price", price).
				Float64("stop", effectiveStop).
				Float64("pnl", pnl).
				Msg("Paper STOP")
		}
	}

	return stopped, nil
}

// PositionView is one open position in the portfolio summary.
type PositionView struct {
	Symbol        string     `json:"symbol"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	Quantity      float64    `json:"quantity"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	PctChange     float64    `json:"pct_change"`
	StopLoss      float64    `json:"stop_loss,omitempty"`
	DistToStopPct *float64   `json:"dist_to_stop_pct,omitempty"`
	OpenedAt      time.Time  `json:"opened_at"`
}

// Summary is a snapshot of the virtual portfolio.
type Summary struct {
	InitialCapital float64        `json:"initial_capital"`
	TotalValue     float64        `json:"total_value"`
	Cash           float64        `json:"cash"`
	Invested       float64        `json:"invested"`
	UnrealizedPnL  float64        `json:"unrealized_pnl"`
	RealizedPnL    float64        `json:"realized_pnl"`
	TotalReturn    float64        `json:"total_return"`
	NumPositions   int            `json:"n_positions"`
	Positions      []PositionView `json:"positions"`
}

// PortfolioSummary returns the current snapshot. Missing prices fall back
// to entry prices.
func (e *Engine) PortfolioSummary(currentPrices map[string]float64) (*Summary, error) {
	openPositions, err := e.store.OpenPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}
	trades, err := e.store.Trades(500)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	cash := availableCash(e.initialCapital, openPositions)

	var investedValue, unrealized float64
	views := make([]PositionView, 0, len(openPositions))
	for _, pos := range openPositions {
		price, ok := currentPrices[pos.Symbol]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		value := pos.Quantity * price
		upnl := (price - pos.EntryPrice) * pos.Quantity
		investedValue += value
		unrealized += upnl

		var pct float64
		if pos.EntryPrice > 0 {
			pct = (price/pos.EntryPrice - 1) * 100
		}
		stop := math.Max(derefOrZero(pos.StopLoss), derefOrZero(pos.TrailingStop))
		var distToStop *float64
		if stop > 0 && price > 0 {
			d := (price - stop) / price * 100
			distToStop = &d
		}
		views = append(views, PositionView{
			Symbol:        pos.Symbol,
			EntryPrice:    pos.EntryPrice,
			CurrentPrice:  price,
			Quantity:      pos.Quantity,
			UnrealizedPnL: upnl,
			PctChange:     pct,
			StopLoss:      stop,
			DistToStopPct: distToStop,
			OpenedAt:      pos.OpenedAt,
		})
	}

	var realized float64
	for _, t := range trades {
		if t.Action == domain.TradeSell || t.Action == domain.TradeStop {
			realized += t.PnL
		}
	}

	totalValue := cash + investedValue
	return &Summary{
		InitialCapital: e.initialCapital,
		TotalValue:     totalValue,
		Cash:           cash,
		Invested:       investedValue,
		UnrealizedPnL:  unrealized,
		RealizedPnL:    realized,
		TotalReturn:    (totalValue - e.initialCapital) / e.initialCapital,
		NumPositions:   len(openPositions),
		Positions:      views,
	}, nil
}

// Reset wipes the virtual portfolio back to initial capital.
func (e *Engine) Reset() error {
	if err := e.store.Reset(); err != nil {
		return fmt.Errorf("failed to reset paper portfolio: %w", err)
	}
	e.log.Info().Float64("initial_capital", e.initialCapital).Msg("Paper portfolio reset")
	return nil
}

// portfolioValue is cash plus open positions marked at current prices
// (entry price when no quote is available).
func (e *Engine) portfolioValue(openPositions []domain.PaperPosition, currentPrices map[string]float64) float64 {
	cash := availableCash(e.initialCapital, openPositions)
	var invested float64
	for _, pos := range openPositions {
		price, ok := currentPrices[pos.Symbol]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		invested += pos.Quantity * price
	}
	return cash + invested
}

// availableCash is initial capital minus the cost basis of open positions.
func availableCash(initialCapital float64, openPositions []domain.PaperPosition) float64 {
	var investedCost float64
	for _, pos := range openPositions {
		investedCost += pos.EntryPrice * pos.Quantity
	}
	return math.Max(initialCapital-investedCost, 0)
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
