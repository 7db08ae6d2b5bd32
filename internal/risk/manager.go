// Package risk holds the stateless portfolio guard rails: position
// limits, stop computation, the drawdown gate and action plan sizing.
package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/alerts"
)

// Manager applies the risk rules. The alert repository is its only side
// effect channel; everything else is pure computation on inputs.
type Manager struct {
	alerts *alerts.Repository
	log    zerolog.Logger
}

func NewManager(alertRepo *alerts.Repository, log zerolog.Logger) *Manager {
	return &Manager{
		alerts: alertRepo,
		log:    log.With().Str("component", "risk").Logger(),
	}
}

// === POSITION LIMITS ===

// LimitCheck is the result of a position limit evaluation.
type LimitCheck struct {
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

// CheckPositionLimits validates a proposed position against the single
// position cap, the crypto allocation cap and the per-trade risk budget.
// currentCryptoValue is the market value of existing crypto holdings.
func (m *Manager) CheckPositionLimits(symbol string, proposedValue, portfolioValue float64,
	assetClass domain.AssetClass, currentCryptoValue float64) LimitCheck {

	check := LimitCheck{Allowed: true}

	positionPct := 1.0
	if portfolioValue > 0 {
		positionPct = proposedValue / portfolioValue
	}
	if positionPct > config.MaxSinglePosition {
		check.Violations = append(check.Violations,
			fmt.Sprintf("position %.1f%% exceeds max %.0f%%",
				positionPct*100, config.MaxSinglePosition*100))
	}

	if assetClass == domain.AssetCrypto && portfolioValue > 0 {
		cryptoPct := (currentCryptoValue + proposedValue) / portfolioValue
		if cryptoPct > config.MaxCryptoAlloc {
			check.Violations = append(check.Violations,
				fmt.Sprintf("crypto allocation %.1f%% exceeds max %.0f%%",
					cryptoPct*100, config.MaxCryptoAlloc*100))
		}
	}

	if portfolioValue > 0 {
		tradeRiskPct := proposedValue * config.StopPercentage / portfolioValue
		if tradeRiskPct > config.MaxTradeRisk {
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("trade risk %.2f%% exceeds max %.1f%%",
					tradeRiskPct*100, config.MaxTradeRisk*100))
		}
	}

	check.Allowed = len(check.Violations) == 0
	return check
}

// === STOP LOSS ===

// StopLevels are the three candidate stops plus the recommended one.
type StopLevels struct {
	ATRStop      *float64 `json:"atr_stop,omitempty"`
	PctStop      float64  `json:"pct_stop"`
	TrailingStop float64  `json:"trailing_stop"`
	Recommended  float64  `json:"recommended"`
}

// StopLoss computes the candidate stops for an entry and recommends the
// tightest (highest) one. atr nil omits the ATR stop.
func StopLoss(entryPrice float64, atr *float64) StopLevels {
	levels := StopLevels{
		PctStop:      entryPrice * (1 - config.StopPercentage),
		TrailingStop: entryPrice * (1 - config.TrailingStopPct),
	}
	levels.Recommended = math.Max(levels.PctStop, levels.TrailingStop)
	if atr != nil && *atr > 0 {
		atrStop := entryPrice - config.StopATRMultiplier**atr
		levels.ATRStop = &atrStop
		levels.Recommended = math.Max(levels.Recommended, atrStop)
	}
	return levels
}

// === DRAWDOWN GATE ===

// DrawdownStatus is the portfolio protection state.
type DrawdownStatus string

const (
	DrawdownOK       DrawdownStatus = "OK"
	DrawdownWarning  DrawdownStatus = "WARNING"  // new positions halved
	DrawdownHalt     DrawdownStatus = "HALT"     // block new BUYs
	DrawdownCritical DrawdownStatus = "CRITICAL" // reduce 25%, move to cash
)

// DrawdownReport is the result of the drawdown gate.
type DrawdownReport struct {
	Current float64        `json:"current_drawdown"`
	Max     float64        `json:"max_drawdown"`
	Status  DrawdownStatus `json:"status"`
	Actions []string       `json:"actions"`
}

// CheckDrawdown measures peak-to-current drawdown on the equity curve and
// escalates through the protection ladder, emitting a RiskAlert when a
// threshold trips.
func (m *Manager) CheckDrawdown(equityCurve []float64) DrawdownReport {
	if len(equityCurve) < 2 {
		return DrawdownReport{Status: DrawdownOK}
	}

	peak := equityCurve[0]
	maxDD, currentDD := 0.0, 0.0
	for _, v := range equityCurve {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			peak = v
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
		currentDD = dd
	}

	report := DrawdownReport{Current: currentDD, Max: maxDD, Status: DrawdownOK}
	switch {
	case currentDD >= config.DrawdownReduce:
		report.Status = DrawdownCritical
		report.Actions = []string{"Reduce positions by 25%", "Move to cash"}
		m.emitAlert("drawdown", domain.SeverityCritical,
			fmt.Sprintf("Drawdown %.1f%%, reducing positions", currentDD*100))
	case currentDD >= config.DrawdownHalt:
		report.Status = DrawdownHalt
		report.Actions = []string{"Stop all new BUY signals"}
		m.emitAlert("drawdown", domain.SeverityHigh,
			fmt.Sprintf("Drawdown %.1f%%, halting new buys", currentDD*100))
	case currentDD >= config.DrawdownWarning:
		report.Status = DrawdownWarning
		report.Actions = []string{"New position sizes halved"}
		m.emitAlert("drawdown", domain.SeverityWarning,
			fmt.Sprintf("Drawdown %.1f%%, reducing position sizes", currentDD*100))
	}
	return report
}

func (m *Manager) emitAlert(alertType string, severity domain.AlertSeverity, message string) {
	if m.alerts == nil {
		return
	}
	if err := m.alerts.Add(alertType, severity, message, ""); err != nil {
		m.log.Warn().Err(err).Str("type", alertType).Msg("Risk alert write failed")
	}
}

// === CASH RESERVE ===

// CashCheck reports whether the minimum cash reserve holds.
type CashCheck struct {
	Cash    float64 `json:"cash"`
	CashPct float64 `json:"cash_pct"`
	OK      bool    `json:"ok"`
	Message string  `json:"message,omitempty"`
}

// CheckCashReserve requires cash to stay above the configured floor.
func CheckCashReserve(cash, portfolioValue float64) CashCheck {
	pct := 1.0
	if portfolioValue > 0 {
		pct = cash / portfolioValue
	}
	check := CashCheck{Cash: cash, CashPct: pct, OK: pct >= config.MinCashReserve}
	if !check.OK {
		check.Message = fmt.Sprintf("cash %.1f%% below minimum %.0f%%",
			pct*100, config.MinCashReserve*100)
	}
	return check
}

// === ACTION PLAN ===

// PlanInput carries everything the sizer needs for one signal.
type PlanInput struct {
	Signal         domain.Signal
	AssetClass     domain.AssetClass
	CurrentPrice   float64
	ATR            *float64
	PortfolioValue float64
	Cash           float64
	EquityCurve    []float64
	CryptoValue    float64
}

// BuildPlan turns a BUY/SELL signal into a concrete risk-gated trade
// specification. A blocked plan carries the reason; it is never masked
// as HOLD.
func (m *Manager) BuildPlan(in PlanInput) domain.ActionPlan {
	plan := domain.ActionPlan{
		Symbol:     in.Signal.Symbol,
		Action:     in.Signal.Direction,
		EntryPrice: in.CurrentPrice,
	}
	if in.Signal.Direction == domain.DirectionHold || in.CurrentPrice <= 0 {
		return plan
	}

	dd := m.CheckDrawdown(in.EquityCurve)
	sizeScale := 1.0
	if in.Signal.Direction == domain.DirectionBuy {
		switch dd.Status {
		case DrawdownCritical:
			plan.Blocked = true
			plan.Reason = "drawdown critical, BUY blocked"
			return plan
		case DrawdownHalt:
			plan.Blocked = true
			plan.Reason = "drawdown halt, no new buys"
			return plan
		case DrawdownWarning:
			sizeScale = 0.5
			plan.Warnings = append(plan.Warnings, "drawdown warning, position size halved")
		}

		cashCheck := CheckCashReserve(in.Cash, in.PortfolioValue)
		if !cashCheck.OK {
			plan.Blocked = true
			plan.Reason = cashCheck.Message
			return plan
		}
	}

	stops := StopLoss(in.CurrentPrice, in.ATR)
	stopDistance := in.CurrentPrice - stops.Recommended
	if stopDistance <= 0 {
		stopDistance = in.CurrentPrice * config.StopPercentage
	}
	stopPct := stopDistance / in.CurrentPrice

	// Risk a fixed fraction of the portfolio per trade, capped by the
	// single-position limit and by available cash.
	value := config.MaxTradeRisk * in.PortfolioValue / stopPct * sizeScale
	value = math.Min(value, config.MaxSinglePosition*in.PortfolioValue)
	value = math.Min(value, 0.90*in.Cash)
	if value <= 0 {
		plan.Blocked = true
		plan.Reason = "no capital available for position"
		return plan
	}

	shares := value / in.CurrentPrice
	if in.AssetClass == domain.AssetCrypto {
		shares = math.Floor(shares*10000) / 10000
	} else {
		shares = math.Floor(shares)
	}
	if shares <= 0 {
		plan.Blocked = true
		plan.Reason = "position too small for one share"
		return plan
	}

	plan.Shares = shares
	plan.PositionValue = shares * in.CurrentPrice
	plan.StopLoss = stops.Recommended
	plan.StopPct = stopPct
	plan.DollarRisk = shares * stopDistance
	if in.Signal.Direction == domain.DirectionBuy {
		plan.TargetPrice = in.CurrentPrice + config.RiskRewardMultiple*stopDistance
	} else {
		plan.TargetPrice = in.CurrentPrice - config.RiskRewardMultiple*stopDistance
	}

	limits := m.CheckPositionLimits(in.Signal.Symbol, plan.PositionValue,
		in.PortfolioValue, in.AssetClass, in.CryptoValue)
	plan.Warnings = append(plan.Warnings, limits.Warnings...)
	if !limits.Allowed {
		plan.Blocked = true
		plan.Reason = limits.Violations[0]
	}
	return plan
}
