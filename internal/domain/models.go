// Package domain holds the core record types shared by every module.
// The domain layer is pure: no database handles, no HTTP, no logging.
package domain

import (
	"strings"
	"time"
)

// Direction is the emitted trade direction of a signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// AssetClass distinguishes equities from crypto pairs. Crypto symbols skip
// the equity-only factors (earnings, analyst, short interest, options,
// sector) and trade fractional quantities.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

// ClassOfSymbol infers the asset class from symbol notation: crypto pairs
// are written against a quote currency ("BTC/USDT", "BTC-USD"), equities
// bare ("AAPL").
func ClassOfSymbol(symbol string) AssetClass {
	if strings.ContainsRune(symbol, '/') {
		return AssetCrypto
	}
	if strings.HasSuffix(symbol, "-USD") || strings.HasSuffix(symbol, "-USDT") {
		return AssetCrypto
	}
	return AssetStock
}

// SignalKind records how a signal was produced.
type SignalKind string

const (
	KindScheduled SignalKind = "scheduled"
	KindOnDemand  SignalKind = "on-demand"
	KindCombined  SignalKind = "combined"
)

// RiskLevel labels the uncertainty of a fused signal.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Signal is an immutable record of one fusion decision. Outcome fields are
// filled later by the accuracy evaluator and never touched otherwise.
type Signal struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	Kind       SignalKind `json:"signal_type"`
	Direction  Direction  `json:"direction"`
	Strength   float64    `json:"strength"`   // [-1, +1]
	Confidence float64    `json:"confidence"` // [0, 1]

	TechnicalScore *float64 `json:"technical_score,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	MLScore        *float64 `json:"ml_score,omitempty"`
	MacroScore     *float64 `json:"macro_score,omitempty"`
	MacroRegime    string   `json:"macro_regime,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	OutcomeReturn5d  *float64   `json:"outcome_return_5d,omitempty"`
	OutcomeReturn10d *float64   `json:"outcome_return_10d,omitempty"`
	OutcomeCorrect   *bool      `json:"outcome_correct,omitempty"`
	OutcomeCheckedAt *time.Time `json:"outcome_checked_at,omitempty"`
}

// Holding is a portfolio position (one row per symbol).
type Holding struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_type"`
	Quantity   float64    `json:"quantity"`
	AvgCost    float64    `json:"avg_cost"`
	EntryDate  time.Time  `json:"entry_date"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	Sector     string     `json:"sector,omitempty"`
}

// Transaction is one row in the append-only portfolio action log.
type Transaction struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Action     Direction `json:"action"` // BUY or SELL
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Note       string    `json:"note,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// PositionStatus is the lifecycle state of a paper position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// PaperPosition is the state of one virtual trade. While open,
// HighestPrice is the running max of every tick observed since entry and
// TrailingStop equals HighestPrice * (1 - trailing%).
type PaperPosition struct {
	ID           int64          `json:"id"`
	Symbol       string         `json:"symbol"`
	EntryDate    time.Time      `json:"entry_date"`
	EntryPrice   float64        `json:"entry_price"`
	Quantity     float64        `json:"quantity"`
	StopLoss     *float64       `json:"stop_loss,omitempty"`
	TrailingStop *float64       `json:"trailing_stop,omitempty"`
	HighestPrice float64        `json:"highest_price"`
	Status       PositionStatus `json:"status"`
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
	ClosePrice   *float64       `json:"close_price,omitempty"`
	RealizedPnL  float64        `json:"realized_pnl"`
}

// TradeAction is the action recorded in the paper trade log.
type TradeAction string

const (
	TradeBuy  TradeAction = "BUY"
	TradeSell TradeAction = "SELL"
	TradeStop TradeAction = "STOP"
)

// PaperTrade is one row in the paper engine's append-only execution log.
type PaperTrade struct {
	ID         int64       `json:"id"`
	Symbol     string      `json:"symbol"`
	Action     TradeAction `json:"action"`
	Price      float64     `json:"price"`
	Quantity   float64     `json:"quantity"`
	PnL        float64     `json:"pnl"`
	Reason     string      `json:"reason,omitempty"`
	ExecutedAt time.Time   `json:"executed_at"`
}

// AlertSeverity grades risk alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// RiskAlert is a persisted risk event surfaced to the operator.
type RiskAlert struct {
	ID           int64         `json:"id"`
	Type         string        `json:"alert_type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Symbol       string        `json:"symbol,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	Acknowledged bool          `json:"acknowledged"`
}

// BacktestResult is a persisted backtest run.
type BacktestResult struct {
	ID           string    `json:"id"` // uuid
	Name         string    `json:"name"`
	Config       string    `json:"config"` // JSON blob of the run parameters
	TotalReturn  float64   `json:"total_return"`
	AnnualReturn float64   `json:"annual_return"`
	Sharpe       float64   `json:"sharpe_ratio"`
	Sortino      float64   `json:"sortino_ratio"`
	Calmar       float64   `json:"calmar_ratio"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	VaR95        float64   `json:"var_95"`
	CVaR95       float64   `json:"cvar_95"`
	WinRate      float64   `json:"win_rate"`
	TotalTrades  int       `json:"total_trades"`
	EquityCurve  []float64 `json:"equity_curve"`
	CreatedAt    time.Time `json:"created_at"`
}

// Quote is a current price snapshot from a price source.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// NewsArticle is one headline from a news source.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SocialPost is one post from a social source; content is opaque text.
type SocialPost struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Subreddit string    `json:"subreddit,omitempty"`
	Created   time.Time `json:"created"`
}
