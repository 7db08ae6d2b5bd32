package domain

// Factor records carry score in [-1,+1] and confidence in [0,1] plus
// factor-specific metadata. Optional factors are passed as nil pointers;
// the fusion engine simply skips what it does not receive.

// MacroRegime is the global risk regime derived from VIX, yields and DXY.
type MacroRegime string

const (
	RegimeRiskOff      MacroRegime = "RISK_OFF"
	RegimeCautious     MacroRegime = "CAUTIOUS"
	RegimeNeutral      MacroRegime = "NEUTRAL"
	RegimeConstructive MacroRegime = "CONSTRUCTIVE"
	RegimeRiskOn       MacroRegime = "RISK_ON"
)

// BreadthRegime grades market participation.
type BreadthRegime string

const (
	BreadthHealthy BreadthRegime = "HEALTHY"
	BreadthNeutral BreadthRegime = "NEUTRAL"
	BreadthWeak    BreadthRegime = "WEAK"
	BreadthPoor    BreadthRegime = "POOR"
)

// SectorStatus grades a sector's relative strength versus the benchmark.
type SectorStatus string

const (
	SectorLeading SectorStatus = "LEADING"
	SectorInline  SectorStatus = "IN_LINE"
	SectorLagging SectorStatus = "LAGGING"
)

// TechnicalSignal is the indicator-based factor.
type TechnicalSignal struct {
	Score          float64            `json:"score"`
	Confidence     float64            `json:"confidence"`
	SubScores      map[string]float64 `json:"sub_scores,omitempty"`
	RelativeVolume float64            `json:"relative_volume,omitempty"`
	Patterns       []PatternMatch     `json:"patterns,omitempty"`
}

// PatternMatch is one detected chart pattern.
type PatternMatch struct {
	Name     string  `json:"name"`
	Bullish  bool    `json:"bullish"`
	Score    float64 `json:"score"`
	BarIndex int     `json:"bar_index"`
	Detail   string  `json:"detail,omitempty"`
}

// SentimentSignal aggregates news and social sentiment.
type SentimentSignal struct {
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	NewsScore   float64 `json:"news_score"`
	SocialScore float64 `json:"social_score"`
	Samples     int     `json:"samples"`
}

// MLSignal is the opaque learner's prediction.
type MLSignal struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	ModelType  string  `json:"model_type,omitempty"`
	Stale      bool    `json:"stale,omitempty"`
}

// MacroSignal is the global macro-economic gauge.
type MacroSignal struct {
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Regime     MacroRegime        `json:"regime"`
	VIX        *float64           `json:"vix,omitempty"`
	Components map[string]float64 `json:"components,omitempty"`
}

// BreadthSignal is the global market-participation gauge.
type BreadthSignal struct {
	Score          float64       `json:"score"`
	Confidence     float64       `json:"confidence"`
	Regime         BreadthRegime `json:"regime"`
	PctAbove200    float64       `json:"pct_above_200"`
	AdvanceDecline float64       `json:"advance_decline"`
}

// IntermarketSignal is the cross-asset regime gauge.
type IntermarketSignal struct {
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Regime     MacroRegime        `json:"regime"`
	Components map[string]float64 `json:"components,omitempty"`
}

// FearGreedSignal is the contrarian sentiment-index factor.
type FearGreedSignal struct {
	Score      float64 `json:"score"` // contrarian: fear maps positive
	Confidence float64 `json:"confidence"`
	Value      int     `json:"value"` // raw index 0-100
	Label      string  `json:"label"`
}

// MultiTimeframeSignal fuses several timeframe scores into one.
type MultiTimeframeSignal struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Alignment  float64 `json:"alignment"` // [0,1] fraction of agreeing timeframes
}

// EarningsFilter gates signals near an earnings report.
type EarningsFilter struct {
	Multiplier    float64 `json:"multiplier"` // confidence multiplier
	DaysUntil     int     `json:"days_until"`
	EarningsToday bool    `json:"earnings_today"`
}

// AnalystSignal summarises analyst consensus and recent rating changes.
type AnalystSignal struct {
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	Label        string  `json:"label"`
	TotalRatings int     `json:"total_ratings"`
}

// OptionsSignal reads positioning from put/call ratio and IV skew.
type OptionsSignal struct {
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	PutCallRatio float64 `json:"put_call_ratio"`
	IVSkew       float64 `json:"iv_skew"`
	TotalVolume  float64 `json:"total_volume"`
}

// ShortInterestSignal scores squeeze potential from short float and momentum.
type ShortInterestSignal struct {
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Squeeze     bool    `json:"squeeze"`
	ShortFloat  float64 `json:"short_float"`
	MomentumPct float64 `json:"momentum_pct"`
}

// SectorSignal grades the symbol's sector rotation status.
type SectorSignal struct {
	Score  float64      `json:"score"`
	Status SectorStatus `json:"status"`
	Sector string       `json:"sector"`
}

// FusionInput bundles every factor the combiner may receive for one symbol.
// Technical, Sentiment and ML are required; the rest are optional.
type FusionInput struct {
	Symbol     string
	AssetClass AssetClass
	Kind       SignalKind

	Technical TechnicalSignal
	Sentiment SentimentSignal
	ML        MLSignal

	Macro          *MacroSignal
	MultiTimeframe *MultiTimeframeSignal
	Earnings       *EarningsFilter
	Breadth        *BreadthSignal
	Analyst        *AnalystSignal
	Intermarket    *IntermarketSignal
	FearGreed      *FearGreedSignal
	Sector         *SectorSignal
	ShortInterest  *ShortInterestSignal
	Options        *OptionsSignal
}

// Thresholds are the BUY/SELL entry gates, before or after regime adjustment.
type Thresholds struct {
	Buy            float64 `json:"buy_threshold"`
	BuyConfidence  float64 `json:"buy_confidence_min"`
	Sell           float64 `json:"sell_threshold"`
	SellConfidence float64 `json:"sell_confidence_min"`
}

// Weights are the four factor weights, summing to 1.
type Weights struct {
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
	ML        float64 `json:"ml"`
	Macro     float64 `json:"macro"`
}

// FusionDiagnostics explains how a signal was produced.
type FusionDiagnostics struct {
	WeightsUsed         Weights            `json:"weights_used"`
	Adjustments         []string           `json:"adjustments"`
	BaseThresholds      Thresholds         `json:"base_thresholds"`
	EffectiveThresholds Thresholds         `json:"effective_thresholds"`
	FactorScores        map[string]float64 `json:"factor_scores"`
	RiskLevel           RiskLevel          `json:"risk_level"`
	EarningsWarning     string             `json:"earnings_warning,omitempty"`
}

// ActionPlan is a concrete, risk-gated trade specification. A blocked plan
// carries the human-readable reason; it is never masked as HOLD.
type ActionPlan struct {
	Symbol        string    `json:"symbol"`
	Action        Direction `json:"action"`
	Blocked       bool      `json:"blocked"`
	Reason        string    `json:"reason,omitempty"`
	Shares        float64   `json:"shares"`
	EntryPrice    float64   `json:"entry_price"`
	StopLoss      float64   `json:"stop_loss"`
	StopPct       float64   `json:"stop_pct"`
	TargetPrice   float64   `json:"target_price"`
	PositionValue float64   `json:"position_value"`
	DollarRisk    float64   `json:"dollar_risk"`
	Warnings      []string  `json:"warnings,omitempty"`
}
