// Package clients defines the contracts of every external collaborator
// (price vendors, news and social feeds, the NLP model, the ML scorers,
// the notifier) plus the shared rate limiting and retry helpers. The core
// only ever talks to these interfaces; concrete vendor clients live
// outside this repository.
package clients

import (
	"context"
	"time"

	"github.com/helixtrade/helix/internal/domain"
)

// PriceSource delivers OHLCV history and live quotes for one asset class.
// Implementations must deliver naive-UTC trading-day timestamps. Errors
// yield an empty series.
type PriceSource interface {
	// Fetch returns up to `days` of daily bars, oldest first.
	Fetch(ctx context.Context, symbol string, days int) (domain.Series, error)

	// Quote returns the current price snapshot.
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// NewsSource delivers headlines for a symbol; deduplicated downstream by
// title.
type NewsSource interface {
	Fetch(ctx context.Context, symbol string) ([]domain.NewsArticle, error)
}

// SocialSource delivers social posts and short messages for a symbol.
type SocialSource interface {
	FetchPosts(ctx context.Context, symbol string, assetClass domain.AssetClass) ([]domain.SocialPost, error)
	FetchShortMessages(ctx context.Context, symbol string) ([]string, error)
}

// SentimentLabel is the NLP model's classification of one text.
type SentimentLabel struct {
	Label string  // positive, negative, neutral
	Score float64 // [0, 1]
}

// SentimentModel scores opaque text. Mapping downstream: positive maps to
// +score, negative to -score, neutral to 0.
type SentimentModel interface {
	Analyze(ctx context.Context, texts []string) ([]SentimentLabel, error)
}

// MLPrediction is the opaque learner output.
type MLPrediction struct {
	SignalScore float64   // [-1, +1]
	Confidence  float64   // [0, 1]
	ModelType   string    // "xgb" or "lstm"
	TrainedAt   time.Time // model persistence timestamp
}

// MLScorer trains on and predicts from an OHLCV series. Models are
// persisted per symbol; a model is stale when trained-at is older than
// the configured retrain interval.
type MLScorer interface {
	Train(ctx context.Context, symbol string, history domain.Series) error
	Predict(ctx context.Context, symbol string, history domain.Series) (*MLPrediction, error)
	TrainedAt(symbol string) (time.Time, bool)
}

// Notifier sends outbound messages. Best-effort: failures are logged by
// implementations and never propagate.
type Notifier interface {
	Send(ctx context.Context, destination, message string)
}

// MarketDataSource delivers the auxiliary quotes the global signals need
// (VIX, treasury yields, DXY, sector ETFs, fear/greed index).
type MarketDataSource interface {
	// Gauge returns the latest value of a named market gauge.
	Gauge(ctx context.Context, name string) (float64, error)

	// GaugeHistory returns daily closes for a named gauge.
	GaugeHistory(ctx context.Context, name string, days int) ([]float64, error)
}

// FundamentalsSource delivers the equity-only per-symbol datasets.
type FundamentalsSource interface {
	// EarningsInDays returns calendar days until the next earnings report
	// (negative when unknown).
	EarningsInDays(ctx context.Context, symbol string) (int, error)

	// AnalystRatings returns the current consensus rating counts and the
	// net of recent upgrades minus downgrades.
	AnalystRatings(ctx context.Context, symbol string) (*AnalystRatings, error)

	// ShortInterest returns the short positioning snapshot for a symbol.
	ShortInterest(ctx context.Context, symbol string) (*ShortInterestData, error)

	// OptionsSnapshot returns put/call volume and IV skew for a symbol.
	OptionsSnapshot(ctx context.Context, symbol string) (*OptionsSnapshot, error)

	// Sector returns the sector name of a symbol.
	Sector(ctx context.Context, symbol string) (string, error)
}

// ShortInterestData is the raw short positioning snapshot.
type ShortInterestData struct {
	ShortFloat  float64 // fraction of float sold short
	DaysToCover float64
}

// AnalystRatings is the raw consensus snapshot.
type AnalystRatings struct {
	StrongBuy  int
	Buy        int
	Hold       int
	Sell       int
	StrongSell int
	NetChanges int // upgrades minus downgrades over the lookback window
}

// OptionsSnapshot is the raw options positioning snapshot.
type OptionsSnapshot struct {
	PutVolume  float64
	CallVolume float64
	PutIV      float64
	CallIV     float64
}
