package backtest

import (
	"context"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/fusion"
)

// TechnicalScore is the default scoring function: the indicator-based
// scorer alone.
func TechnicalScore(_ string, history domain.Series) (float64, float64) {
	sig := analysis.TechnicalSignal(history)
	return sig.Score, sig.Confidence
}

// AIScore composes the technical scorer and the ML model through the
// fusion engine. Live-only factors (sentiment, macro, breadth and the
// rest) are not reconstructable historically, so sentiment enters as a
// neutral placeholder and the optional factors are simply absent. Model
// retraining inside the run only ever sees the history it is handed.
func AIScore(ctx context.Context, ml *analysis.MLService, weights domain.Weights, base domain.Thresholds) ScoreFunc {
	return func(symbol string, history domain.Series) (float64, float64) {
		in := domain.FusionInput{
			Symbol:    symbol,
			Technical: analysis.TechnicalSignal(history),
			Sentiment: domain.SentimentSignal{Score: 0, Confidence: 0.5},
			ML:        ml.Signal(ctx, symbol, history),
		}
		sig, _ := fusion.Fuse(in, weights, base)
		return sig.Strength, sig.Confidence
	}
}
