package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
)

// === ML SIGNAL ===

// MLService wraps the opaque learner, retraining a symbol's model when its
// persisted weights are older than the retrain interval. A failed predict
// degrades to a neutral signal rather than blocking the pipeline.
type MLService struct {
	scorer clients.MLScorer
	log    zerolog.Logger
}

func NewMLService(scorer clients.MLScorer, log zerolog.Logger) *MLService {
	return &MLService{
		scorer: scorer,
		log:    log.With().Str("component", "ml").Logger(),
	}
}

// Signal predicts for one symbol, training first when the model is missing
// or stale.
func (m *MLService) Signal(ctx context.Context, symbol string, history domain.Series) domain.MLSignal {
	if m == nil || m.scorer == nil {
		return domain.MLSignal{Stale: true}
	}

	trainedAt, exists := m.scorer.TrainedAt(symbol)
	stale := !exists || time.Since(trainedAt) > config.RetrainIntervalDays*24*time.Hour

	if stale {
		if err := m.scorer.Train(ctx, symbol, history); err != nil {
			if !errors.Is(err, domain.ErrNoData) {
				m.log.Warn().Err(err).Str("symbol", symbol).Msg("Model training failed")
			}
			// Predict with the old model if one exists
			if !exists {
				return domain.MLSignal{Stale: true}
			}
		} else {
			stale = false
		}
	}

	pred, err := m.scorer.Predict(ctx, symbol, history)
	if err != nil || pred == nil {
		if err != nil && !errors.Is(err, domain.ErrNoData) {
			m.log.Warn().Err(err).Str("symbol", symbol).Msg("Model prediction failed")
		}
		return domain.MLSignal{Stale: stale}
	}

	return domain.MLSignal{
		Score:      pred.SignalScore,
		Confidence: pred.Confidence,
		ModelType:  pred.ModelType,
		Stale:      stale,
	}
}
