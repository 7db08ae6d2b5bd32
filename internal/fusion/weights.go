package fusion

import (
	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/signals"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === ADAPTIVE WEIGHTS ===

// WeightLearner derives factor weights from how each factor's historical
// score correlated with realised signal correctness. With too little
// history it returns the configured priors unchanged. Results are cached
// for an hour; the full-table scan is not free.
type WeightLearner struct {
	signals *signals.Repository
	cache   *cache.Cache
	log     zerolog.Logger
}

func NewWeightLearner(repo *signals.Repository, c *cache.Cache, log zerolog.Logger) *WeightLearner {
	return &WeightLearner{
		signals: repo,
		cache:   c,
		log:     log.With().Str("component", "weights").Logger(),
	}
}

// Weights returns the blended adaptive weights, cached for the class TTL.
func (l *WeightLearner) Weights(priors domain.Weights) domain.Weights {
	var out domain.Weights
	err := l.cache.GetOrFill(cache.ClassWeights, "global", &out, func() (interface{}, error) {
		return l.compute(priors), nil
	})
	if err != nil {
		l.log.Warn().Err(err).Msg("Adaptive weight cache failed, using priors")
		return priors
	}
	return out
}

func (l *WeightLearner) compute(priors domain.Weights) domain.Weights {
	evaluated, err := l.signals.EvaluatedDirectional()
	if err != nil {
		l.log.Warn().Err(err).Msg("Evaluated signal query failed, using priors")
		return priors
	}
	if len(evaluated) < config.AdaptiveMinSamples {
		l.log.Debug().Int("samples", len(evaluated)).Msg("Too few evaluated signals, using priors")
		return priors
	}

	n := len(evaluated)
	tech := make([]float64, n)
	sent := make([]float64, n)
	ml := make([]float64, n)
	correct := make([]float64, n)
	for i, s := range evaluated {
		// Sign-adjust by direction so an aligned prediction is positive
		// for BUYs and SELLs alike.
		sign := 1.0
		if s.Direction == domain.DirectionSell {
			sign = -1.0
		}
		tech[i] = derefOrZero(s.TechnicalScore) * sign
		sent[i] = derefOrZero(s.SentimentScore) * sign
		ml[i] = derefOrZero(s.MLScore) * sign
		if s.OutcomeCorrect != nil && *s.OutcomeCorrect {
			correct[i] = 1
		}
	}

	techCorr := flooredCorrelation(tech, correct)
	sentCorr := flooredCorrelation(sent, correct)
	mlCorr := flooredCorrelation(ml, correct)
	totalCorr := techCorr + sentCorr + mlCorr
	if totalCorr < 1e-9 {
		l.log.Debug().Msg("No positive factor correlations, using priors")
		return priors
	}

	// 50/50 shrinkage toward the priors so weights move gradually and
	// never collapse to zero. Macro stays at its prior: it is a global
	// regime signal, per-symbol correlation is ill-defined.
	blended := domain.Weights{
		Technical: config.AdaptivePriorBlend*(techCorr/totalCorr) + (1-config.AdaptivePriorBlend)*priors.Technical,
		Sentiment: config.AdaptivePriorBlend*(sentCorr/totalCorr) + (1-config.AdaptivePriorBlend)*priors.Sentiment,
		ML:        config.AdaptivePriorBlend*(mlCorr/totalCorr) + (1-config.AdaptivePriorBlend)*priors.ML,
		Macro:     priors.Macro,
	}
	total := blended.Technical + blended.Sentiment + blended.ML + blended.Macro
	result := domain.Weights{
		Technical: blended.Technical / total,
		Sentiment: blended.Sentiment / total,
		ML:        blended.ML / total,
		Macro:     blended.Macro / total,
	}

	l.log.Info().
		Int("samples", n).
		Float64("technical", result.Technical).
		Float64("sentiment", result.Sentiment).
		Float64("ml", result.ML).
		Float64("macro", result.Macro).
		Msg("Adaptive weights recomputed")
	return result
}

// flooredCorrelation is the Pearson correlation floored at zero: factors
// are only rewarded for predicting correctness, never punished.
func flooredCorrelation(x, y []float64) float64 {
	if formulas.StdDev(x) < 1e-9 {
		return 0
	}
	r := formulas.Correlation(x, y)
	if r < 0 {
		return 0
	}
	return r
}

func derefOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
