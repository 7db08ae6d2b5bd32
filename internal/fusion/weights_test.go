package fusion

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/signals"
)

func newTestLearner(t *testing.T) (*WeightLearner, *signals.Repository) {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "weights.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	repo := signals.NewRepository(db.Conn(), zerolog.Nop())
	learner := NewWeightLearner(repo, cache.New(db.Conn(), zerolog.Nop()), zerolog.Nop())
	return learner, repo
}

func scorePtr(v float64) *float64 { return &v }

// seedEvaluated writes n evaluated BUY signals where the technical score
// tracks correctness via techFor and sentiment and ML stay flat.
func seedEvaluated(t *testing.T, repo *signals.Repository, n int, techFor func(correct bool) float64) {
	t.Helper()
	base := time.Now().UTC().AddDate(0, 0, -30)
	for i := 0; i < n; i++ {
		correct := i%2 == 0
		sig := &domain.Signal{
			Symbol:         "AAPL",
			Kind:           domain.KindScheduled,
			Direction:      domain.DirectionBuy,
			Strength:       0.4,
			Confidence:     0.7,
			TechnicalScore: scorePtr(techFor(correct)),
			SentimentScore: scorePtr(0.1),
			MLScore:        scorePtr(0.1),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Save(sig))
		ret := 0.02
		if !correct {
			ret = -0.02
		}
		require.NoError(t, repo.RecordOutcome(sig.ID, &ret, nil, &correct))
	}
}

func TestWeightsTooFewSamplesReturnsPriors(t *testing.T) {
	learner, repo := newTestLearner(t)
	seedEvaluated(t, repo, 10, func(bool) float64 { return 0.5 })

	got := learner.Weights(testWeights)
	assert.Equal(t, testWeights, got)
}

func TestWeightsRewardPredictiveFactor(t *testing.T) {
	learner, repo := newTestLearner(t)
	seedEvaluated(t, repo, 40, func(correct bool) float64 {
		if correct {
			return 0.5
		}
		return -0.5
	})

	got := learner.Weights(testWeights)

	// Technical correlates perfectly, the flat factors floor at zero.
	// Blended: 0.5*1 + 0.5*0.315 over a renormalising total of 1.05.
	assert.InDelta(t, 0.6575/1.05, got.Technical, 1e-6)
	assert.InDelta(t, 0.1125/1.05, got.Sentiment, 1e-6)
	assert.InDelta(t, 0.18/1.05, got.ML, 1e-6)
	assert.InDelta(t, 0.10/1.05, got.Macro, 1e-6)

	sum := got.Technical + got.Sentiment + got.ML + got.Macro
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, got.Technical, testWeights.Technical)

	// Cached: more history does not change the answer inside the TTL.
	seedEvaluated(t, repo, 10, func(bool) float64 { return 0.3 })
	again := learner.Weights(testWeights)
	assert.Equal(t, got, again)
}

func TestWeightsAntiCorrelatedFactorFallsBackToPriors(t *testing.T) {
	learner, repo := newTestLearner(t)
	seedEvaluated(t, repo, 40, func(correct bool) float64 {
		if correct {
			return -0.5
		}
		return 0.5
	})

	got := learner.Weights(testWeights)
	assert.Equal(t, testWeights, got)
}
