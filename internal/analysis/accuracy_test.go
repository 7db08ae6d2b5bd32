package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/signals"
)

// risingSource serves the same rising 30-bar daily series for any symbol.
type risingSource struct {
	series domain.Series
}

func (s risingSource) Fetch(ctx context.Context, symbol string, days int) (domain.Series, error) {
	return s.series, nil
}

func (s risingSource) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	last := s.series[len(s.series)-1]
	return &domain.Quote{Symbol: symbol, Price: last.Close}, nil
}

func TestAccuracyTrackerRun(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "accuracy.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	repo := signals.NewRepository(db.Conn(), zerolog.Nop())

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var series domain.Series
	for i := 29; i >= 0; i-- {
		c := 100.0 + float64(29-i)
		series = append(series, domain.Candle{
			Date: today.AddDate(0, 0, -i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1e6,
		})
	}

	prices := clients.NewPriceProvider(
		risingSource{series: series}, nil,
		cache.New(db.Conn(), zerolog.Nop()),
		clients.NewRateLimiter(100, 1), clients.NewRateLimiter(100, 1),
		zerolog.Nop(),
	)

	createdAt := time.Now().UTC().AddDate(0, 0, -10)
	buy := &domain.Signal{
		Symbol: "AAPL", Kind: domain.KindScheduled,
		Direction: domain.DirectionBuy, Strength: 0.5, Confidence: 0.7,
		CreatedAt: createdAt,
	}
	sell := &domain.Signal{
		Symbol: "MSFT", Kind: domain.KindScheduled,
		Direction: domain.DirectionSell, Strength: -0.4, Confidence: 0.6,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Save(buy))
	require.NoError(t, repo.Save(sell))

	tracker := NewAccuracyTracker(repo, prices, zerolog.Nop())
	summary, err := tracker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Evaluated)
	// Prices rose, so the BUY verified and the SELL did not.
	assert.Equal(t, 1, summary.Correct)

	// Both outcomes were written, nothing is pending past the cutoff.
	pending, err := repo.Unchecked(time.Now().UTC().AddDate(0, 0, -5), 100)
	require.NoError(t, err)
	assert.Empty(t, pending)

	evaluated, err := repo.EvaluatedDirectional()
	require.NoError(t, err)
	require.Len(t, evaluated, 2)
	for _, s := range evaluated {
		require.NotNil(t, s.OutcomeReturn5d)
		assert.Greater(t, *s.OutcomeReturn5d, 0.0)
	}
}

func TestAccuracyTrackerSkipsFreshSignals(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "accuracy.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	repo := signals.NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Save(&domain.Signal{
		Symbol: "AAPL", Kind: domain.KindScheduled,
		Direction: domain.DirectionBuy, Strength: 0.5, Confidence: 0.7,
		CreatedAt: time.Now().UTC(),
	}))

	prices := clients.NewPriceProvider(nil, nil,
		cache.New(db.Conn(), zerolog.Nop()),
		clients.NewRateLimiter(100, 1), clients.NewRateLimiter(100, 1),
		zerolog.Nop(),
	)

	tracker := NewAccuracyTracker(repo, prices, zerolog.Nop())
	summary, err := tracker.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)
}
