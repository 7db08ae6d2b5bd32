package clients

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
)

// stubSource returns a synthetic daily series covering the requested
// window and counts the calls it receives.
type stubSource struct {
	fetches int
}

func (s *stubSource) Fetch(_ context.Context, _ string, days int) (domain.Series, error) {
	s.fetches++
	end := time.Now().UTC().Truncate(24 * time.Hour)
	series := make(domain.Series, 0, days)
	for i := 0; i < days; i++ {
		cl := 100.0 + float64(i)
		series = append(series, domain.Candle{
			Date: end.AddDate(0, 0, i-days+1), Open: cl, High: cl + 1, Low: cl - 1, Close: cl, Volume: 1000,
		})
	}
	return series, nil
}

func (s *stubSource) Quote(_ context.Context, symbol string) (*domain.Quote, error) {
	return &domain.Quote{Symbol: symbol, Price: 100}, nil
}

func newPriceTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "prices.db"),
		Profile: database.ProfileCache,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return cache.New(db.Conn(), zerolog.Nop())
}

func TestHistoryCachesFetchedSeries(t *testing.T) {
	source := &stubSource{}
	p := NewPriceProvider(source, nil, newPriceTestCache(t),
		NewRateLimiter(100, 1), NewRateLimiter(100, 1), zerolog.Nop())

	first, err := p.History(context.Background(), "AAPL", domain.AssetStock, 30)
	require.NoError(t, err)
	require.Len(t, first, 30)

	// A second call inside the TTL is served from the cache.
	second, err := p.History(context.Background(), "AAPL", domain.AssetStock, 30)
	require.NoError(t, err)
	assert.Len(t, second, 30)
	assert.Equal(t, 1, source.fetches)
}

func TestHistoryNoSourceIsNoData(t *testing.T) {
	p := NewPriceProvider(nil, nil, newPriceTestCache(t),
		NewRateLimiter(100, 1), NewRateLimiter(100, 1), zerolog.Nop())

	_, err := p.History(context.Background(), "AAPL", domain.AssetStock, 30)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestPerSourceRateLimiters(t *testing.T) {
	stocks := &stubSource{}
	crypto := &stubSource{}
	p := NewPriceProvider(stocks, crypto, newPriceTestCache(t),
		NewRateLimiter(1, 3600), NewRateLimiter(1, 3600), zerolog.Nop())

	_, err := p.History(context.Background(), "AAPL", domain.AssetStock, 10)
	require.NoError(t, err)

	// The stock bucket is drained; a second stock fetch cannot get a
	// token before its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.History(ctx, "MSFT", domain.AssetStock, 10)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// The crypto bucket is independent and still serves immediately.
	got, err := p.History(context.Background(), "BTC-USD", domain.AssetCrypto, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, 1, crypto.fetches)
	assert.Equal(t, 1, stocks.fetches)
}
