package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return New(db.Conn(), zerolog.Nop())
}

type payload struct {
	Score float64
	Label string
}

func TestStoreAndGetFresh(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store(ClassSentiment, "AAPL", payload{Score: 0.42, Label: "positive"}))

	var out payload
	hit, err := c.GetFresh(ClassSentiment, "AAPL", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Score: 0.42, Label: "positive"}, out)

	hit, err = c.GetFresh(ClassSentiment, "MSFT", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidClassRejected(t *testing.T) {
	c := newTestCache(t)
	assert.Error(t, c.Store("bogus", "k", 1))
	var out int
	_, err := c.GetFresh("bogus", "k", &out)
	assert.Error(t, err)
	assert.Error(t, c.Delete("bogus", "k"))
	assert.Error(t, c.Clear("bogus"))
}

func TestOverwriteSameKey(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store(ClassNews, "AAPL", []string{"old"}))
	require.NoError(t, c.Store(ClassNews, "AAPL", []string{"new"}))

	var out []string
	hit, err := c.GetFresh(ClassNews, "AAPL", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"new"}, out)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store(ClassMacro, "global", payload{Score: 1}))
	require.NoError(t, c.Delete(ClassMacro, "global"))
	require.NoError(t, c.Delete(ClassMacro, "global")) // idempotent

	var out payload
	hit, err := c.GetFresh(ClassMacro, "global", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestExpiredEntryIsMissButStaleReadable(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store(ClassPrice, "AAPL", payload{Score: 2}))

	expired := time.Now().UTC().Add(-time.Minute).Format(sqliteTime)
	_, err := c.db.Exec("UPDATE data_cache SET expires_at = ? WHERE class = ? AND key = ?",
		expired, ClassPrice, "AAPL")
	require.NoError(t, err)

	var out payload
	hit, err := c.GetFresh(ClassPrice, "AAPL", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.GetStale(ClassPrice, "AAPL", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2.0, out.Score)

	deleted, err := c.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	hit, err = c.GetStale(ClassPrice, "AAPL", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestClearByClass(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store(ClassNews, "AAPL", 1))
	require.NoError(t, c.Store(ClassSentiment, "AAPL", 2))

	require.NoError(t, c.Clear(ClassNews))

	var out int
	hit, _ := c.GetFresh(ClassNews, "AAPL", &out)
	assert.False(t, hit)
	hit, _ = c.GetFresh(ClassSentiment, "AAPL", &out)
	assert.True(t, hit)

	require.NoError(t, c.Clear(""))
	hit, _ = c.GetFresh(ClassSentiment, "AAPL", &out)
	assert.False(t, hit)
}

func TestGetOrFillFillsOnce(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	fill := func() (interface{}, error) {
		calls++
		return payload{Score: 0.9, Label: "filled"}, nil
	}

	var out payload
	require.NoError(t, c.GetOrFill(ClassBreadth, "global", &out, fill))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "filled", out.Label)

	var again payload
	require.NoError(t, c.GetOrFill(ClassBreadth, "global", &again, fill))
	assert.Equal(t, 1, calls)
	assert.Equal(t, out, again)
}

func TestGetOrFillPropagatesFillError(t *testing.T) {
	c := newTestCache(t)
	wantErr := errors.New("vendor down")
	var out payload
	err := c.GetOrFill(ClassFearGreed, "global", &out, func() (interface{}, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Nothing was cached, a later fill still runs.
	calls := 0
	require.NoError(t, c.GetOrFill(ClassFearGreed, "global", &out, func() (interface{}, error) {
		calls++
		return payload{Score: 1}, nil
	}))
	assert.Equal(t, 1, calls)
}

func TestTTLFor(t *testing.T) {
	assert.Equal(t, TTLPrice, TTLFor(ClassPrice))
	assert.Equal(t, TTLWeights, TTLFor(ClassWeights))
	assert.Zero(t, TTLFor("bogus"))
}

// recentSeries builds n daily bars ending today with rising closes.
func recentSeries(n int) domain.Series {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	series := make(domain.Series, 0, n)
	for i := n - 1; i >= 0; i-- {
		cl := 100.0 + float64(n-1-i)
		series = append(series, domain.Candle{
			Date: end.AddDate(0, 0, -i), Open: cl - 1, High: cl + 1, Low: cl - 2, Close: cl, Volume: 1000,
		})
	}
	return series
}

func TestPriceCacheRoundtrip(t *testing.T) {
	c := newTestCache(t)

	series := recentSeries(10)
	require.NoError(t, c.StorePrices("AAPL", domain.AssetStock, series))

	got, err := c.FreshPrices("AAPL", domain.AssetStock, 14)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, series[0].Close, got[0].Close)
	assert.Equal(t, series[9].Close, got[9].Close)
	assert.True(t, got[0].Date.Equal(series[0].Date))

	// Re-storing overlapping rows does not duplicate them.
	require.NoError(t, c.StorePrices("AAPL", domain.AssetStock, series[5:]))
	got, err = c.FreshPrices("AAPL", domain.AssetStock, 14)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	// Wrong asset class and unknown symbol miss.
	got, err = c.FreshPrices("AAPL", domain.AssetCrypto, 14)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = c.FreshPrices("MSFT", domain.AssetStock, 14)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFreshPricesStaleFetchIsMiss(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.StorePrices("AAPL", domain.AssetStock, recentSeries(40)))

	old := time.Now().UTC().Add(-TTLPrice - time.Minute).Format(sqliteTime)
	_, err := c.db.Exec("UPDATE price_cache SET fetched_at = ?", old)
	require.NoError(t, err)

	got, err := c.FreshPrices("AAPL", domain.AssetStock, 30)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFreshPricesShortCoverageIsMiss(t *testing.T) {
	c := newTestCache(t)

	// A narrow earlier fetch left only 25 recent rows behind. They are
	// fresh by fetch time but must not satisfy a request for a year of
	// history, or downstream indicators would run on a truncated series.
	require.NoError(t, c.StorePrices("AAPL", domain.AssetStock, recentSeries(25)))

	got, err := c.FreshPrices("AAPL", domain.AssetStock, 400)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The same rows do satisfy a window they actually cover.
	got, err = c.FreshPrices("AAPL", domain.AssetStock, 20)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
