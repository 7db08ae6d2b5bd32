package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassOfSymbol(t *testing.T) {
	cases := []struct {
		symbol string
		want   AssetClass
	}{
		{"AAPL", AssetStock},
		{"BRK.B", AssetStock},
		{"BTC/USDT", AssetCrypto},
		{"ETH/USD", AssetCrypto},
		{"BTC-USD", AssetCrypto},
		{"SOL-USDT", AssetCrypto},
		{"USD", AssetStock},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassOfSymbol(tc.symbol), tc.symbol)
	}
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func testSeries() Series {
	return Series{
		{Date: day(1), Open: 99, High: 101, Low: 98, Close: 100, Volume: 1000},
		{Date: day(2), Open: 100, High: 103, Low: 99, Close: 102, Volume: 1100},
		{Date: day(3), Open: 102, High: 105, Low: 101, Close: 104, Volume: 1200},
	}
}

func TestSeriesColumns(t *testing.T) {
	s := testSeries()
	assert.Equal(t, []float64{100, 102, 104}, s.Closes())
	assert.Equal(t, []float64{101, 103, 105}, s.Highs())
	assert.Equal(t, []float64{98, 99, 101}, s.Lows())
	assert.Equal(t, []float64{1000, 1100, 1200}, s.Volumes())
}

func TestSeriesLast(t *testing.T) {
	s := testSeries()
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 104.0, last.Close)

	_, ok = Series{}.Last()
	assert.False(t, ok)
}

func TestSeriesTail(t *testing.T) {
	s := testSeries()
	assert.Len(t, s.Tail(2), 2)
	assert.Equal(t, 102.0, s.Tail(2)[0].Close)
	assert.Len(t, s.Tail(10), 3)
	assert.Empty(t, s.Tail(0))
}

func TestSeriesUpto(t *testing.T) {
	s := testSeries()

	got := s.Upto(day(2))
	require.Len(t, got, 2)
	assert.Equal(t, 102.0, got[1].Close)

	// A date between bars includes everything before it.
	got = s.Upto(day(2).Add(12 * time.Hour))
	assert.Len(t, got, 2)

	assert.Len(t, s.Upto(day(30)), 3)
	assert.Nil(t, s.Upto(day(1).AddDate(0, -1, 0)))
}

func TestSeriesAt(t *testing.T) {
	s := testSeries()

	c, ok := s.At(day(2))
	require.True(t, ok)
	assert.Equal(t, 102.0, c.Close)

	_, ok = s.At(day(7))
	assert.False(t, ok)
	_, ok = Series{}.At(day(1))
	assert.False(t, ok)
}
