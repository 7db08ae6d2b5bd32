package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/domain"
)

func TestScoreBreadthEmpty(t *testing.T) {
	sig := ScoreBreadth(nil)
	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, domain.BreadthNeutral, sig.Regime)
}

func TestScoreBreadthHealthy(t *testing.T) {
	members := make([]BreadthMember, len(BreadthBasket))
	for i, sym := range BreadthBasket {
		members[i] = BreadthMember{Symbol: sym, Above200MA: true, DailyChange: 1.5}
	}
	sig := ScoreBreadth(members)
	assert.InDelta(t, 1.0, sig.Score, 1e-9)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
	assert.Equal(t, domain.BreadthHealthy, sig.Regime)
	assert.InDelta(t, 1.0, sig.PctAbove200, 1e-9)
	assert.InDelta(t, 1.0, sig.AdvanceDecline, 1e-9)
}

func TestScoreBreadthPoor(t *testing.T) {
	members := make([]BreadthMember, 10)
	for i := range members {
		members[i] = BreadthMember{Symbol: "X", Above200MA: false, DailyChange: -2}
	}
	sig := ScoreBreadth(members)
	assert.InDelta(t, -1.0, sig.Score, 1e-9)
	assert.Equal(t, domain.BreadthPoor, sig.Regime)
	// Confidence scales with basket coverage
	assert.InDelta(t, 10.0/float64(len(BreadthBasket)), sig.Confidence, 1e-9)
}

func TestMemberFromSeries(t *testing.T) {
	_, ok := MemberFromSeries("AAPL", seriesFromCloses([]float64{100}))
	assert.False(t, ok)

	m, ok := MemberFromSeries("AAPL", seriesFromCloses(trendingCloses(250, 100, 0.5)))
	require.True(t, ok)
	assert.True(t, m.Above200MA)
	assert.Greater(t, m.DailyChange, 0.0)

	m, ok = MemberFromSeries("XYZ", seriesFromCloses(trendingCloses(250, 300, -0.8)))
	require.True(t, ok)
	assert.False(t, m.Above200MA)
	assert.Less(t, m.DailyChange, 0.0)
}
