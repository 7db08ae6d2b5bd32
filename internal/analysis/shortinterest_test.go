package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreShortInterestNone(t *testing.T) {
	sig := ScoreShortInterest(0, 0, 5)
	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Confidence)
	assert.False(t, sig.Squeeze)
}

func TestScoreShortInterestSqueeze(t *testing.T) {
	sig := ScoreShortInterest(0.25, 12, 5)
	assert.True(t, sig.Squeeze)
	// base 0.25 + momentum 0.06 + days-to-cover 0.05
	assert.InDelta(t, 0.36, sig.Score, 1e-9)
	assert.Equal(t, 0.25, sig.ShortFloat)
	assert.Equal(t, 5.0, sig.MomentumPct)
}

func TestScoreShortInterestBearConfirmation(t *testing.T) {
	sig := ScoreShortInterest(0.25, 0, -5)
	assert.False(t, sig.Squeeze)
	assert.Equal(t, -0.10, sig.Score)
}

func TestScoreShortInterestModerate(t *testing.T) {
	sig := ScoreShortInterest(0.15, 0, 0)
	assert.Equal(t, 0.05, sig.Score)
	assert.False(t, sig.Squeeze)
}

func TestMomentum5d(t *testing.T) {
	_, ok := Momentum5d(seriesFromCloses([]float64{100, 101, 102}))
	assert.False(t, ok)

	m, ok := Momentum5d(seriesFromCloses([]float64{100, 101, 102, 103, 104, 110}))
	require.True(t, ok)
	assert.InDelta(t, 10.0, m, 1e-9)
}
