package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPatternsTooShort(t *testing.T) {
	res := DetectPatterns(seriesFromCloses(trendingCloses(30, 100, 0.5)))
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Matches)
}

func TestDetectPatternsConsolidationBreakoutUp(t *testing.T) {
	closes := make([]float64, 0, 60)
	for i := 0; i < 55; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 101, 101.5, 102, 102.5, 103)

	res := DetectPatterns(seriesFromCloses(closes))
	require.Len(t, res.Matches, 1)

	m := res.Matches[0]
	assert.Equal(t, "Consolidation Breakout Up", m.Name)
	assert.True(t, m.Bullish)
	// move above the consolidation high is 3%, score 0.10 + 2*0.03
	assert.InDelta(t, 0.16, m.Score, 1e-9)
	assert.InDelta(t, 0.16, res.Score, 1e-9)
	assert.InDelta(t, 0.45, res.Confidence, 1e-9)
}

func TestDetectPatternsDoubleTop(t *testing.T) {
	var closes []float64
	for i := 0; i <= 20; i++ {
		closes = append(closes, 90+float64(i))
	}
	for i := 21; i <= 30; i++ {
		closes = append(closes, 110-float64(i-20))
	}
	for i := 31; i <= 40; i++ {
		closes = append(closes, 100+float64(i-30))
	}
	for i := 41; i <= 59; i++ {
		closes = append(closes, 110-float64(i-40)*0.35)
	}

	res := DetectPatterns(seriesFromCloses(closes))
	require.NotEmpty(t, res.Matches)

	var top *string
	for i := range res.Matches {
		if res.Matches[i].Name == "Double Top" {
			top = &res.Matches[i].Name
			assert.False(t, res.Matches[i].Bullish)
			// depth (110-100)/110, score -0.20 - depth/2
			assert.InDelta(t, -0.24545, res.Matches[i].Score, 1e-4)
		}
	}
	require.NotNil(t, top)
	assert.Less(t, res.Score, 0.0)
}

func TestLocalExtremaDedupe(t *testing.T) {
	// Flat plateau must not register as a peak.
	flat := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	assert.Empty(t, localPeaks(flat, 3))
	assert.Empty(t, localTroughs(flat, 3))

	arr := []float64{1, 2, 3, 4, 5, 4, 3, 2, 1, 2, 3}
	peaks := dedupeExtrema(localPeaks(arr, 3), arr, 3, true)
	require.Len(t, peaks, 1)
	assert.Equal(t, 4, peaks[0])
}
