package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
}

func TestStdDev(t *testing.T) {
	assert.Zero(t, StdDev(nil))
	assert.Zero(t, StdDev([]float64{7}))
	assert.InDelta(t, math.Sqrt2, StdDev([]float64{2, 4}), 1e-12)
	assert.Zero(t, StdDev([]float64{5, 5, 5}))
}

func TestCorrelation(t *testing.T) {
	assert.Zero(t, Correlation([]float64{1, 2}, []float64{1}))
	assert.Zero(t, Correlation([]float64{1}, []float64{1}))

	assert.InDelta(t, 1.0, Correlation([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Correlation([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)

	// A constant series has no defined correlation.
	assert.Zero(t, Correlation([]float64{1, 2, 3}, []float64{4, 4, 4}))
}

func TestReturns(t *testing.T) {
	assert.Nil(t, Returns([]float64{100}))

	got := Returns([]float64{100, 110, 0, 50})
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)
	assert.Zero(t, got[2])
}

func TestAnnualizedVolatility(t *testing.T) {
	daily := []float64{0.01, -0.01, 0.01, -0.01}
	want := StdDev(daily) * math.Sqrt(TradingDaysPerYear)
	assert.InDelta(t, want, AnnualizedVolatility(daily), 1e-12)
	assert.Zero(t, AnnualizedVolatility(nil))
}

func TestQuantile(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	assert.Zero(t, Quantile(nil, 0.5))
	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 3.0, Quantile(values, 0.5))
	assert.Equal(t, 5.0, Quantile(values, 1))
	// Input is not mutated.
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, values)
}
