package analysis

import (
	"fmt"
	"math"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === PATTERN RECOGNITION ===

// Classic chart formation detection over the last patternLookback closes.
// Individual scores are bounded, the composite is the clipped sum and the
// confidence grows with the number of formations found.

const (
	patternLookback = 120
	minPatternBars  = 40
)

// PatternResult is the composite output of one scan.
type PatternResult struct {
	Score      float64
	Confidence float64
	Matches    []domain.PatternMatch
}

// DetectPatterns scans a daily series for classic chart formations.
func DetectPatterns(series domain.Series) PatternResult {
	closes := series.Closes()
	if len(closes) < minPatternBars {
		return PatternResult{}
	}
	if len(closes) > patternLookback {
		closes = closes[len(closes)-patternLookback:]
	}

	order := len(closes) / 25
	if order < 3 {
		order = 3
	}
	peaks := dedupeExtrema(localPeaks(closes, order), closes, order, true)
	troughs := dedupeExtrema(localTroughs(closes, order), closes, order, false)

	var found []domain.PatternMatch
	detectors := []func() *domain.PatternMatch{
		func() *domain.PatternMatch { return doubleTop(closes, peaks) },
		func() *domain.PatternMatch { return doubleBottom(closes, troughs) },
		func() *domain.PatternMatch { return headAndShoulders(closes, peaks) },
		func() *domain.PatternMatch { return invHeadAndShoulders(closes, troughs) },
		func() *domain.PatternMatch { return bullFlag(closes) },
		func() *domain.PatternMatch { return bearFlag(closes) },
		func() *domain.PatternMatch { return consolidationBreakout(closes) },
	}
	for _, detect := range detectors {
		if m := detect(); m != nil {
			found = append(found, *m)
		}
	}
	if len(found) == 0 {
		return PatternResult{}
	}

	total := 0.0
	for _, m := range found {
		total += m.Score
	}
	return PatternResult{
		Score:      formulas.Clamp(total, -1, 1),
		Confidence: math.Min(1.0, 0.30+0.15*float64(len(found))),
		Matches:    found,
	}
}

// === EXTREMA ===

// localPeaks returns indices of local maxima. A bar counts when it equals
// the window maximum, is not below either neighbour, and beats at least one
// neighbour strictly (flat plateaus would otherwise spray peaks).
func localPeaks(arr []float64, order int) []int {
	var peaks []int
	n := len(arr)
	for i := order; i < n-order; i++ {
		lo := i - order
		if lo < 0 {
			lo = 0
		}
		hi := i + order + 1
		if arr[i] < maxOf(arr[lo:hi]) {
			continue
		}
		leftOK := arr[i] >= arr[i-1]
		rightOK := arr[i] >= arr[i+1]
		strict := arr[i] > arr[i-1] || arr[i] > arr[i+1]
		if leftOK && rightOK && strict {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

func localTroughs(arr []float64, order int) []int {
	var troughs []int
	n := len(arr)
	for i := order; i < n-order; i++ {
		lo := i - order
		if lo < 0 {
			lo = 0
		}
		hi := i + order + 1
		if arr[i] > minOf(arr[lo:hi]) {
			continue
		}
		leftOK := arr[i] <= arr[i-1]
		rightOK := arr[i] <= arr[i+1]
		strict := arr[i] < arr[i-1] || arr[i] < arr[i+1]
		if leftOK && rightOK && strict {
			troughs = append(troughs, i)
		}
	}
	return troughs
}

// dedupeExtrema merges extrema within `order` bars of each other, keeping
// the highest (keepMax) or lowest per cluster. Flat-top candles otherwise
// register twice.
func dedupeExtrema(indices []int, arr []float64, order int, keepMax bool) []int {
	if len(indices) == 0 {
		return nil
	}
	var result []int
	cluster := []int{indices[0]}
	flush := func() {
		best := cluster[0]
		for _, idx := range cluster[1:] {
			if (keepMax && arr[idx] > arr[best]) || (!keepMax && arr[idx] < arr[best]) {
				best = idx
			}
		}
		result = append(result, best)
	}
	for _, idx := range indices[1:] {
		if idx-cluster[len(cluster)-1] <= order {
			cluster = append(cluster, idx)
		} else {
			flush()
			cluster = []int{idx}
		}
	}
	flush()
	return result
}

// === DETECTORS ===

func doubleTop(prices []float64, peaks []int) *domain.PatternMatch {
	const tol = 0.03
	if len(peaks) < 2 {
		return nil
	}
	p1, p2 := peaks[len(peaks)-2], peaks[len(peaks)-1]
	h1, h2 := prices[p1], prices[p2]
	if h1 <= 0 || h2 <= 0 {
		return nil
	}
	if math.Abs(h1-h2)/math.Max(h1, h2) > tol {
		return nil
	}
	valley := minOf(prices[p1 : p2+1])
	depth := (math.Min(h1, h2) - valley) / math.Min(h1, h2)
	if depth < 0.03 {
		return nil
	}
	// Price must be declining from the second peak
	if len(prices) > p2+2 && prices[len(prices)-1] >= h2*0.99 {
		return nil
	}
	return &domain.PatternMatch{
		Name:     "Double Top",
		Bullish:  false,
		Score:    -0.20 - math.Min(0.10, depth*0.5),
		BarIndex: p2,
		Detail:   fmt.Sprintf("peaks %.2f/%.2f, depth %.1f%%", h1, h2, depth*100),
	}
}

func doubleBottom(prices []float64, troughs []int) *domain.PatternMatch {
	const tol = 0.03
	if len(troughs) < 2 {
		return nil
	}
	t1, t2 := troughs[len(troughs)-2], troughs[len(troughs)-1]
	lo1, lo2 := prices[t1], prices[t2]
	if lo1 <= 0 || lo2 <= 0 {
		return nil
	}
	if math.Abs(lo1-lo2)/math.Max(lo1, lo2) > tol {
		return nil
	}
	peak := maxOf(prices[t1 : t2+1])
	rise := (peak - math.Max(lo1, lo2)) / math.Max(lo1, lo2)
	if rise < 0.03 {
		return nil
	}
	// Price must be rising after the second trough
	if len(prices) > t2+2 && prices[len(prices)-1] <= lo2*1.01 {
		return nil
	}
	return &domain.PatternMatch{
		Name:     "Double Bottom",
		Bullish:  true,
		Score:    0.20 + math.Min(0.10, rise*0.5),
		BarIndex: t2,
		Detail:   fmt.Sprintf("troughs %.2f/%.2f, rise %.1f%%", lo1, lo2, rise*100),
	}
}

func headAndShoulders(prices []float64, peaks []int) *domain.PatternMatch {
	const tol = 0.05
	if len(peaks) < 3 {
		return nil
	}
	ls, hd, rs := peaks[len(peaks)-3], peaks[len(peaks)-2], peaks[len(peaks)-1]
	hLS, hHD, hRS := prices[ls], prices[hd], prices[rs]
	if hHD <= 0 {
		return nil
	}
	if !(hHD > hLS && hHD > hRS) {
		return nil
	}
	if math.Abs(hLS-hRS)/math.Max(hLS, hRS) > tol {
		return nil
	}
	neckline := (minOf(prices[ls:hd+1]) + minOf(prices[hd:rs+1])) / 2
	// Price near or below the neckline confirms
	if prices[len(prices)-1] > neckline*1.03 {
		return nil
	}
	depth := (hHD - neckline) / hHD
	return &domain.PatternMatch{
		Name:     "Head & Shoulders",
		Bullish:  false,
		Score:    -0.25 - math.Min(0.10, depth*0.3),
		BarIndex: rs,
		Detail:   fmt.Sprintf("head %.2f, neckline %.2f", hHD, neckline),
	}
}

func invHeadAndShoulders(prices []float64, troughs []int) *domain.PatternMatch {
	const tol = 0.05
	if len(troughs) < 3 {
		return nil
	}
	ls, hd, rs := troughs[len(troughs)-3], troughs[len(troughs)-2], troughs[len(troughs)-1]
	loLS, loHD, loRS := prices[ls], prices[hd], prices[rs]
	if loHD <= 0 {
		return nil
	}
	if !(loHD < loLS && loHD < loRS) {
		return nil
	}
	if math.Abs(loLS-loRS)/math.Max(loLS, loRS) > tol {
		return nil
	}
	neckline := (maxOf(prices[ls:hd+1]) + maxOf(prices[hd:rs+1])) / 2
	// Price near or above the neckline confirms
	if prices[len(prices)-1] < neckline*0.97 {
		return nil
	}
	rise := (neckline - loHD) / neckline
	return &domain.PatternMatch{
		Name:     "Inv Head & Shoulders",
		Bullish:  true,
		Score:    0.25 + math.Min(0.10, rise*0.3),
		BarIndex: rs,
		Detail:   fmt.Sprintf("head %.2f, neckline %.2f", loHD, neckline),
	}
}

func bullFlag(prices []float64) *domain.PatternMatch {
	const (
		window   = 60
		flagBars = 15
	)
	if len(prices) < window+flagBars {
		return nil
	}
	pole := prices[len(prices)-window-flagBars : len(prices)-flagBars]
	flag := prices[len(prices)-flagBars:]
	poleReturn := pole[len(pole)-1]/pole[0] - 1
	if poleReturn < 0.08 {
		return nil
	}
	flagRange := (maxOf(flag) - minOf(flag)) / meanOf(flag)
	if flagRange > 0.06 {
		return nil
	}
	// Last close must be pressing the flag high
	if flag[len(flag)-1] < maxOf(flag)*0.98 {
		return nil
	}
	return &domain.PatternMatch{
		Name:     "Bull Flag",
		Bullish:  true,
		Score:    0.15,
		BarIndex: len(prices) - 1,
		Detail:   fmt.Sprintf("pole %.1f%%, flag range %.1f%%", poleReturn*100, flagRange*100),
	}
}

func bearFlag(prices []float64) *domain.PatternMatch {
	const (
		window   = 60
		flagBars = 15
	)
	if len(prices) < window+flagBars {
		return nil
	}
	pole := prices[len(prices)-window-flagBars : len(prices)-flagBars]
	flag := prices[len(prices)-flagBars:]
	poleReturn := pole[len(pole)-1]/pole[0] - 1
	if poleReturn > -0.08 {
		return nil
	}
	flagRange := (maxOf(flag) - minOf(flag)) / meanOf(flag)
	if flagRange > 0.06 {
		return nil
	}
	if flag[len(flag)-1] > minOf(flag)*1.02 {
		return nil
	}
	return &domain.PatternMatch{
		Name:     "Bear Flag",
		Bullish:  false,
		Score:    -0.15,
		BarIndex: len(prices) - 1,
		Detail:   fmt.Sprintf("pole %.1f%%, flag range %.1f%%", poleReturn*100, flagRange*100),
	}
}

func consolidationBreakout(prices []float64) *domain.PatternMatch {
	const (
		consolBars   = 20
		breakoutBars = 5
	)
	if len(prices) < consolBars+breakoutBars {
		return nil
	}
	consol := prices[len(prices)-consolBars-breakoutBars : len(prices)-breakoutBars]
	last := prices[len(prices)-1]
	rng := (maxOf(consol) - minOf(consol)) / meanOf(consol)
	if rng > 0.05 {
		return nil
	}
	consolHigh := maxOf(consol)
	consolLow := minOf(consol)
	switch {
	case last > consolHigh*1.02:
		move := (last - consolHigh) / consolHigh
		return &domain.PatternMatch{
			Name:     "Consolidation Breakout Up",
			Bullish:  true,
			Score:    math.Min(0.20, 0.10+move*2),
			BarIndex: len(prices) - 1,
			Detail:   fmt.Sprintf("range %.1f%%, breakout %.1f%%", rng*100, move*100),
		}
	case last < consolLow*0.98:
		move := (consolLow - last) / consolLow
		return &domain.PatternMatch{
			Name:     "Consolidation Breakout Dn",
			Bullish:  false,
			Score:    -math.Min(0.20, 0.10+move*2),
			BarIndex: len(prices) - 1,
			Detail:   fmt.Sprintf("range %.1f%%, breakdown %.1f%%", rng*100, move*100),
		}
	}
	return nil
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
