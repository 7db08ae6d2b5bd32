package analysis

import (
	"math"
	"strings"

	"github.com/helixtrade/helix/internal/domain"
)

// === SECTOR ROTATION ===

// SectorETFs maps sector names to their SPDR proxy tickers.
var SectorETFs = map[string]string{
	"Technology":      "XLK",
	"Financials":      "XLF",
	"Energy":          "XLE",
	"Healthcare":      "XLV",
	"Industrials":     "XLI",
	"ConsumerDiscr":   "XLY",
	"ConsumerStaples": "XLP",
	"Utilities":       "XLU",
	"RealEstate":      "XLRE",
	"Materials":       "XLB",
	"Communication":   "XLC",
}

// Relative-strength window weights (trading days).
var sectorWindows = []struct {
	days   int
	weight float64
}{
	{21, 0.20},
	{63, 0.50},
	{126, 0.30},
}

// SectorOverview holds the relative-strength score per sector.
type SectorOverview map[string]domain.SectorSignal

// ScoreSectors computes each sector's log relative return vs the benchmark
// over three windows, z-scores the composites across sectors and maps them
// through tanh to [-1, 1].
func ScoreSectors(sectorCloses map[string][]float64, benchmarkCloses []float64) SectorOverview {
	if len(benchmarkCloses) == 0 || len(sectorCloses) == 0 {
		return nil
	}

	raw := map[string]float64{}
	for name, closes := range sectorCloses {
		composite := 0.0
		for _, w := range sectorWindows {
			composite += w.weight * relReturn(closes, benchmarkCloses, w.days)
		}
		raw[name] = composite
	}

	var vals []float64
	for _, v := range raw {
		vals = append(vals, v)
	}
	mean := meanOf(vals)
	std := 0.0
	for _, v := range vals {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(vals)))

	overview := SectorOverview{}
	for name, v := range raw {
		z := (v - mean) / (std + 1e-9)
		score := math.Tanh(z)
		overview[name] = domain.SectorSignal{
			Score:  score,
			Status: sectorStatus(score),
			Sector: name,
		}
	}
	return overview
}

// ForSymbol resolves a symbol's sector signal from the overview, fuzzy
// matching vendor sector names against the overview keys.
func (o SectorOverview) ForSymbol(sectorName string) *domain.SectorSignal {
	if sectorName == "" || len(o) == 0 {
		return nil
	}
	want := strings.ToLower(strings.ReplaceAll(sectorName, " ", ""))
	for key, sig := range o {
		have := strings.ToLower(key)
		if strings.Contains(want, have) || strings.Contains(have, want) {
			out := sig
			out.Sector = sectorName
			return &out
		}
	}
	return nil
}

// relReturn is the log relative return vs the benchmark over the window.
func relReturn(closes, benchmark []float64, window int) float64 {
	if len(closes) < window+1 || len(benchmark) < window+1 {
		return 0
	}
	sec := math.Log(closes[len(closes)-1] / closes[len(closes)-window])
	bench := math.Log(benchmark[len(benchmark)-1] / benchmark[len(benchmark)-window])
	return sec - bench
}

func sectorStatus(score float64) domain.SectorStatus {
	switch {
	case score > 0.15:
		return domain.SectorLeading
	case score < -0.15:
		return domain.SectorLagging
	default:
		return domain.SectorInline
	}
}
