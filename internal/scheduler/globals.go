package scheduler

import (
	"context"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/domain"
)

// Market gauge names served by the MarketDataSource.
const (
	GaugeVIX             = "vix"
	GaugeYieldSpread     = "yield_spread"
	GaugeDXY             = "dxy"
	GaugeFearGreed       = "fear_greed"
	GaugeCryptoFearGreed = "crypto_fear_greed"
)

// sectorBenchmark is the broad-market proxy the sector scores compare to.
const sectorBenchmark = "SPY"

// globalFactors are the once-per-scan market-wide signals. Nil members
// mean the underlying data was unavailable; fusion skips them.
type globalFactors struct {
	macro           *domain.MacroSignal
	breadth         *domain.BreadthSignal
	intermarket     *domain.IntermarketSignal
	fearGreed       *domain.FearGreedSignal
	cryptoFearGreed *domain.FearGreedSignal
	sectors         analysis.SectorOverview
}

// globalSignals fetches the market-wide factors once per scan, each under
// its own cache TTL. Every fetch is best-effort.
func (p *Pipeline) globalSignals(ctx context.Context) globalFactors {
	var g globalFactors
	if p.deps.Market == nil {
		return g
	}

	var macro domain.MacroSignal
	if err := p.deps.Cache.GetOrFill(cache.ClassMacro, "global", &macro, func() (interface{}, error) {
		return p.fetchMacro(ctx), nil
	}); err == nil && macro.Confidence > 0 {
		g.macro = &macro
	} else if err != nil {
		p.log.Warn().Err(err).Msg("Macro signal unavailable")
	}

	var breadth domain.BreadthSignal
	if err := p.deps.Cache.GetOrFill(cache.ClassBreadth, "global", &breadth, func() (interface{}, error) {
		return p.fetchBreadth(ctx), nil
	}); err == nil && breadth.Confidence > 0 {
		g.breadth = &breadth
	} else if err != nil {
		p.log.Warn().Err(err).Msg("Breadth signal unavailable")
	}

	var inter domain.IntermarketSignal
	if err := p.deps.Cache.GetOrFill(cache.ClassIntermarket, "global", &inter, func() (interface{}, error) {
		return p.fetchIntermarket(ctx), nil
	}); err == nil && inter.Confidence > 0 {
		g.intermarket = &inter
	} else if err != nil {
		p.log.Warn().Err(err).Msg("Intermarket signal unavailable")
	}

	g.fearGreed = p.fetchFearGreed(ctx, "stocks", GaugeFearGreed)
	g.cryptoFearGreed = p.fetchFearGreed(ctx, "crypto", GaugeCryptoFearGreed)
	g.sectors = p.fetchSectors(ctx)
	return g
}

// fetchMacro reads VIX (level and 20d change), the yield spread and the
// 20d dollar index change. Missing gauges lower the composite confidence.
func (p *Pipeline) fetchMacro(ctx context.Context) domain.MacroSignal {
	var in analysis.MacroInputs

	if vix, err := p.deps.Market.Gauge(ctx, GaugeVIX); err == nil && vix > 0 {
		in.VIXLevel = &vix
		if hist, err := p.deps.Market.GaugeHistory(ctx, GaugeVIX, 21); err == nil && len(hist) >= 21 && hist[0] > 0 {
			change := (hist[len(hist)-1] - hist[0]) / hist[0] * 100
			in.VIXChange20d = &change
		}
	}
	if spread, err := p.deps.Market.Gauge(ctx, GaugeYieldSpread); err == nil {
		in.YieldSpread = &spread
	}
	if hist, err := p.deps.Market.GaugeHistory(ctx, GaugeDXY, 21); err == nil && len(hist) >= 21 && hist[0] > 0 {
		change := (hist[len(hist)-1] - hist[0]) / hist[0] * 100
		in.DXYChange20d = &change
	}

	return analysis.ScoreMacro(in)
}

// fetchBreadth samples the fixed basket; each miss lowers confidence.
func (p *Pipeline) fetchBreadth(ctx context.Context) domain.BreadthSignal {
	var members []analysis.BreadthMember
	for _, symbol := range analysis.BreadthBasket {
		if ctx.Err() != nil {
			break
		}
		series, err := p.deps.Prices.History(ctx, symbol, domain.AssetStock, 250)
		if err != nil {
			continue
		}
		if m, ok := analysis.MemberFromSeries(symbol, series); ok {
			members = append(members, m)
		}
	}
	return analysis.ScoreBreadth(members)
}

// fetchIntermarket collects 20-day returns of the cross-asset gauges.
func (p *Pipeline) fetchIntermarket(ctx context.Context) domain.IntermarketSignal {
	returns := map[string]float64{}
	for _, asset := range analysis.IntermarketAssets {
		hist, err := p.deps.Market.GaugeHistory(ctx, asset, 21)
		if err != nil || len(hist) < 21 || hist[0] <= 0 {
			continue
		}
		returns[asset] = (hist[len(hist)-1] - hist[0]) / hist[0] * 100
	}
	return analysis.ScoreIntermarket(returns)
}

func (p *Pipeline) fetchFearGreed(ctx context.Context, key, gauge string) *domain.FearGreedSignal {
	var out domain.FearGreedSignal
	err := p.deps.Cache.GetOrFill(cache.ClassFearGreed, key, &out, func() (interface{}, error) {
		value, err := p.deps.Market.Gauge(ctx, gauge)
		if err != nil {
			return nil, err
		}
		return analysis.ScoreFearGreed(value), nil
	})
	if err != nil {
		p.log.Debug().Err(err).Str("gauge", gauge).Msg("Fear/greed unavailable")
		return nil
	}
	return &out
}

// fetchSectors builds the sector rotation overview from the SPDR proxies.
func (p *Pipeline) fetchSectors(ctx context.Context) analysis.SectorOverview {
	var out analysis.SectorOverview
	err := p.deps.Cache.GetOrFill(cache.ClassSector, "overview", &out, func() (interface{}, error) {
		benchmark, err := p.deps.Prices.History(ctx, sectorBenchmark, domain.AssetStock, 150)
		if err != nil {
			return nil, err
		}
		closes := map[string][]float64{}
		for name, etf := range analysis.SectorETFs {
			series, err := p.deps.Prices.History(ctx, etf, domain.AssetStock, 150)
			if err != nil {
				continue
			}
			closes[name] = series.Closes()
		}
		return analysis.ScoreSectors(closes, benchmark.Closes()), nil
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("Sector overview unavailable")
		return nil
	}
	return out
}
