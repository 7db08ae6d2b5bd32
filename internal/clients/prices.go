package clients

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/domain"
)

// PriceProvider is the cache-first price access layer. Every component
// that needs history (scan pipeline, accuracy tracker, backtest data prep)
// goes through one shared instance so repeated fetches inside the TTL hit
// the cache.
type PriceProvider struct {
	stocks        PriceSource
	crypto        PriceSource
	cache         *cache.Cache
	stockLimiter  *RateLimiter
	cryptoLimiter *RateLimiter
	log           zerolog.Logger
}

// NewPriceProvider creates the shared price access layer. Each vendor
// gets its own token bucket so a burst against one never starves the
// other.
func NewPriceProvider(stocks, crypto PriceSource, c *cache.Cache,
	stockLimiter, cryptoLimiter *RateLimiter, log zerolog.Logger) *PriceProvider {
	return &PriceProvider{
		stocks:        stocks,
		crypto:        crypto,
		cache:         c,
		stockLimiter:  stockLimiter,
		cryptoLimiter: cryptoLimiter,
		log:           log.With().Str("component", "prices").Logger(),
	}
}

func (p *PriceProvider) source(assetClass domain.AssetClass) PriceSource {
	if assetClass == domain.AssetCrypto {
		return p.crypto
	}
	return p.stocks
}

func (p *PriceProvider) limiter(assetClass domain.AssetClass) *RateLimiter {
	if assetClass == domain.AssetCrypto {
		return p.cryptoLimiter
	}
	return p.stockLimiter
}

// History returns up to days of daily bars, cache first. On a vendor
// failure the stale cache is not consulted for prices (the dated rows are
// already the fallback); the caller receives ErrNoData.
func (p *PriceProvider) History(ctx context.Context, symbol string, assetClass domain.AssetClass, days int) (domain.Series, error) {
	cached, err := p.cache.FreshPrices(symbol, assetClass, days)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
	}
	if len(cached) > 0 {
		return cached, nil
	}

	if p.source(assetClass) == nil {
		return nil, domain.ErrNoData
	}

	if err := p.limiter(assetClass).Acquire(ctx); err != nil {
		return nil, err
	}

	var series domain.Series
	err = WithRetry(ctx, p.log, "price:"+symbol, func(ctx context.Context) error {
		fetched, fetchErr := p.source(assetClass).Fetch(ctx, symbol, days)
		if fetchErr != nil {
			return fetchErr
		}
		if len(fetched) == 0 {
			return domain.ErrNoData
		}
		series = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", symbol, err)
	}

	if err := p.cache.StorePrices(symbol, assetClass, series); err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache write failed")
	}
	return series, nil
}

// Quote returns the current price snapshot, falling back to the last
// cached close when the vendor call fails.
func (p *PriceProvider) Quote(ctx context.Context, symbol string, assetClass domain.AssetClass) (*domain.Quote, error) {
	if p.source(assetClass) == nil {
		cached, err := p.cache.FreshPrices(symbol, assetClass, 7)
		if err == nil && len(cached) > 0 {
			last := cached[len(cached)-1]
			return &domain.Quote{Symbol: symbol, Price: last.Close}, nil
		}
		return nil, domain.ErrNoData
	}
	if err := p.limiter(assetClass).Acquire(ctx); err != nil {
		return nil, err
	}

	var quote *domain.Quote
	err := WithRetry(ctx, p.log, "quote:"+symbol, func(ctx context.Context) error {
		q, fetchErr := p.source(assetClass).Quote(ctx, symbol)
		if fetchErr != nil {
			return fetchErr
		}
		if q == nil || q.Price <= 0 {
			return domain.ErrNoData
		}
		quote = q
		return nil
	})
	if err == nil {
		return quote, nil
	}

	cached, cacheErr := p.cache.FreshPrices(symbol, assetClass, 7)
	if cacheErr == nil && len(cached) > 0 {
		last := cached[len(cached)-1]
		return &domain.Quote{Symbol: symbol, Price: last.Close}, nil
	}
	return nil, fmt.Errorf("quote for %s: %w", symbol, err)
}
