package settings

import (
	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/domain"
)

// Setting keys for tunable domain parameters.
const (
	KeySignalWeights   = "signal_weights"
	KeyBaseThresholds  = "base_thresholds"
	KeyWatchlistStocks = "watchlist_stocks"
	KeyWatchlistCrypto = "watchlist_crypto"
)

// Weights returns the configured prior factor weights, falling back to the
// code defaults when unset.
func (r *Repository) Weights() domain.Weights {
	weights := config.DefaultWeights
	if ok, err := r.GetJSON(KeySignalWeights, &weights); err != nil || !ok {
		return config.DefaultWeights
	}
	total := weights.Technical + weights.Sentiment + weights.ML + weights.Macro
	if total <= 0 {
		return config.DefaultWeights
	}
	// Normalise so overrides need not sum exactly to 1
	weights.Technical /= total
	weights.Sentiment /= total
	weights.ML /= total
	weights.Macro /= total
	return weights
}

// Thresholds returns the configured base entry thresholds.
func (r *Repository) Thresholds() domain.Thresholds {
	thresholds := config.DefaultThresholds
	if ok, err := r.GetJSON(KeyBaseThresholds, &thresholds); err != nil || !ok {
		return config.DefaultThresholds
	}
	return thresholds
}

// WatchlistStocks returns the equity watchlist.
func (r *Repository) WatchlistStocks() []string {
	var list []string
	if ok, err := r.GetJSON(KeyWatchlistStocks, &list); err != nil || !ok || len(list) == 0 {
		return config.DefaultWatchlistStocks
	}
	return list
}

// WatchlistCrypto returns the crypto watchlist.
func (r *Repository) WatchlistCrypto() []string {
	var list []string
	if ok, err := r.GetJSON(KeyWatchlistCrypto, &list); err != nil || !ok || len(list) == 0 {
		return config.DefaultWatchlistCrypto
	}
	return list
}
