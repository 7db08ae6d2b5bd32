package cache

import "time"

// Cache classes. Every externally fetched payload is cached under one of
// these; the class picks the TTL.
const (
	ClassPrice         = "price"
	ClassNews          = "news"
	ClassSentiment     = "sentiment"
	ClassMLPrediction  = "ml_prediction"
	ClassMacro         = "macro"
	ClassBreadth       = "breadth"
	ClassIntermarket   = "intermarket"
	ClassFearGreed     = "fear_greed"
	ClassAnalyst       = "analyst"
	ClassEarnings      = "earnings"
	ClassOptions       = "options"
	ClassShortInterest = "short_interest"
	ClassSector        = "sector"
	ClassWeights       = "adaptive_weights"
)

// TTL constants per data class.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLPrice         = 15 * time.Minute  // OHLCV history refresh window
	TTLNews          = 30 * time.Minute  // Headlines
	TTLSentiment     = 60 * time.Minute  // Scored sentiment
	TTLMLPrediction  = 120 * time.Minute // Model outputs
	TTLMacro         = 4 * time.Hour     // Global regime gauges (shared per scan)
	TTLBreadth       = 4 * time.Hour     // Market breadth basket
	TTLIntermarket   = 4 * time.Hour     // Cross-asset regime
	TTLFearGreed     = 4 * time.Hour     // Fear/greed index
	TTLAnalyst       = 24 * time.Hour    // Analyst consensus
	TTLEarnings      = 12 * time.Hour    // Earnings calendar proximity
	TTLOptions       = 2 * time.Hour     // Options positioning
	TTLShortInterest = 24 * time.Hour    // Short interest snapshots
	TTLSector        = 4 * time.Hour     // Sector rotation overview
	TTLWeights       = time.Hour         // Adaptive factor weights
)

// TTLFor returns the TTL of a class (0 for unknown classes).
func TTLFor(class string) time.Duration {
	switch class {
	case ClassPrice:
		return TTLPrice
	case ClassNews:
		return TTLNews
	case ClassSentiment:
		return TTLSentiment
	case ClassMLPrediction:
		return TTLMLPrediction
	case ClassMacro:
		return TTLMacro
	case ClassBreadth:
		return TTLBreadth
	case ClassIntermarket:
		return TTLIntermarket
	case ClassFearGreed:
		return TTLFearGreed
	case ClassAnalyst:
		return TTLAnalyst
	case ClassEarnings:
		return TTLEarnings
	case ClassOptions:
		return TTLOptions
	case ClassShortInterest:
		return TTLShortInterest
	case ClassSector:
		return TTLSector
	case ClassWeights:
		return TTLWeights
	default:
		return 0
	}
}
