package analysis

import (
	"fmt"

	"github.com/helixtrade/helix/internal/domain"
)

// === EARNINGS PROXIMITY ===

// EarningsProximity maps days-until-earnings to a confidence multiplier.
// Trading into earnings is a binary event: the closer it is, the less a
// technical setup is worth. Negative daysUntil means no known date.
func EarningsProximity(daysUntil int) domain.EarningsFilter {
	if daysUntil < 0 || daysUntil > 14 {
		return domain.EarningsFilter{Multiplier: 1.0, DaysUntil: daysUntil}
	}
	switch {
	case daysUntil == 0:
		return domain.EarningsFilter{Multiplier: 0.30, DaysUntil: 0, EarningsToday: true}
	case daysUntil <= 3:
		return domain.EarningsFilter{Multiplier: 0.50, DaysUntil: daysUntil}
	case daysUntil <= 7:
		return domain.EarningsFilter{Multiplier: 0.75, DaysUntil: daysUntil}
	default:
		return domain.EarningsFilter{Multiplier: 0.90, DaysUntil: daysUntil}
	}
}

// EarningsWarning renders the human-readable caution for an active filter.
func EarningsWarning(f domain.EarningsFilter) string {
	switch {
	case f.EarningsToday:
		return "Earnings today, signal unreliable, HOLD recommended"
	case f.Multiplier >= 1.0:
		return ""
	case f.Multiplier == 0.50:
		return fmt.Sprintf("Earnings in %d day(s), confidence reduced 50%%", f.DaysUntil)
	case f.Multiplier == 0.75:
		return fmt.Sprintf("Earnings in %d day(s), confidence reduced 25%%", f.DaysUntil)
	default:
		return fmt.Sprintf("Earnings in %d day(s), minor caution", f.DaysUntil)
	}
}
