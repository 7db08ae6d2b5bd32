package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixtrade/helix/internal/clients"
)

func TestScoreAnalystNoRatings(t *testing.T) {
	sig := ScoreAnalyst(clients.AnalystRatings{})
	assert.Zero(t, sig.Score)
	assert.Equal(t, "N/A", sig.Label)
	assert.Zero(t, sig.TotalRatings)
}

func TestScoreAnalystStrongConsensus(t *testing.T) {
	sig := ScoreAnalyst(clients.AnalystRatings{StrongBuy: 10})
	assert.Equal(t, 1.0, sig.Score)
	assert.Equal(t, "Strong Buy", sig.Label)
	assert.Equal(t, 10, sig.TotalRatings)
	assert.InDelta(t, 0.60, sig.Confidence, 1e-9)

	sig = ScoreAnalyst(clients.AnalystRatings{StrongSell: 8})
	assert.Equal(t, -1.0, sig.Score)
	assert.Equal(t, "Strong Sell", sig.Label)
}

func TestScoreAnalystMomentumBonus(t *testing.T) {
	base := ScoreAnalyst(clients.AnalystRatings{Buy: 5, Hold: 5})
	upgraded := ScoreAnalyst(clients.AnalystRatings{Buy: 5, Hold: 5, NetChanges: 3})
	assert.InDelta(t, base.Score+0.15, upgraded.Score, 1e-9)

	// Bonus is capped at +/-0.20
	capped := ScoreAnalyst(clients.AnalystRatings{Buy: 5, Hold: 5, NetChanges: 10})
	assert.InDelta(t, base.Score+0.20, capped.Score, 1e-9)
}

func TestScoreAnalystConfidenceCap(t *testing.T) {
	sig := ScoreAnalyst(clients.AnalystRatings{Hold: 50})
	assert.Equal(t, 0.80, sig.Confidence)
}
