package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixtrade/helix/internal/clients"
)

func TestLabelScore(t *testing.T) {
	assert.Equal(t, 0.9, LabelScore(clients.SentimentLabel{Label: "positive", Score: 0.9}))
	assert.Equal(t, -0.8, LabelScore(clients.SentimentLabel{Label: "negative", Score: 0.8}))
	assert.Equal(t, 0.0, LabelScore(clients.SentimentLabel{Label: "neutral", Score: 0.95}))
}

func TestScoreSentimentNoSamples(t *testing.T) {
	sig := ScoreSentiment(nil, nil)
	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Confidence)
	assert.Zero(t, sig.Samples)
}

func TestScoreSentimentNewsOnly(t *testing.T) {
	sig := ScoreSentiment([]float64{0.6, 0.8}, nil)
	assert.InDelta(t, 0.7, sig.Score, 1e-9)
	assert.InDelta(t, 0.7, sig.NewsScore, 1e-9)
	assert.Zero(t, sig.SocialScore)
	assert.Equal(t, 2, sig.Samples)
}

func TestScoreSentimentBlend(t *testing.T) {
	// News weighs 60%, social 40%
	sig := ScoreSentiment([]float64{0.5}, []float64{-0.5})
	assert.InDelta(t, 0.6*0.5+0.4*(-0.5), sig.Score, 1e-9)
	assert.Equal(t, 2, sig.Samples)
}

func TestScoreSentimentConfidenceGrowsWithAgreement(t *testing.T) {
	agreeing := ScoreSentiment([]float64{0.5, 0.5, 0.5, 0.5}, nil)
	split := ScoreSentiment([]float64{0.9, -0.9, 0.9, -0.9}, nil)
	assert.Greater(t, agreeing.Confidence, split.Confidence)
	assert.LessOrEqual(t, agreeing.Confidence, 1.0)
}
