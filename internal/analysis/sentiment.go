package analysis

import (
	"math"

	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === SENTIMENT ===

// News carries more signal than social chatter.
const (
	sentimentNewsWeight   = 0.60
	sentimentSocialWeight = 0.40
)

// LabelScore maps one NLP classification to a signed score.
func LabelScore(label clients.SentimentLabel) float64 {
	switch label.Label {
	case "positive":
		return label.Score
	case "negative":
		return -label.Score
	default:
		return 0
	}
}

// ScoreSentiment blends per-text news and social scores. Confidence grows
// with sample count and falls with disagreement across texts.
func ScoreSentiment(newsScores, socialScores []float64) domain.SentimentSignal {
	samples := len(newsScores) + len(socialScores)
	if samples == 0 {
		return domain.SentimentSignal{}
	}

	newsAvg := meanOrZero(newsScores)
	socialAvg := meanOrZero(socialScores)

	var score float64
	switch {
	case len(newsScores) > 0 && len(socialScores) > 0:
		score = sentimentNewsWeight*newsAvg + sentimentSocialWeight*socialAvg
	case len(newsScores) > 0:
		score = newsAvg
	default:
		score = socialAvg
	}

	all := make([]float64, 0, samples)
	all = append(all, newsScores...)
	all = append(all, socialScores...)
	std := formulas.StdDev(all)

	confidence := 0.3 +
		0.4*math.Min(1, float64(samples)/20.0) +
		0.3*math.Max(0, 1-std)

	return domain.SentimentSignal{
		Score:       formulas.Clamp(score, -1, 1),
		Confidence:  formulas.Clamp(confidence, 0, 1),
		NewsScore:   newsAvg,
		SocialScore: socialAvg,
		Samples:     samples,
	}
}

func meanOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return meanOf(xs)
}
