package scraper

import (
	"math"
	"strings"
)

// QualityScore computes the 0-10 heuristic ranking signal for a listing.
// Factors: rating (0-5 contribution), review volume (log-scaled, capped
// at 3), and a coarse brand signal. Deterministic, no side effects.
func QualityScore(rating float64, reviewCount int, brand string) float64 {
	// Rating re-expressed as a 0-5 contribution.
	ratingScore := (rating / 5) * 5

	// log10(0) is -Inf, guard before taking the log.
	reviewScore := 0.0
	if reviewCount > 0 {
		reviewScore = math.Min(math.Log10(float64(reviewCount))*0.8, 3)
	}

	brandScore := 1.0
	if strings.Contains(strings.ToLower(brand), "premium") {
		brandScore = 2.0
	}

	score := math.Min(ratingScore+reviewScore+brandScore, 10)
	if score < 0 {
		score = 0
	}
	return score
}
