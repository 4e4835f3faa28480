package analysis

// ScoreQuality collapses a signal set into one confidence-weighted-by-strength
// score and its ordinal rating. An empty set rates poor: the absence of
// signals is not as damning as a set of weak ones.
func ScoreQuality(signals []EntrySignal) (float64, Quality) {
	if len(signals) == 0 {
		return 0, QualityPoor
	}

	var weighted, totalWeight float64
	for _, s := range signals {
		w := s.Strength.Weight()
		weighted += s.Confidence * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, QualityPoor
	}

	score := weighted / totalWeight
	switch {
	case score >= 0.85:
		return score, QualityExcellent
	case score >= 0.75:
		return score, QualityGood
	case score >= 0.60:
		return score, QualityAverage
	case score >= 0.40:
		return score, QualityPoor
	default:
		return score, QualityVeryPoor
	}
}
