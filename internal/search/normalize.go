package search

// MinMax rescales scores to [0, 1] as (s - min) / (max - min). When all
// scores are equal the result is all zeros. The input is not modified.
func MinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}

	span := hi - lo
	if span == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}

// Classify buckets a fused score: above 0.7 is high, above 0.4 is medium,
// anything else is low.
func Classify(score float64) Relevance {
	switch {
	case score > HighThreshold:
		return RelevanceHigh
	case score > MediumThreshold:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}
