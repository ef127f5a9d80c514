package resolve

// Confidence constants. The single-source cap and the auto-resolve threshold
// are deliberately the same number: no single non-authoritative signal can
// clear the threshold on its own, so an unreviewed action always rests on
// either the canonical roster, a prior human confirmation, or independent
// corroboration.
const (
	// SingleSourceCap is the ceiling on confidence producible by any one
	// non-authoritative signal (fuzzy similarity or generative inference).
	SingleSourceCap = 0.85

	// AutoResolveThreshold is the confidence at or above which a result
	// does not require human review.
	AutoResolveThreshold = 0.85

	// LearnedConfidence is the fixed confidence of a learned-mapping hit.
	// Below 1.0 because a prior confirmation can go stale, yet far above
	// anything a single automated signal may produce.
	LearnedConfidence = 0.95

	// CorroborationBoost is the additive increment per independent
	// verification source that confirms a match.
	CorroborationBoost = 0.05
)

// capSingleSource limits a raw score from one evidentiary channel to the
// single-source cap.
func capSingleSource(raw float64) float64 {
	if raw > SingleSourceCap {
		return SingleSourceCap
	}
	if raw < 0 {
		return 0
	}
	return raw
}

// boost raises a base confidence by a fixed increment per corroborating
// source, capped at 1.0. Absence of corroboration is "no information", never
// a penalty: boost(c, 0) == c.
func boost(base float64, corroboratingSources int) float64 {
	if corroboratingSources < 0 {
		corroboratingSources = 0
	}
	boosted := base + CorroborationBoost*float64(corroboratingSources)
	if boosted > 1.0 {
		return 1.0
	}
	return boosted
}
