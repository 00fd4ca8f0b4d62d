// Package postprocess turns raw classifier scores into calibrated
// probabilities and threshold-derived flags. Everything here is a pure
// function: no I/O, no state, no side effects.
package postprocess

import (
	"math"

	"github.com/arko007/chexray-api/internal/conditions"
)

// Sigmoid maps a raw score to a probability strictly inside (0, 1). It is
// exactly 0.5 at zero and antisymmetric around it: Sigmoid(-x) == 1 - Sigmoid(x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Probabilities applies the sigmoid to every raw score, producing a fully
// populated probability set in vocabulary order.
func Probabilities(raw []float32) (*conditions.Scores, error) {
	probs := make([]float64, len(raw))
	for i, v := range raw {
		probs[i] = Sigmoid(float64(v))
	}
	return conditions.NewScores(probs)
}

// Flags compares each probability against its configured threshold.
// Conditions without a configured threshold are never flagged. Thresholds
// only derive booleans; the probabilities themselves are never altered.
func Flags(scores *conditions.Scores, thresholds map[string]float64) map[string]bool {
	flags := make(map[string]bool, len(thresholds))
	for name, cutoff := range thresholds {
		p, ok := scores.Get(name)
		if !ok {
			continue
		}
		flags[name] = p >= cutoff
	}
	return flags
}
