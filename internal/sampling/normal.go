package sampling

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// maxRejections bounds the rejection loop of a truncated draw. Past it the
// draw is clamped, which only happens when the bounds sit far in a tail.
const maxRejections = 64

// NormalVar is a normal random variable, optionally truncated to [Min, Max].
type NormalVar struct {
	mean    float64
	stdDev  float64
	min     float64
	max     float64
	bounded bool
}

// NewNormalVar returns an unbounded normal variable.
func NewNormalVar(mean, variance float64) (*NormalVar, error) {
	if variance < 0 || math.IsNaN(variance) {
		return nil, fmt.Errorf("variance must be non-negative, got %v", variance)
	}
	return &NormalVar{mean: mean, stdDev: math.Sqrt(variance)}, nil
}

// NewBoundedNormalVar returns a normal variable truncated to [min, max].
func NewBoundedNormalVar(mean, variance, min, max float64) (*NormalVar, error) {
	v, err := NewNormalVar(mean, variance)
	if err != nil {
		return nil, err
	}
	if min > max {
		return nil, fmt.Errorf("min (%v) must not exceed max (%v)", min, max)
	}
	v.min, v.max, v.bounded = min, max, true
	return v, nil
}

// Float draws one value.
func (v *NormalVar) Float(r *rand.Rand) float64 {
	if !v.bounded {
		return v.mean + v.stdDev*r.NormFloat64()
	}
	for range maxRejections {
		x := v.mean + v.stdDev*r.NormFloat64()
		if x >= v.min && x <= v.max {
			return x
		}
	}
	return math.Min(math.Max(v.mean, v.min), v.max)
}

// Int draws one value rounded to the nearest integer.
func (v *NormalVar) Int(r *rand.Rand) int {
	return int(math.Round(v.Float(r)))
}
