package domain

import (
	"errors"
	"fmt"
)

type RoundingMethod string

const (
	RoundNearest RoundingMethod = "nearest"
	RoundUp      RoundingMethod = "up"
	RoundDown    RoundingMethod = "down"
)

// Billing increments supported by the firm, in minutes.
// 6 minutes = 0.1h, the common legal-billing unit.
var ValidIncrements = []int64{6, 15, 30, 60}

// RoundingPolicy snaps raw elapsed time to a billing increment.
// Durations are handled as integer seconds in and integer minutes out so
// repeated aggregation never accumulates floating-point error.
type RoundingPolicy struct {
	IncrementMinutes int64
	Method           RoundingMethod
}

// NewRoundingPolicy creates a policy with the given increment and method
func NewRoundingPolicy(incrementMinutes int64, method RoundingMethod) RoundingPolicy {
	return RoundingPolicy{IncrementMinutes: incrementMinutes, Method: method}
}

// Validate returns an error if the policy is invalid
func (p RoundingPolicy) Validate() error {
	valid := false
	for _, inc := range ValidIncrements {
		if p.IncrementMinutes == inc {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("rounding increment must be one of %v minutes", ValidIncrements)
	}
	switch p.Method {
	case RoundNearest, RoundUp, RoundDown:
		return nil
	default:
		return errors.New("rounding method must be nearest, up, or down")
	}
}

// RoundSeconds converts raw elapsed seconds into billable minutes.
// The result is always a non-negative multiple of the increment.
// Nearest resolves an exact half-increment to the even step, which keeps
// the behavior deterministic on boundaries like 63 minutes at a 6-minute
// increment (rounds to 60, not 66).
func (p RoundingPolicy) RoundSeconds(rawSeconds int64) int64 {
	if rawSeconds <= 0 {
		return 0
	}

	incSeconds := p.IncrementMinutes * 60
	steps := rawSeconds / incSeconds
	rem := rawSeconds % incSeconds

	switch p.Method {
	case RoundUp:
		if rem > 0 {
			steps++
		}
	case RoundDown:
		// truncation already done
	default: // RoundNearest
		switch {
		case rem*2 > incSeconds:
			steps++
		case rem*2 == incSeconds:
			if steps%2 != 0 {
				steps++
			}
		}
	}

	return steps * p.IncrementMinutes
}

// RoundHours is a convenience wrapper for callers holding fractional hours.
// It converts to whole seconds before rounding.
func (p RoundingPolicy) RoundHours(rawHours float64) float64 {
	if rawHours <= 0 {
		return 0
	}
	seconds := int64(rawHours*3600 + 0.5)
	return float64(p.RoundSeconds(seconds)) / 60
}

// String returns a human-readable description like "6 min, nearest"
func (p RoundingPolicy) String() string {
	return fmt.Sprintf("%d min, %s", p.IncrementMinutes, p.Method)
}
