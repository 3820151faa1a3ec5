package preference

import "math"

// MaxReinforced is the largest confidence a positive signal with weight
// below 1 can produce. Only an explicit weight of 1 reaches 1.0.
var MaxReinforced = math.Nextafter(1, 0)

// Clamp limits c to [0,1]. NaN maps to 0.
func Clamp(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Reinforce applies a positive signal: c + w(1-c). The result approaches 1
// asymptotically and never decreases.
func Reinforce(c, w float64) float64 {
	next := Clamp(c + w*(1-c))
	if w < 1 && next > MaxReinforced {
		next = MaxReinforced
	}
	if next < c {
		return c
	}
	return next
}

// Weaken applies a negative signal: c(1-w). The result decays toward 0 and
// never goes below it.
func Weaken(c, w float64) float64 {
	return Clamp(c * (1 - w))
}

// Initial is the confidence of a row created from a positive signal
func Initial(w float64) float64 {
	c := Clamp(w)
	if w < 1 && c > MaxReinforced {
		c = MaxReinforced
	}
	return c
}
