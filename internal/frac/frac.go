// Package frac implements the fixed-point fraction arithmetic spec.md
// §4.1 uses to weight progress across nested async operations: values
// confined to [0,1] represented as a 31-bit numerator over a fixed
// denominator, with a blend operator for combining two confidence-
// weighted estimates.
package frac

// Bits is the fraction precision: values are numerator/2^Bits.
const Bits = 31

// Denom is 2^Bits, the fixed denominator every Frac is measured against.
const Denom = 1 << Bits

// Frac is a fraction in [0,1], stored as a numerator over Denom.
type Frac uint32

// Zero is the additive identity.
const Zero Frac = 0

// One is the fraction representing 1.0 exactly.
const One Frac = Denom

// New builds a Frac from a ratio done/total, clamped to [0,1]. A
// total of zero yields Zero rather than dividing by zero.
func New(done, total int64) Frac {
	if total <= 0 || done <= 0 {
		return Zero
	}
	if done >= total {
		return One
	}
	return Frac((done * Denom) / total)
}

// Float64 converts to a float64 in [0,1], for display only.
func (f Frac) Float64() float64 {
	return float64(f) / float64(Denom)
}

// Mul multiplies two fractions, saturating at One.
func (f Frac) Mul(g Frac) Frac {
	v := (uint64(f) * uint64(g)) / Denom
	if v > Denom {
		return One
	}
	return Frac(v)
}

// Add adds two fractions, saturating at One.
func (f Frac) Add(g Frac) Frac {
	v := uint64(f) + uint64(g)
	if v > Denom {
		return One
	}
	return Frac(v)
}

// Sub subtracts g from f, floored at Zero.
func (f Frac) Sub(g Frac) Frac {
	if g >= f {
		return Zero
	}
	return f - g
}

// Confidence implements spec.md §4.1's conf(t): 0 below 200 time
// units, ramping linearly to 1 at 500, 1 beyond.
func Confidence(elapsed int64) Frac {
	const lo, hi = 200, 500
	switch {
	case elapsed < lo:
		return Zero
	case elapsed >= hi:
		return One
	default:
		return New(elapsed-lo, hi-lo)
	}
}

// Blend computes the confidence-weighted average of two quantities,
// per spec.md §4.1: blend(a, conf_a, b, conf_b) = (a*conf_a +
// b*conf_b) / (conf_a + conf_b). If both confidences are zero, a is
// returned unchanged (there is nothing to blend towards).
func Blend(a float64, confA Frac, b float64, confB Frac) float64 {
	denom := confA.Float64() + confB.Float64()
	if denom == 0 {
		return a
	}
	return (a*confA.Float64() + b*confB.Float64()) / denom
}
