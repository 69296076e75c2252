package async

import "github.com/thoukydides/riscos-psifs-sub001/internal/frac"

// Centi-second thresholds from the original async_time/async_time_pretty
// (async.c's ASYNC_CONFIDENT_*/ASYNC_PRETTY_* constants).
const (
	confidentMin = 200
	confidentMax = 500
	prettyInit   = 300
	prettyHide   = 1000
	prettyStep   = 50
)

// timing carries the per-operation ETA-smoothing state spec.md §3
// calls the "smoothing register", plus the raw progress mark and CPU-
// time bookkeeping it is derived from.
type timing struct {
	timeAcc     int64 // cs accumulated across completed running intervals
	timeStart   int64 // cs clock reading when the current interval began
	running     bool
	timeDone    int64 // cs elapsed at the last Mark call
	fracDone    frac.Frac
	fracStep    frac.Frac

	prettyTotal int64
	prettyBase  int64
	prettyLast  int64
}

// combine is async_combine from the original: a confidence-weighted
// blend that treats a zero value as having zero confidence.
func combine(a int64, confA frac.Frac, b int64, confB frac.Frac) int64 {
	if a == 0 {
		confA = frac.Zero
	}
	if b == 0 {
		confB = frac.Zero
	}
	return int64(frac.Blend(float64(a), confA, float64(b), confB))
}

func scale(value int64, f frac.Frac) int64 {
	return int64(float64(value) * f.Float64())
}

func invScale(value int64, f frac.Frac) int64 {
	if f == frac.Zero {
		return 0
	}
	return int64(float64(value) / f.Float64())
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// rawTime is async_time ported from async.c: it recursively folds in
// a running child's own elapsed/remaining estimate, weighting it by
// how long the child itself has been running (conf, ramping 200-500
// cs), then blends the step estimate into the whole-operation total.
func rawTime(op *Op, nowCS int64) (taken, remain int64) {
	var childTaken, childRemain int64
	if !op.timing.running && op.child != nil {
		childTaken, childRemain = rawTime(op.child, nowCS)
	}

	taken = op.timing.timeAcc + childTaken
	if op.timing.running {
		taken += nowCS - op.timing.timeStart
	}

	total := invScale(op.timing.timeDone, op.timing.fracDone)

	fracChild := frac.New(childTaken, op.timing.timeDone)
	if childTaken < confidentMin {
		fracChild = frac.Zero
	} else if childTaken < confidentMax {
		ramp := frac.New(childTaken-confidentMin, confidentMax-confidentMin)
		if ramp < fracChild {
			fracChild = ramp
		}
	}

	step := combine(scale(total, op.timing.fracStep), frac.One.Sub(fracChild), childTaken+childRemain, fracChild)
	step = maxI64(step, childTaken)
	step = maxI64(step, taken-op.timing.timeDone)

	total = combine(total, op.timing.fracDone, invScale(step, op.timing.fracStep), op.timing.fracStep)
	total = op.timing.timeDone + step + scale(total, frac.One.Sub(op.timing.fracDone.Add(op.timing.fracStep)))

	if total != 0 {
		remain = total - taken
	}
	return taken, remain
}

// prettyTime is a simplified rendition of async_time_pretty: it
// preserves the two human-facing rules spec.md §4.1 names (remaining
// time must not visibly jump up quickly, and must not jitter) without
// reproducing the original's multi-branch hysteresis bookkeeping
// (pretty_error sign tracking, offset windows) verbatim — see
// DESIGN.md.
func prettyTime(op *Op, taken, remain int64) int64 {
	if taken <= prettyInit {
		return remain
	}
	total := taken + remain
	switch {
	case op.timing.prettyTotal == 0:
		op.timing.prettyTotal = total
		op.timing.prettyBase = taken
		op.timing.prettyLast = taken
	case taken-op.timing.prettyLast > prettyStep:
		if total < op.timing.prettyTotal {
			// Let the estimate fall, but only by a quarter of the gap
			// per mark, so it settles rather than dropping visibly.
			op.timing.prettyTotal -= (op.timing.prettyTotal - total) / 4
		} else if total > op.timing.prettyTotal {
			// Let the estimate rise by at most one interval's worth.
			grow := taken - op.timing.prettyLast
			if total-op.timing.prettyTotal < grow {
				grow = total - op.timing.prettyTotal
			}
			op.timing.prettyTotal += grow
		}
		op.timing.prettyLast = taken
	}

	if taken < prettyHide || taken >= op.timing.prettyTotal {
		return 0
	}
	return op.timing.prettyTotal - taken
}
