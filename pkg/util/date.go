package util

import "time"

// AlignFromTo truncates a fetch window to step boundaries so repeated
// fetches within one bar hit identical upstream URLs and stay cacheable
// along the way.
func AlignFromTo(from, to time.Time, step time.Duration) (time.Time, time.Time) {
	if step <= 0 {
		return from, to
	}
	return from.Truncate(step), to.Truncate(step)
}
