package booking

import (
	"errors"
	"time"
)

// ErrEmptyInterval is returned when an interval does not satisfy start < end.
var ErrEmptyInterval = errors.New("interval end must be after start")

// Interval is a half-open span of absolute time [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval, rejecting empty or inverted spans.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrEmptyInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DurationHours returns (b - a) in hours. b must be after a.
func DurationHours(a, b time.Time) (float64, error) {
	if !b.After(a) {
		return 0, ErrEmptyInterval
	}
	return b.Sub(a).Hours(), nil
}

// Overlaps reports whether a and b share any instant. Touching endpoints do
// not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Expand widens i by before at the start and after at the end.
func Expand(i Interval, before, after time.Duration) Interval {
	return Interval{Start: i.Start.Add(-before), End: i.End.Add(after)}
}
