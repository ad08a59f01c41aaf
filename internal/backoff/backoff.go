package backoff

import "time"

// MinInterval is the floor for poll delays. Early polls stay responsive for
// fast jobs while never hitting the operations endpoint sub-second.
const MinInterval = time.Second

// DefaultFactor is the multiplicative growth applied between polls.
const DefaultFactor = 1.2

// Schedule produces the delay sequence for a status-polling loop: the delay
// starts at Initial (floored at MinInterval), grows by Factor per poll and
// never exceeds Max. The sequence is non-decreasing.
type Schedule struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// First returns the initial delay with bounds applied.
func (s Schedule) First() time.Duration {
	return s.clamp(s.Initial)
}

// Next returns the delay that follows current.
func (s Schedule) Next(current time.Duration) time.Duration {
	factor := s.Factor
	if factor <= 1 {
		factor = DefaultFactor
	}
	next := time.Duration(float64(s.clamp(current)) * factor)
	return s.clamp(next)
}

func (s Schedule) clamp(d time.Duration) time.Duration {
	if d < MinInterval {
		d = MinInterval
	}
	max := s.Max
	if max < MinInterval {
		max = MinInterval
	}
	if d > max {
		d = max
	}
	return d
}
