package timedag

import (
	"fmt"
	"time"
)

// Knot is a single observation in a time series: a timestamp paired with a
// value. Timestamps within one series are strictly increasing.
type Knot struct {
	Time  time.Time
	Value any
}

// Block is an ordered run of knots from a single series.
type Block []Knot

// checkIncreasing verifies that knot times are strictly increasing.
func checkIncreasing(b Block) error {
	for i := 1; i < len(b); i++ {
		if !b[i].Time.After(b[i-1].Time) {
			return fmt.Errorf("knot times must be strictly increasing: knot %d (%s) does not follow knot %d (%s)",
				i, b[i].Time.Format(time.RFC3339Nano), i-1, b[i-1].Time.Format(time.RFC3339Nano))
		}
	}
	return nil
}

// clone returns an independent copy of the block so that node-held blocks
// stay immutable regardless of what the caller does with its slice.
func (b Block) clone() Block {
	out := make(Block, len(b))
	copy(out, b)
	return out
}
