package timedag

import (
	"fmt"
	"slices"
	"time"
)

// AlignedRow is one synchronized input batch for a multi-input operator:
// an output timestamp plus exactly one value per input.
type AlignedRow struct {
	Time   time.Time
	Values []any
}

// InitialValues optionally seeds inputs (by position) with a value so they
// count as already-ticked before evaluation begins. The seed never produces
// a synthetic row by itself.
type InitialValues map[int]any

// AlignInputs merges the input blocks into the sequence of batches the
// evaluator feeds an operator, according to the alignment policy:
//
//   - Union: a row for every tick of any input, once all inputs have ticked
//     at least once; non-ticking inputs carry their latest value forward.
//   - Intersect: a row only at times where every input ticks simultaneously.
//   - Left: a row only at ticks of input 0, once all inputs have ticked.
//
// Knot times within each input must be strictly increasing.
func AlignInputs(policy Alignment, inputs []Block, initial InitialValues) ([]AlignedRow, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("alignment requires at least one input")
	}
	for i, b := range inputs {
		if err := checkIncreasing(b); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	for i := range initial {
		if i < 0 || i >= len(inputs) {
			return nil, fmt.Errorf("initial value for input %d, but there are %d inputs", i, len(inputs))
		}
	}

	n := len(inputs)
	idx := make([]int, n)
	cur := make([]any, n)
	has := make([]bool, n)
	for i, v := range initial {
		cur[i], has[i] = v, true
	}

	var rows []AlignedRow
	for {
		// Next tick time across all inputs.
		var t time.Time
		found := false
		for i, b := range inputs {
			if idx[i] >= len(b) {
				continue
			}
			if !found || b[idx[i]].Time.Before(t) {
				t = b[idx[i]].Time
				found = true
			}
		}
		if !found {
			return rows, nil
		}

		ticked := 0
		primaryTicked := false
		for i, b := range inputs {
			if idx[i] < len(b) && b[idx[i]].Time.Equal(t) {
				cur[i], has[i] = b[idx[i]].Value, true
				idx[i]++
				ticked++
				if i == 0 {
					primaryTicked = true
				}
			}
		}

		all := true
		for _, h := range has {
			if !h {
				all = false
				break
			}
		}

		emit := false
		switch policy {
		case Union:
			emit = all
		case Intersect:
			emit = ticked == n
		case Left:
			emit = primaryTicked && all
		default:
			return nil, fmt.Errorf("unknown alignment policy %d", int(policy))
		}
		if emit {
			rows = append(rows, AlignedRow{Time: t, Values: slices.Clone(cur)})
		}
	}
}
