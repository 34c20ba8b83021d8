package timedag

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Alignment selects when a multi-input operator is fed a synchronized batch
// of values, relative to which of its inputs have ticked.
type Alignment int

const (
	// Union emits once every input has ticked at least once, and on every
	// subsequent tick of any input.
	Union Alignment = iota
	// Intersect emits only on simultaneous ticks of all inputs.
	Intersect
	// Left emits only on ticks of the first input, once every input has
	// ticked at least once.
	Left
)

// String returns the lowercase policy name.
func (a Alignment) String() string {
	switch a {
	case Union:
		return "union"
	case Intersect:
		return "intersect"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// NodeOp is the immutable descriptor of a node's computation. The variant
// set is closed; descriptors compare equal iff their Keys are equal.
type NodeOp interface {
	// Key returns the canonical value identity of the descriptor. Two
	// descriptors describe the same computation iff their keys match.
	Key() string

	// ValueType derives the output value type from the parents' value
	// types. It fails when the parent types or count do not fit the
	// descriptor; constructors surface that failure before a node is
	// ever minted.
	ValueType(parents ...cty.Type) (cty.Type, error)

	// AlwaysTicks reports whether the operator produces an output value
	// every time it is invoked with an input batch.
	AlwaysTicks() bool

	// TimeAgnostic reports whether the operator's semantics are
	// independent of the knots' wall-clock times.
	TimeAgnostic() bool

	// Alignment returns the alignment policy for multi-input operators.
	// Single-input operators report Union.
	Alignment() Alignment
}

// statefulOp is the evaluation side of a descriptor: it knows how many
// inputs it takes and how to mint fresh per-run state.
type statefulOp interface {
	NodeOp
	arity() int
	newStepper() stepper
}

// stepper consumes one aligned input batch at a time and yields an optional
// output value. Implementations own all mutable evaluation state.
type stepper interface {
	step(values []any) (any, bool)
}

// sourceOp is a descriptor with no parents that materializes its block
// directly. origin is the earliest knot time among the run's block sources;
// hasOrigin is false when the run contains none.
type sourceOp interface {
	NodeOp
	materialize(origin time.Time, hasOrigin bool) Block
	originTime() (time.Time, bool)
}
