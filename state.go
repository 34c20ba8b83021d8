package timedag

import (
	"fmt"
)

// EvalState is the mutable per-(node, run) evaluation state. A run creates
// one instance per node before delivering the first input batch and owns it
// exclusively; calls against a single instance must be serialized by the
// caller.
type EvalState struct {
	op    NodeOp
	arity int
	impl  stepper
}

// NewEvalState mints fresh evaluation state for an incrementally evaluated
// descriptor. It fails for descriptors that do not evaluate incrementally
// (sources) or when the declared arity does not match the descriptor's.
func NewEvalState(op NodeOp, arity int) (*EvalState, error) {
	sop, ok := op.(statefulOp)
	if !ok {
		return nil, fmt.Errorf("descriptor %q does not evaluate incrementally", op.Key())
	}
	if arity != sop.arity() {
		return nil, fmt.Errorf("descriptor %q takes %d input(s), state requested for %d", op.Key(), sop.arity(), arity)
	}
	return &EvalState{op: op, arity: arity, impl: sop.newStepper()}, nil
}

// Step feeds one aligned input batch to the operator, mutating only this
// state, and returns the emitted value. The second return is false when the
// operator emits nothing for this batch; a legitimate zero or nil value is
// therefore never confused with "no emission".
func (s *EvalState) Step(values ...any) (any, bool) {
	if len(values) != s.arity {
		panic(fmt.Sprintf("timedag: %q state stepped with %d value(s), want %d", s.op.Key(), len(values), s.arity))
	}
	return s.impl.step(values)
}
