package timedag

import (
	"fmt"

	"github.com/invenia/timedag/window"
	"github.com/zclconf/go-cty/cty"
)

// accTable is the behavior table shared by the inception and windowed
// variants of one statistic: wrap turns an aligned input batch into an
// accumulator value, combine is the associative (not necessarily
// commutative) merge, extract is a pure function from accumulator to output
// value, and defined gates emission (nil means always defined). Extraction
// being independent of how many merges produced the accumulator is what
// lets windows silently evict old contributions.
type accTable[A any] struct {
	wrap    func(values []any) A
	combine func(a, b A) A
	extract func(a A) any
	defined func(a A) bool
}

// opMeta carries the descriptor metadata common to both variants.
type opMeta struct {
	key     string
	nParent int
	inType  cty.Type
	outType cty.Type
	align   Alignment
}

func (m opMeta) Key() string          { return m.key }
func (m opMeta) TimeAgnostic() bool   { return true }
func (m opMeta) Alignment() Alignment { return m.align }

// ValueType checks each parent against the statistic's input type and
// returns the fixed output type.
func (m opMeta) ValueType(parents ...cty.Type) (cty.Type, error) {
	if len(parents) != m.nParent {
		return cty.NilType, fmt.Errorf("%s takes %d parent(s), got %d", m.key, m.nParent, len(parents))
	}
	for i, pt := range parents {
		if !pt.Equals(m.inType) {
			return cty.NilType, fmt.Errorf("%s requires %s-valued parents, parent %d has type %s",
				m.key, m.inType.FriendlyName(), i, pt.FriendlyName())
		}
	}
	return m.outType, nil
}

// inceptionOp accumulates over the entire history of its inputs.
type inceptionOp[A any] struct {
	opMeta
	table accTable[A]
}

func (o *inceptionOp[A]) AlwaysTicks() bool { return o.table.defined == nil }
func (o *inceptionOp[A]) arity() int        { return o.nParent }

func (o *inceptionOp[A]) newStepper() stepper {
	return &inceptionStepper[A]{table: o.table}
}

// inceptionStepper is the {uninitialized} -> {accumulating} state machine:
// wrap the first input, merge every later one.
type inceptionStepper[A any] struct {
	table  accTable[A]
	acc    A
	primed bool
}

func (s *inceptionStepper[A]) step(values []any) (any, bool) {
	x := s.table.wrap(values)
	if !s.primed {
		s.acc = x
		s.primed = true
	} else {
		s.acc = s.table.combine(s.acc, x)
	}
	if s.table.defined != nil && !s.table.defined(s.acc) {
		return nil, false
	}
	return s.table.extract(s.acc), true
}

// windowOp accumulates over the most recent size inputs. With emitEarly set
// it emits from a partially filled window (subject to the statistic's
// definedness gate); otherwise it stays silent until the window is full.
type windowOp[A any] struct {
	opMeta
	table     accTable[A]
	size      int
	emitEarly bool
}

func (o *windowOp[A]) AlwaysTicks() bool { return o.emitEarly && o.table.defined == nil }
func (o *windowOp[A]) arity() int        { return o.nParent }

func (o *windowOp[A]) newStepper() stepper {
	c, err := window.New(o.size, o.table.combine)
	if err != nil {
		// Size was validated at node construction.
		panic(fmt.Errorf("timedag: %q stepper: %w", o.key, err))
	}
	return &windowStepper[A]{table: o.table, win: c, emitEarly: o.emitEarly}
}

type windowStepper[A any] struct {
	table     accTable[A]
	win       *window.Combiner[A]
	emitEarly bool
}

func (s *windowStepper[A]) step(values []any) (any, bool) {
	s.win.Push(s.table.wrap(values))
	if !s.emitEarly && !s.win.Full() {
		return nil, false
	}
	acc, _ := s.win.Value()
	if s.table.defined != nil && !s.table.defined(acc) {
		return nil, false
	}
	return s.table.extract(acc), true
}
