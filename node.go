package timedag

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// Node is an immutable vertex of the computation graph: an ordered list of
// parent nodes plus an operation descriptor. Nodes are constructed only
// through an identity map, so two construction requests with the same
// parents (by identity) and an equal descriptor (by value) yield the same
// instance for as long as a prior instance is still externally reachable.
type Node struct {
	parents []*Node
	op      NodeOp
	vt      cty.Type
}

// newNode builds a vertex and derives its static value type. Descriptor and
// parent types were validated by the constructor that requested the node, so
// a derivation failure here is a programmer error.
func newNode(parents []*Node, op NodeOp) *Node {
	pts := make([]cty.Type, len(parents))
	for i, p := range parents {
		pts[i] = p.vt
	}
	vt, err := op.ValueType(pts...)
	if err != nil {
		panic(fmt.Errorf("timedag: descriptor %q failed type derivation after validation: %w", op.Key(), err))
	}
	return &Node{parents: slices.Clone(parents), op: op, vt: vt}
}

// Op returns the node's operation descriptor.
func (n *Node) Op() NodeOp { return n.op }

// Parents returns a copy of the node's ordered parent list.
func (n *Node) Parents() []*Node { return slices.Clone(n.parents) }

// Arity returns the number of parents.
func (n *Node) Arity() int { return len(n.parents) }

// ValueType returns the statically derived type of the node's knot values.
func (n *Node) ValueType() cty.Type { return n.vt }

// AlwaysTicks reports whether the node emits a knot for every input batch.
func (n *Node) AlwaysTicks() bool { return n.op.AlwaysTicks() }

// TimeAgnostic reports whether the node's output values are independent of
// its inputs' wall-clock times.
func (n *Node) TimeAgnostic() bool { return n.op.TimeAgnostic() }

// String renders the node as op(parent-ops...) for logs and errors.
func (n *Node) String() string {
	if len(n.parents) == 0 {
		return n.op.Key()
	}
	s := n.op.Key() + "("
	for i, p := range n.parents {
		if i > 0 {
			s += ", "
		}
		s += p.op.Key()
	}
	return s + ")"
}
