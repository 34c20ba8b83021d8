package timedag

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// typeOfValue maps a Go knot value onto its static value type.
func typeOfValue(v any) (cty.Type, error) {
	switch v.(type) {
	case float64:
		return cty.Number, nil
	case []float64:
		return cty.List(cty.Number), nil
	case string:
		return cty.String, nil
	case bool:
		return cty.Bool, nil
	default:
		return cty.NilType, fmt.Errorf("unsupported knot value type %T", v)
	}
}

// sourceMeta implements the descriptor metadata shared by source variants.
type sourceMeta struct {
	vt cty.Type
}

func (s sourceMeta) Alignment() Alignment { return Union }

func (s sourceMeta) valueType(name string, parents []cty.Type) (cty.Type, error) {
	if len(parents) != 0 {
		return cty.NilType, fmt.Errorf("%s takes no parents, got %d", name, len(parents))
	}
	return s.vt, nil
}

// blockOp replays a pre-loaded block. Its value identity is a digest of the
// block's contents, so structurally identical blocks share one node.
type blockOp struct {
	sourceMeta
	block  Block
	digest uint64
}

func newBlockOp(b Block, vt cty.Type) *blockOp {
	h := fnv.New64a()
	for _, k := range b {
		_ = binary.Write(h, binary.LittleEndian, k.Time.UnixNano())
		fmt.Fprintf(h, "/%v;", k.Value)
	}
	return &blockOp{sourceMeta: sourceMeta{vt: vt}, block: b, digest: h.Sum64()}
}

func (o *blockOp) Key() string { return fmt.Sprintf("block{%016x}", o.digest) }
func (o *blockOp) ValueType(parents ...cty.Type) (cty.Type, error) {
	return o.valueType("block", parents)
}
func (o *blockOp) AlwaysTicks() bool  { return true }
func (o *blockOp) TimeAgnostic() bool { return false }

func (o *blockOp) materialize(time.Time, bool) Block { return o.block }
func (o *blockOp) originTime() (time.Time, bool) {
	if len(o.block) == 0 {
		return time.Time{}, false
	}
	return o.block[0].Time, true
}

// constOp is a value known from the beginning of time. It materializes a
// single knot at the evaluation run's origin so downstream alignment sees
// the input as ticked before any real data arrives.
type constOp struct {
	sourceMeta
	v any
}

func (o *constOp) Key() string { return fmt.Sprintf("const{%v:%s}", o.v, o.vt.FriendlyName()) }
func (o *constOp) ValueType(parents ...cty.Type) (cty.Type, error) {
	return o.valueType("const", parents)
}
func (o *constOp) AlwaysTicks() bool  { return true }
func (o *constOp) TimeAgnostic() bool { return true }

func (o *constOp) materialize(origin time.Time, hasOrigin bool) Block {
	if !hasOrigin {
		return nil
	}
	return Block{{Time: origin, Value: o.v}}
}
func (o *constOp) originTime() (time.Time, bool) { return time.Time{}, false }

// emptyOp is a series that never ticks.
type emptyOp struct {
	sourceMeta
}

func (o *emptyOp) Key() string { return fmt.Sprintf("empty{%s}", o.vt.FriendlyName()) }
func (o *emptyOp) ValueType(parents ...cty.Type) (cty.Type, error) {
	return o.valueType("empty", parents)
}
func (o *emptyOp) AlwaysTicks() bool  { return false }
func (o *emptyOp) TimeAgnostic() bool { return true }

func (o *emptyOp) materialize(time.Time, bool) Block { return nil }
func (o *emptyOp) originTime() (time.Time, bool)     { return time.Time{}, false }

// BlockNode wraps an existing block as a source node. Knot times must be
// strictly increasing, all values must share one supported type, and the
// block must be non-empty (use Empty for a knotless series). The block is
// copied; later mutation of the argument does not affect the node.
func BlockNode(b Block) (*Node, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("block node requires at least one knot; use Empty for a knotless series")
	}
	if err := checkIncreasing(b); err != nil {
		return nil, err
	}
	vt, err := typeOfValue(b[0].Value)
	if err != nil {
		return nil, err
	}
	for i, k := range b[1:] {
		kt, err := typeOfValue(k.Value)
		if err != nil {
			return nil, err
		}
		if !kt.Equals(vt) {
			return nil, fmt.Errorf("mixed value types within one block: knot 0 is %s, knot %d is %s",
				vt.FriendlyName(), i+1, kt.FriendlyName())
		}
	}
	return Obtain(nil, newBlockOp(b.clone(), vt)), nil
}

// Constant returns the node for a value known from the beginning of time.
func Constant(v any) (*Node, error) {
	vt, err := typeOfValue(v)
	if err != nil {
		return nil, err
	}
	return Obtain(nil, &constOp{sourceMeta: sourceMeta{vt: vt}, v: v}), nil
}

// Empty returns the node for a series of the given value type that never
// ticks.
func Empty(vt cty.Type) *Node {
	return Obtain(nil, &emptyOp{sourceMeta: sourceMeta{vt: vt}})
}
