package gridfile

import (
	"context"
	"fmt"
	"time"

	"github.com/invenia/timedag"
	"github.com/invenia/timedag/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Output pairs a declared output name with its resolved graph node.
type Output struct {
	Name string
	Node *timedag.Node
}

// Graph is a fully resolved grid definition, ready for evaluation.
type Graph struct {
	Outputs []Output
}

// builder resolves declared names to graph nodes, memoising as it goes so
// shared inputs resolve to the same node instance.
type builder struct {
	series   map[string]*hclSeries
	nodes    map[string]*hclNode
	resolved map[string]*timedag.Node
	visiting map[string]bool
}

// Build resolves every declaration in def and returns the graph rooted at
// its declared outputs.
func Build(ctx context.Context, def *Definition) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	b := &builder{
		series:   make(map[string]*hclSeries, len(def.Series)),
		nodes:    make(map[string]*hclNode, len(def.Nodes)),
		resolved: make(map[string]*timedag.Node),
		visiting: make(map[string]bool),
	}
	for _, s := range def.Series {
		b.series[s.Name] = s
	}
	for _, n := range def.Nodes {
		b.nodes[n.Name] = n
	}

	if len(def.Outputs) == 0 {
		return nil, fmt.Errorf("grid declares no output blocks")
	}

	graph := &Graph{Outputs: make([]Output, 0, len(def.Outputs))}
	for _, name := range def.Outputs {
		node, err := b.resolve(name)
		if err != nil {
			return nil, err
		}
		graph.Outputs = append(graph.Outputs, Output{Name: name, Node: node})
	}

	logger.Debug("Grid graph built.", "outputs", len(graph.Outputs))
	return graph, nil
}

func (b *builder) resolve(name string) (*timedag.Node, error) {
	if node, ok := b.resolved[name]; ok {
		return node, nil
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("declaration cycle through %q", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	var (
		node *timedag.Node
		err  error
	)
	switch {
	case b.series[name] != nil:
		node, err = buildSeries(b.series[name])
	case b.nodes[name] != nil:
		node, err = b.buildNode(b.nodes[name])
	default:
		return nil, fmt.Errorf("reference to undeclared name %q", name)
	}
	if err != nil {
		return nil, err
	}

	b.resolved[name] = node
	return node, nil
}

func buildSeries(s *hclSeries) (*timedag.Node, error) {
	if len(s.Knots) == 0 {
		return nil, fmt.Errorf("series %q declares no knots", s.Name)
	}

	block := make(timedag.Block, len(s.Knots))
	for i, k := range s.Knots {
		at, err := time.Parse(time.RFC3339, k.At)
		if err != nil {
			return nil, fmt.Errorf("series %q knot %d: invalid timestamp %q: %w", s.Name, i, k.At, err)
		}
		v, err := ctyToGo(k.Value)
		if err != nil {
			return nil, fmt.Errorf("series %q knot %d: %w", s.Name, i, err)
		}
		block[i] = timedag.Knot{Time: at, Value: v}
	}

	node, err := timedag.BlockNode(block)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", s.Name, err)
	}
	return node, nil
}

func (b *builder) buildNode(n *hclNode) (*timedag.Node, error) {
	inputs := make([]*timedag.Node, len(n.Inputs))
	for i, name := range n.Inputs {
		parent, err := b.resolve(name)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		inputs[i] = parent
	}

	node, err := constructNode(n, inputs)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.Name, err)
	}
	return node, nil
}

// constructNode dispatches a node block to the matching graph constructor,
// rejecting attributes the chosen operator does not take.
func constructNode(n *hclNode, inputs []*timedag.Node) (*timedag.Node, error) {
	arity := map[string]int{
		"const": 0,
		"sum": 1, "prod": 1, "mean": 1, "var": 1, "cov_matrix": 1,
		"window_sum": 1, "window_prod": 1, "window_mean": 1, "window_var": 1,
		"window_cov_matrix": 1,
		"cov": 2, "window_cov": 2,
	}
	want, known := arity[n.Op]
	if !known {
		return nil, fmt.Errorf("unknown op %q", n.Op)
	}
	if len(inputs) != want {
		return nil, fmt.Errorf("op %q takes %d input(s), got %d", n.Op, want, len(inputs))
	}

	windowed := n.Op == "window_sum" || n.Op == "window_prod" || n.Op == "window_mean" ||
		n.Op == "window_var" || n.Op == "window_cov" || n.Op == "window_cov_matrix"
	dispersed := n.Op == "var" || n.Op == "cov" || n.Op == "cov_matrix" ||
		n.Op == "window_var" || n.Op == "window_cov" || n.Op == "window_cov_matrix"
	matrix := n.Op == "cov_matrix" || n.Op == "window_cov_matrix"
	paired := n.Op == "cov" || n.Op == "window_cov"

	if n.Window != nil && !windowed {
		return nil, fmt.Errorf("op %q does not take a window", n.Op)
	}
	if n.EmitEarly != nil && !windowed {
		return nil, fmt.Errorf("op %q does not take emit_early", n.Op)
	}
	if n.Corrected != nil && !dispersed {
		return nil, fmt.Errorf("op %q does not take corrected", n.Op)
	}
	if n.Alignment != nil && !paired {
		return nil, fmt.Errorf("op %q does not take an alignment", n.Op)
	}
	if n.Dim != nil && !matrix {
		return nil, fmt.Errorf("op %q does not take a dim", n.Op)
	}
	if n.Value != nil && n.Op != "const" {
		return nil, fmt.Errorf("op %q does not take a value", n.Op)
	}

	if windowed && n.Window == nil {
		return nil, fmt.Errorf("op %q requires a window", n.Op)
	}
	if matrix && n.Dim == nil {
		return nil, fmt.Errorf("op %q requires a dim", n.Op)
	}

	window := 0
	if n.Window != nil {
		window = *n.Window
	}
	early := n.EmitEarly != nil && *n.EmitEarly
	corrected := n.Corrected == nil || *n.Corrected
	dim := 0
	if n.Dim != nil {
		dim = *n.Dim
	}

	alignment := timedag.Union
	if n.Alignment != nil {
		var err error
		alignment, err = parseAlignment(*n.Alignment)
		if err != nil {
			return nil, err
		}
	}

	switch n.Op {
	case "const":
		if n.Value == nil {
			return nil, fmt.Errorf("op %q requires a value", n.Op)
		}
		v, err := ctyToGo(*n.Value)
		if err != nil {
			return nil, err
		}
		return timedag.Constant(v)
	case "sum":
		return timedag.Sum(inputs[0])
	case "prod":
		return timedag.Prod(inputs[0])
	case "mean":
		return timedag.Mean(inputs[0])
	case "var":
		return timedag.Var(inputs[0], corrected)
	case "cov":
		return timedag.Cov(inputs[0], inputs[1], alignment, corrected)
	case "cov_matrix":
		return timedag.CovMatrix(inputs[0], dim, corrected)
	case "window_sum":
		return timedag.WindowSum(inputs[0], window, early)
	case "window_prod":
		return timedag.WindowProd(inputs[0], window, early)
	case "window_mean":
		return timedag.WindowMean(inputs[0], window, early)
	case "window_var":
		return timedag.WindowVar(inputs[0], window, corrected, early)
	case "window_cov":
		return timedag.WindowCov(inputs[0], inputs[1], window, alignment, corrected, early)
	case "window_cov_matrix":
		return timedag.WindowCovMatrix(inputs[0], dim, window, corrected, early)
	}
	panic("unreachable")
}

func parseAlignment(s string) (timedag.Alignment, error) {
	switch s {
	case "union":
		return timedag.Union, nil
	case "intersect":
		return timedag.Intersect, nil
	case "left":
		return timedag.Left, nil
	}
	return 0, fmt.Errorf("invalid alignment %q: must be 'union', 'intersect', or 'left'", s)
}

// ctyToGo lowers a decoded HCL value into the runtime representation the
// graph works with.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("null values are not allowed")
	}

	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case ty.Equals(cty.String):
		return v.AsString(), nil
	case ty.Equals(cty.Bool):
		return v.True(), nil
	case ty.IsTupleType() || ty.IsListType():
		list, err := convert.Convert(v, cty.List(cty.Number))
		if err != nil {
			return nil, fmt.Errorf("vector values must be numeric: %w", err)
		}
		out := make([]float64, 0, list.LengthInt())
		for it := list.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			f, _ := ev.AsBigFloat().Float64()
			out = append(out, f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
