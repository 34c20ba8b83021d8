package timedag

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invenia/timedag/internal/ctxlog"
)

// evalTask is the per-node bookkeeping for one evaluation run.
type evalTask struct {
	node       *Node
	parents    []*evalTask
	dependents []*evalTask
	// pending counts unevaluated parents, duplicates included; a task is
	// ready when it reaches zero.
	pending atomic.Int32
	out     Block
}

// Evaluate runs the requested nodes and all of their ancestors over the
// full extent of the graph's sources, returning one block per requested
// node, in request order. Nodes are evaluated in dependency order; nodes
// with no path between them run concurrently on a worker pool. Each node's
// evaluation state lives and dies inside this call.
func Evaluate(ctx context.Context, nodes ...*Node) ([]Block, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	logger := ctxlog.FromContext(ctx)

	// Collect the ancestor closure and wire parent/dependent links.
	tasks := make(map[*Node]*evalTask)
	var visit func(n *Node) *evalTask
	visit = func(n *Node) *evalTask {
		if t, ok := tasks[n]; ok {
			return t
		}
		t := &evalTask{node: n}
		tasks[n] = t
		for _, p := range n.parents {
			pt := visit(p)
			t.parents = append(t.parents, pt)
			pt.dependents = append(pt.dependents, t)
		}
		t.pending.Store(int32(len(t.parents)))
		return t
	}
	for _, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("cannot evaluate a nil node")
		}
		visit(n)
	}
	logger.Debug("Evaluation graph collected.", "requested", len(nodes), "total_nodes", len(tasks))

	// The run's origin is the earliest knot among all block sources; it
	// anchors constants, which are knowable from the beginning of time.
	var origin time.Time
	hasOrigin := false
	for n := range tasks {
		if src, ok := n.op.(sourceOp); ok {
			if t0, ok := src.originTime(); ok && (!hasOrigin || t0.Before(origin)) {
				origin, hasOrigin = t0, true
			}
		}
	}

	ready := make(chan *evalTask, len(tasks))
	for _, t := range tasks {
		if t.pending.Load() == 0 {
			ready <- t
		}
	}

	var completed atomic.Int32
	total := int32(len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case t, ok := <-ready:
					if !ok {
						return nil
					}
					b, err := evalOne(gctx, t, origin, hasOrigin)
					if err != nil {
						return fmt.Errorf("evaluating %s: %w", t.node, err)
					}
					t.out = b
					for _, dep := range t.dependents {
						if dep.pending.Add(-1) == 0 {
							ready <- dep
						}
					}
					if completed.Add(1) == total {
						close(ready)
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Evaluation complete.", "nodes", len(tasks))

	out := make([]Block, len(nodes))
	for i, n := range nodes {
		out[i] = tasks[n].out.clone()
	}
	return out, nil
}

// evalOne produces one node's output block from its parents' blocks.
func evalOne(ctx context.Context, t *evalTask, origin time.Time, hasOrigin bool) (Block, error) {
	switch op := t.node.op.(type) {
	case sourceOp:
		return op.materialize(origin, hasOrigin), nil
	case statefulOp:
		inputs := make([]Block, len(t.parents))
		for i, p := range t.parents {
			inputs[i] = p.out
		}
		rows, err := AlignInputs(op.Alignment(), inputs, nil)
		if err != nil {
			return nil, err
		}
		st, err := NewEvalState(op, len(inputs))
		if err != nil {
			return nil, err
		}
		var out Block
		for i, row := range rows {
			// Stay responsive to cancellation on long series.
			if i%1024 == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if v, ok := st.Step(row.Values...); ok {
				out = append(out, Knot{Time: row.Time, Value: v})
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("descriptor %q is neither a source nor incrementally evaluable", t.node.op.Key())
	}
}
