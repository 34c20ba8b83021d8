package app

import (
	"context"
	"fmt"

	"github.com/invenia/timedag"
	"github.com/invenia/timedag/internal/ctxlog"
	"github.com/invenia/timedag/internal/gridfile"
)

// Run executes the main application logic: load the grid definition, build
// the graph, evaluate its outputs, and render the resulting blocks.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	def, err := gridfile.Load(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}

	graph, err := gridfile.Build(ctx, def)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	a.logger.Info("Graph built.", "series", len(def.Series), "nodes", len(def.Nodes), "outputs", len(graph.Outputs))

	nodes := make([]*timedag.Node, len(graph.Outputs))
	for i, out := range graph.Outputs {
		nodes[i] = out.Node
	}

	a.logger.Debug("Evaluation starting.")
	blocks, err := timedag.Evaluate(ctx, nodes...)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("Evaluation finished.", "outputs", len(blocks))

	if err := a.render(graph, blocks); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
