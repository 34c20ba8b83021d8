package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/invenia/timedag"
	"github.com/invenia/timedag/internal/gridfile"
	"gonum.org/v1/gonum/mat"
)

// render writes the evaluated blocks to the application's output writer in
// the configured format. Outputs keep their declaration order.
func (a *App) render(graph *gridfile.Graph, blocks []timedag.Block) error {
	if a.config.OutputFormat == "json" {
		return a.renderJSON(graph, blocks)
	}
	return a.renderText(graph, blocks)
}

func (a *App) renderText(graph *gridfile.Graph, blocks []timedag.Block) error {
	for i, out := range graph.Outputs {
		block := blocks[i]
		if _, err := fmt.Fprintf(a.outW, "%s (%d knots)\n", out.Name, len(block)); err != nil {
			return err
		}
		for _, k := range block {
			if _, err := fmt.Fprintf(a.outW, "  %s  %s\n", k.Time.Format(time.RFC3339), formatValue(k.Value)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *mat.Dense:
		return fmt.Sprintf("%v", matrixRows(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

type jsonKnot struct {
	At    time.Time `json:"at"`
	Value any       `json:"value"`
}

type jsonOutput struct {
	Name  string     `json:"name"`
	Knots []jsonKnot `json:"knots"`
}

func (a *App) renderJSON(graph *gridfile.Graph, blocks []timedag.Block) error {
	outputs := make([]jsonOutput, len(graph.Outputs))
	for i, out := range graph.Outputs {
		knots := make([]jsonKnot, len(blocks[i]))
		for j, k := range blocks[i] {
			knots[j] = jsonKnot{At: k.Time, Value: jsonValue(k.Value)}
		}
		outputs[i] = jsonOutput{Name: out.Name, Knots: knots}
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}

// jsonValue lowers matrix values into nested slices so every knot value has
// a natural JSON encoding.
func jsonValue(v any) any {
	if m, ok := v.(*mat.Dense); ok {
		return matrixRows(m)
	}
	return v
}

func matrixRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
