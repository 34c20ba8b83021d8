package gridfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/invenia/timedag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGrid(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func loadAndBuild(t *testing.T, content string) *Graph {
	t.Helper()
	dir := writeGrid(t, "grid.hcl", content)
	def, err := Load(context.Background(), dir)
	require.NoError(t, err)
	graph, err := Build(context.Background(), def)
	require.NoError(t, err)
	return graph
}

const pricesGrid = `
series "prices" {
  knot "2021-01-01T00:00:00Z" { value = 2 }
  knot "2021-01-01T00:01:00Z" { value = 4 }
  knot "2021-01-01T00:02:00Z" { value = 4 }
  knot "2021-01-01T00:03:00Z" { value = 4 }
  knot "2021-01-01T00:04:00Z" { value = 5 }
  knot "2021-01-01T00:05:00Z" { value = 5 }
  knot "2021-01-01T00:06:00Z" { value = 7 }
  knot "2021-01-01T00:07:00Z" { value = 9 }
}

node "spread" {
  op     = "var"
  inputs = ["prices"]
}

node "rolling" {
  op         = "window_mean"
  inputs     = ["prices"]
  window     = 2
  emit_early = false
}

output "spread" {}
output "rolling" {}
`

func TestLoadAndBuild(t *testing.T) {
	graph := loadAndBuild(t, pricesGrid)
	require.Len(t, graph.Outputs, 2)
	assert.Equal(t, "spread", graph.Outputs[0].Name)
	assert.Equal(t, "rolling", graph.Outputs[1].Name)

	got, err := timedag.Evaluate(context.Background(), graph.Outputs[0].Node, graph.Outputs[1].Node)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The expanding variance of the sample series converges to 32/7.
	spread := got[0]
	require.Len(t, spread, 7)
	assert.InDelta(t, 32.0/7.0, spread[6].Value.(float64), 1e-12)

	rolling := got[1]
	require.Len(t, rolling, 7)
	assert.InDelta(t, 3.0, rolling[0].Value.(float64), 1e-12)
	assert.InDelta(t, 8.0, rolling[6].Value.(float64), 1e-12)
}

func TestBuild_SharedInputsResolveOnce(t *testing.T) {
	graph := loadAndBuild(t, `
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 1 }
  knot "2021-01-01T00:01:00Z" { value = 2 }
}

node "a" {
  op     = "sum"
  inputs = ["x"]
}

node "b" {
  op     = "sum"
  inputs = ["x"]
}

output "a" {}
output "b" {}
`)
	require.Len(t, graph.Outputs, 2)
	assert.Same(t, graph.Outputs[0].Node, graph.Outputs[1].Node,
		"equal declarations over the same input must resolve to one node")
}

func TestBuild_VectorSeriesAndCovMatrix(t *testing.T) {
	graph := loadAndBuild(t, `
series "pair" {
  knot "2021-01-01T00:00:00Z" { value = [1, 2] }
  knot "2021-01-01T00:01:00Z" { value = [2, 4] }
  knot "2021-01-01T00:02:00Z" { value = [3, 6] }
}

node "cm" {
  op     = "cov_matrix"
  inputs = ["pair"]
  dim    = 2
}

output "cm" {}
`)
	got, err := timedag.Evaluate(context.Background(), graph.Outputs[0].Node)
	require.NoError(t, err)
	require.Len(t, got[0], 2)
}

func TestBuild_ConstAndCov(t *testing.T) {
	graph := loadAndBuild(t, `
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 1 }
  knot "2021-01-01T00:01:00Z" { value = 2 }
  knot "2021-01-01T00:02:00Z" { value = 3 }
}

series "y" {
  knot "2021-01-01T00:00:00Z" { value = 2 }
  knot "2021-01-01T00:01:00Z" { value = 4 }
  knot "2021-01-01T00:02:00Z" { value = 6 }
}

node "c" {
  op    = "const"
  value = 10
}

node "xy" {
  op        = "cov"
  inputs    = ["x", "y"]
  alignment = "intersect"
  corrected = true
}

output "c" {}
output "xy" {}
`)
	got, err := timedag.Evaluate(context.Background(), graph.Outputs[0].Node, graph.Outputs[1].Node)
	require.NoError(t, err)
	require.Len(t, got[0], 1, "a constant materializes one knot at the origin")
	assert.Equal(t, 10.0, got[0][0].Value)
	require.Len(t, got[1], 2)
	assert.InDelta(t, 2.0, got[1][1].Value.(float64), 1e-12)
}

func TestLoad_MergesFilesAndRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 1 }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`
node "s" {
  op     = "sum"
  inputs = ["x"]
}

output "s" {}
`), 0o644))

	def, err := Load(context.Background(), dir)
	require.NoError(t, err)
	_, err = Build(context.Background(), def)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.hcl"), []byte(`
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 2 }
}
`), 0o644))
	_, err = Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate declaration")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("no grid files", func(t *testing.T) {
		_, err := Load(context.Background(), t.TempDir())
		require.Error(t, err)
	})

	t.Run("malformed hcl", func(t *testing.T) {
		dir := writeGrid(t, "bad.hcl", `series "x" {`)
		_, err := Load(context.Background(), dir)
		require.Error(t, err)
	})
}

func TestBuild_Errors(t *testing.T) {
	build := func(t *testing.T, content string) error {
		t.Helper()
		dir := writeGrid(t, "grid.hcl", content)
		def, err := Load(context.Background(), dir)
		require.NoError(t, err)
		_, err = Build(context.Background(), def)
		return err
	}

	series := `
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 1 }
  knot "2021-01-01T00:01:00Z" { value = 2 }
}
`

	t.Run("no outputs", func(t *testing.T) {
		require.Error(t, build(t, series))
	})

	t.Run("undeclared reference", func(t *testing.T) {
		err := build(t, series+`
node "s" {
  op     = "sum"
  inputs = ["missing"]
}
output "s" {}
`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared name")
	})

	t.Run("declaration cycle", func(t *testing.T) {
		err := build(t, `
node "a" {
  op     = "sum"
  inputs = ["b"]
}
node "b" {
  op     = "sum"
  inputs = ["a"]
}
output "a" {}
`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("unknown op", func(t *testing.T) {
		require.Error(t, build(t, series+`
node "s" {
  op     = "median"
  inputs = ["x"]
}
output "s" {}
`))
	})

	t.Run("attribute not taken by op", func(t *testing.T) {
		require.Error(t, build(t, series+`
node "s" {
  op     = "sum"
  inputs = ["x"]
  window = 3
}
output "s" {}
`))
	})

	t.Run("window op without window", func(t *testing.T) {
		require.Error(t, build(t, series+`
node "s" {
  op     = "window_sum"
  inputs = ["x"]
}
output "s" {}
`))
	})

	t.Run("invalid alignment", func(t *testing.T) {
		require.Error(t, build(t, series+`
node "s" {
  op        = "cov"
  inputs    = ["x", "x"]
  alignment = "outer"
}
output "s" {}
`))
	})

	t.Run("bad timestamp", func(t *testing.T) {
		require.Error(t, build(t, `
series "x" {
  knot "yesterday" { value = 1 }
}
output "x" {}
`))
	})

	t.Run("empty series", func(t *testing.T) {
		require.Error(t, build(t, `
series "x" {}
output "x" {}
`))
	})
}
