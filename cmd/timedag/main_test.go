package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_EndToEnd(t *testing.T) {
	grid := `
series "x" {
  knot "2021-01-01T00:00:00Z" { value = 1 }
  knot "2021-01-01T00:01:00Z" { value = 2 }
}

node "total" {
  op     = "sum"
  inputs = ["x"]
}

output "total" {}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.hcl")
	require.NoError(t, os.WriteFile(path, []byte(grid), 0o600))

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	err := run(out, logs, []string{"-log-level", "error", path})
	require.NoError(t, err)
	require.Contains(t, out.String(), "total (2 knots)")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, out, []string{"-h"})
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, out, []string{"--this-is-not-a-valid-flag"})
	require.Error(t, err)
}

func TestRun_MissingGrid(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	err := run(out, logs, []string{filepath.Join(t.TempDir(), "absent.hcl")})
	require.Error(t, err)
}
