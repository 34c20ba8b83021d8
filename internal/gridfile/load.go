package gridfile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/invenia/timedag/internal/ctxlog"
	"github.com/invenia/timedag/internal/fsutil"
)

// Load discovers every .hcl file under gridPath and merges their
// declarations into a single Definition. Duplicate series or node names
// across files are rejected here; structural validation happens in Build.
func Load(ctx context.Context, gridPath string) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading grid definition.", "path", gridPath)

	files, err := fsutil.FindFilesByExtension(gridPath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find grid files in %s: %w", gridPath, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found under %s", gridPath)
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	def := &Definition{}
	seen := make(map[string]string)

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var parsed hclGridFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range parsed.Series {
			if prev, dup := seen[s.Name]; dup {
				return nil, fmt.Errorf("duplicate declaration %q in %s (first seen in %s)", s.Name, file, prev)
			}
			seen[s.Name] = file
			def.Series = append(def.Series, s)
		}
		for _, n := range parsed.Nodes {
			if prev, dup := seen[n.Name]; dup {
				return nil, fmt.Errorf("duplicate declaration %q in %s (first seen in %s)", n.Name, file, prev)
			}
			seen[n.Name] = file
			def.Nodes = append(def.Nodes, n)
		}
		for _, o := range parsed.Outputs {
			def.Outputs = append(def.Outputs, o.Name)
		}
	}

	logger.Debug("Grid definition loaded.",
		"series", len(def.Series), "nodes", len(def.Nodes), "outputs", len(def.Outputs))
	return def, nil
}
