// Package gridfile loads declarative graph definitions from HCL files and
// builds timedag graphs out of them. A grid file declares raw series with
// inline knots, operator nodes over them, and the named outputs the caller
// wants evaluated.
package gridfile

import (
	"github.com/zclconf/go-cty/cty"
)

// hclKnot is one observation inside a series block. The label carries the
// RFC 3339 timestamp, so a knot fits on one line.
type hclKnot struct {
	At    string    `hcl:"at,label"`
	Value cty.Value `hcl:"value"`
}

// hclSeries declares a raw input series with its knots inline.
type hclSeries struct {
	Name  string     `hcl:"name,label"`
	Knots []*hclKnot `hcl:"knot,block"`
}

// hclNode declares one operator over previously declared names. Only the
// attributes an operator actually takes may be set; the builder rejects the
// rest.
type hclNode struct {
	Name      string     `hcl:"name,label"`
	Op        string     `hcl:"op"`
	Inputs    []string   `hcl:"inputs,optional"`
	Window    *int       `hcl:"window,optional"`
	EmitEarly *bool      `hcl:"emit_early,optional"`
	Corrected *bool      `hcl:"corrected,optional"`
	Alignment *string    `hcl:"alignment,optional"`
	Dim       *int       `hcl:"dim,optional"`
	Value     *cty.Value `hcl:"value,optional"`
}

// hclOutput names a declared series or node whose evaluated block the run
// should print.
type hclOutput struct {
	Name string `hcl:"name,label"`
}

// hclGridFile is the top-level structure of a single grid file.
type hclGridFile struct {
	Series  []*hclSeries `hcl:"series,block"`
	Nodes   []*hclNode   `hcl:"node,block"`
	Outputs []*hclOutput `hcl:"output,block"`
}

// Definition is the merged, order-preserving view of every grid file found
// under a path. Declarations from later files append after earlier ones.
type Definition struct {
	Series  []*hclSeries
	Nodes   []*hclNode
	Outputs []string
}
