package timedag

import (
	"fmt"

	"github.com/invenia/timedag/stats"
	"github.com/zclconf/go-cty/cty"
)

// asFloat asserts a scalar knot value. Value types are checked statically at
// construction, so a mismatch here means a source fed mistyped values.
func asFloat(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		panic(fmt.Sprintf("timedag: expected float64 knot value, got %T", v))
	}
	return f
}

func asFloats(v any) []float64 {
	fs, ok := v.([]float64)
	if !ok {
		panic(fmt.Sprintf("timedag: expected []float64 knot value, got %T", v))
	}
	return fs
}

// --- behavior tables, one per statistic ---

func sumTable() accTable[float64] {
	return accTable[float64]{
		wrap:    func(vs []any) float64 { return asFloat(vs[0]) },
		combine: func(a, b float64) float64 { return a + b },
		extract: func(a float64) any { return a },
	}
}

func prodTable() accTable[float64] {
	return accTable[float64]{
		wrap:    func(vs []any) float64 { return asFloat(vs[0]) },
		combine: func(a, b float64) float64 { return a * b },
		extract: func(a float64) any { return a },
	}
}

func meanTable() accTable[stats.Mean] {
	return accTable[stats.Mean]{
		wrap:    func(vs []any) stats.Mean { return stats.MeanOf(asFloat(vs[0])) },
		combine: stats.Mean.Merge,
		extract: func(a stats.Mean) any { return a.Value() },
		defined: stats.Mean.Defined,
	}
}

func varTable(corrected bool) accTable[stats.Variance] {
	return accTable[stats.Variance]{
		wrap:    func(vs []any) stats.Variance { return stats.VarianceOf(asFloat(vs[0])) },
		combine: stats.Variance.Merge,
		extract: func(a stats.Variance) any { return a.Value(corrected) },
		defined: stats.Variance.Defined,
	}
}

func covTable(corrected bool) accTable[stats.Covariance] {
	return accTable[stats.Covariance]{
		wrap:    func(vs []any) stats.Covariance { return stats.CovarianceOf(asFloat(vs[0]), asFloat(vs[1])) },
		combine: stats.Covariance.Merge,
		extract: func(a stats.Covariance) any { return a.Value(corrected) },
		defined: stats.Covariance.Defined,
	}
}

func covMatrixTable(dim int, corrected bool) accTable[stats.CovMatrix] {
	return accTable[stats.CovMatrix]{
		wrap:    func(vs []any) stats.CovMatrix { return stats.CovMatrixOf(asFloats(vs[0]), dim) },
		combine: stats.CovMatrix.Merge,
		extract: func(a stats.CovMatrix) any { return a.Value(corrected) },
		defined: stats.CovMatrix.Defined,
	}
}

// --- construction-time validation helpers ---

// isConstant reports whether a node is provably constant-valued, in which
// case dispersion statistics over it are rejected at construction.
func isConstant(n *Node) bool {
	_, ok := n.op.(*constOp)
	return ok
}

func checkParents(opName string, parents ...*Node) error {
	for i, p := range parents {
		if p == nil {
			return fmt.Errorf("%s: parent %d is nil", opName, i)
		}
	}
	return nil
}

func checkNumericParents(m opMeta, parents ...*Node) error {
	pts := make([]cty.Type, len(parents))
	for i, p := range parents {
		pts[i] = p.ValueType()
	}
	_, err := m.ValueType(pts...)
	return err
}

func checkDispersion(opName string, parents ...*Node) error {
	for _, p := range parents {
		if isConstant(p) {
			return fmt.Errorf("%s of a constant-valued series is undefined; refusing to build the node", opName)
		}
	}
	return nil
}

func checkWindow(opName string, size, min int) error {
	if size < min {
		return fmt.Errorf("%s requires a window of at least %d, got %d", opName, min, size)
	}
	return nil
}

func obtainChecked[A any](meta opMeta, table accTable[A], parents ...*Node) (*Node, error) {
	if err := checkParents(meta.key, parents...); err != nil {
		return nil, err
	}
	if err := checkNumericParents(meta, parents...); err != nil {
		return nil, err
	}
	return Obtain(parents, &inceptionOp[A]{opMeta: meta, table: table}), nil
}

func obtainWindowed[A any](meta opMeta, table accTable[A], size int, emitEarly bool, parents ...*Node) (*Node, error) {
	if err := checkParents(meta.key, parents...); err != nil {
		return nil, err
	}
	if err := checkNumericParents(meta, parents...); err != nil {
		return nil, err
	}
	return Obtain(parents, &windowOp[A]{opMeta: meta, table: table, size: size, emitEarly: emitEarly}), nil
}

func scalarMeta(key string, nParent int, align Alignment) opMeta {
	return opMeta{key: key, nParent: nParent, inType: cty.Number, outType: cty.Number, align: align}
}

func windowKey(name string, size int, emitEarly bool, extra string) string {
	return fmt.Sprintf("window_%s{w=%d,early=%t%s}", name, size, emitEarly, extra)
}

// --- inception operators ---

// Sum returns the node carrying the running sum of x since inception.
func Sum(x *Node) (*Node, error) {
	return obtainChecked(scalarMeta("sum", 1, Union), sumTable(), x)
}

// Prod returns the node carrying the running product of x since inception.
func Prod(x *Node) (*Node, error) {
	return obtainChecked(scalarMeta("prod", 1, Union), prodTable(), x)
}

// Mean returns the node carrying the running arithmetic mean of x.
func Mean(x *Node) (*Node, error) {
	return obtainChecked(scalarMeta("mean", 1, Union), meanTable(), x)
}

// Var returns the node carrying the running variance of x. It emits nothing
// until two samples have been seen. Requesting the variance of a constant
// node fails here, at construction.
func Var(x *Node, corrected bool) (*Node, error) {
	if x != nil {
		if err := checkDispersion("variance", x); err != nil {
			return nil, err
		}
	}
	key := fmt.Sprintf("var{corrected=%t}", corrected)
	return obtainChecked(scalarMeta(key, 1, Union), varTable(corrected), x)
}

// Cov returns the node carrying the running covariance of x and y, fed
// according to the given alignment policy. It emits nothing until two joint
// samples have been seen.
func Cov(x, y *Node, alignment Alignment, corrected bool) (*Node, error) {
	if x != nil && y != nil {
		if err := checkDispersion("covariance", x, y); err != nil {
			return nil, err
		}
	}
	key := fmt.Sprintf("cov{corrected=%t,align=%s}", corrected, alignment)
	return obtainChecked(scalarMeta(key, 2, alignment), covTable(corrected), x, y)
}

// CovMatrix returns the node carrying the running covariance matrix of a
// vector-valued series of fixed dimension dim.
func CovMatrix(x *Node, dim int, corrected bool) (*Node, error) {
	if dim < 1 {
		return nil, fmt.Errorf("covariance matrix dimension must be at least 1, got %d", dim)
	}
	if x != nil {
		if err := checkDispersion("covariance matrix", x); err != nil {
			return nil, err
		}
	}
	meta := opMeta{
		key:     fmt.Sprintf("cov_matrix{dim=%d,corrected=%t}", dim, corrected),
		nParent: 1,
		inType:  cty.List(cty.Number),
		outType: cty.List(cty.List(cty.Number)),
		align:   Union,
	}
	return obtainChecked(meta, covMatrixTable(dim, corrected), x)
}

// --- windowed operators ---

// WindowSum returns the node carrying the sum of the most recent size knots
// of x.
func WindowSum(x *Node, size int, emitEarly bool) (*Node, error) {
	if err := checkWindow("window sum", size, 1); err != nil {
		return nil, err
	}
	meta := scalarMeta(windowKey("sum", size, emitEarly, ""), 1, Union)
	return obtainWindowed(meta, sumTable(), size, emitEarly, x)
}

// WindowProd returns the node carrying the product of the most recent size
// knots of x.
func WindowProd(x *Node, size int, emitEarly bool) (*Node, error) {
	if err := checkWindow("window product", size, 1); err != nil {
		return nil, err
	}
	meta := scalarMeta(windowKey("prod", size, emitEarly, ""), 1, Union)
	return obtainWindowed(meta, prodTable(), size, emitEarly, x)
}

// WindowMean returns the node carrying the mean of the most recent size
// knots of x.
func WindowMean(x *Node, size int, emitEarly bool) (*Node, error) {
	if err := checkWindow("window mean", size, 1); err != nil {
		return nil, err
	}
	meta := scalarMeta(windowKey("mean", size, emitEarly, ""), 1, Union)
	return obtainWindowed(meta, meanTable(), size, emitEarly, x)
}

// WindowVar returns the node carrying the variance of the most recent size
// knots of x. Windows below 2 cannot define a variance and are rejected at
// construction.
func WindowVar(x *Node, size int, corrected, emitEarly bool) (*Node, error) {
	if err := checkWindow("window variance", size, 2); err != nil {
		return nil, err
	}
	if x != nil {
		if err := checkDispersion("variance", x); err != nil {
			return nil, err
		}
	}
	extra := fmt.Sprintf(",corrected=%t", corrected)
	meta := scalarMeta(windowKey("var", size, emitEarly, extra), 1, Union)
	return obtainWindowed(meta, varTable(corrected), size, emitEarly, x)
}

// WindowCov returns the node carrying the covariance of the most recent
// size joint samples of x and y.
func WindowCov(x, y *Node, size int, alignment Alignment, corrected, emitEarly bool) (*Node, error) {
	if err := checkWindow("window covariance", size, 2); err != nil {
		return nil, err
	}
	if x != nil && y != nil {
		if err := checkDispersion("covariance", x, y); err != nil {
			return nil, err
		}
	}
	extra := fmt.Sprintf(",corrected=%t,align=%s", corrected, alignment)
	meta := scalarMeta(windowKey("cov", size, emitEarly, extra), 2, alignment)
	return obtainWindowed(meta, covTable(corrected), size, emitEarly, x, y)
}

// WindowCovMatrix returns the node carrying the covariance matrix of the
// most recent size vector samples of x.
func WindowCovMatrix(x *Node, dim, size int, corrected, emitEarly bool) (*Node, error) {
	if dim < 1 {
		return nil, fmt.Errorf("covariance matrix dimension must be at least 1, got %d", dim)
	}
	if err := checkWindow("window covariance matrix", size, 2); err != nil {
		return nil, err
	}
	if x != nil {
		if err := checkDispersion("covariance matrix", x); err != nil {
			return nil, err
		}
	}
	meta := opMeta{
		key:     windowKey("cov_matrix", size, emitEarly, fmt.Sprintf(",dim=%d,corrected=%t", dim, corrected)),
		nParent: 1,
		inType:  cty.List(cty.Number),
		outType: cty.List(cty.List(cty.Number)),
		align:   Union,
	}
	return obtainWindowed(meta, covMatrixTable(dim, corrected), size, emitEarly, x)
}
