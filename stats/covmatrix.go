package stats

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CovMatrix accumulates count, a vector mean, and a centered outer-product
// accumulator for fixed-dimension vector observations. Merge never mutates
// its operands; aggregates may be shared freely between window stacks.
type CovMatrix struct {
	N    int64
	Mean *mat.VecDense
	C    *mat.Dense
}

// CovMatrixOf wraps a single vector observation of dimension dim.
func CovMatrixOf(x []float64, dim int) CovMatrix {
	if len(x) != dim {
		panic(fmt.Sprintf("stats: observation has dimension %d, accumulator expects %d", len(x), dim))
	}
	return CovMatrix{
		N:    1,
		Mean: mat.NewVecDense(dim, append([]float64(nil), x...)),
		C:    mat.NewDense(dim, dim, nil),
	}
}

// Dim returns the dimension of the accumulated vectors.
func (a CovMatrix) Dim() int { return a.Mean.Len() }

// Merge combines two covariance-matrix aggregates. The mean is blended
// per-component exactly as in the scalar case, and C picks up
// outer(mean_b - mean_a, mean_b - mean_merged) * nb.
func (a CovMatrix) Merge(b CovMatrix) CovMatrix {
	dim := a.Dim()
	if b.Dim() != dim {
		panic(fmt.Sprintf("stats: cannot merge covariance aggregates of dimension %d and %d", dim, b.Dim()))
	}
	n := a.N + b.N
	na := float64(a.N) / float64(n)
	nb := float64(b.N) / float64(n)

	mean := mat.NewVecDense(dim, nil)
	mean.AddScaledVec(mean, na, a.Mean)
	mean.AddScaledVec(mean, nb, b.Mean)

	// dPre = mean_b - mean_a, dPost = mean_b - mean_merged.
	dPre := mat.NewVecDense(dim, nil)
	dPre.SubVec(b.Mean, a.Mean)
	dPost := mat.NewVecDense(dim, nil)
	dPost.SubVec(b.Mean, mean)

	c := mat.NewDense(dim, dim, nil)
	c.Outer(float64(b.N), dPre, dPost)
	c.Add(c, a.C)
	c.Add(c, b.C)

	return CovMatrix{N: n, Mean: mean, C: c}
}

// Value returns the covariance matrix: C/(n-1) when corrected, C/n otherwise.
// The returned matrix is freshly allocated.
func (a CovMatrix) Value(corrected bool) *mat.Dense {
	div := float64(a.N)
	if corrected {
		div = float64(a.N - 1)
	}
	dim := a.Dim()
	out := mat.NewDense(dim, dim, nil)
	out.Scale(1/div, a.C)
	return out
}

// Defined reports whether the matrix is defined, which needs two samples.
func (a CovMatrix) Defined() bool { return a.N >= 2 }
