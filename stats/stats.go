// Package stats provides numerically stable, mergeable accumulators for
// running count, mean, variance, covariance, and N-dimensional covariance
// matrices.
//
// Every accumulator is a count-tagged aggregate with an associative Merge:
// merging the aggregates of two consecutive sample blocks yields the same
// aggregate (up to floating-point associativity) as accumulating the
// concatenated samples directly. This is the generalized parallel/Welford
// formulation; it avoids the catastrophic cancellation that summing raw
// squares would suffer. Associativity is what lets these aggregates back a
// sliding window that silently evicts old contributions.
package stats

// Mean accumulates a running count and arithmetic mean.
type Mean struct {
	N    int64
	Mean float64
}

// MeanOf wraps a single observation.
func MeanOf(x float64) Mean {
	return Mean{N: 1, Mean: x}
}

// Merge combines two mean aggregates. The blend weights each operand's mean
// by its share of the combined count.
func (a Mean) Merge(b Mean) Mean {
	n := a.N + b.N
	na := float64(a.N) / float64(n)
	nb := float64(b.N) / float64(n)
	return Mean{
		N:    n,
		Mean: a.Mean*na + b.Mean*nb,
	}
}

// Value returns the accumulated mean.
func (a Mean) Value() float64 { return a.Mean }

// Defined reports whether at least one sample has been accumulated.
func (a Mean) Defined() bool { return a.N >= 1 }

// Variance accumulates count, mean, and the centered sum of squares S.
type Variance struct {
	N    int64
	Mean float64
	S    float64
}

// VarianceOf wraps a single observation.
func VarianceOf(x float64) Variance {
	return Variance{N: 1, Mean: x}
}

// Merge combines two variance aggregates. S picks up a between-block term
// nb*(mean_b - mean_a)*(mean_b - mean_merged), the Chan et al. update that
// keeps the merge associative and cancellation-free.
func (a Variance) Merge(b Variance) Variance {
	n := a.N + b.N
	na := float64(a.N) / float64(n)
	nb := float64(b.N) / float64(n)
	mean := a.Mean*na + b.Mean*nb
	return Variance{
		N:    n,
		Mean: mean,
		S:    a.S + b.S + float64(b.N)*(b.Mean-a.Mean)*(b.Mean-mean),
	}
}

// Value returns the variance: S/(n-1) when corrected, S/n otherwise.
func (a Variance) Value(corrected bool) float64 {
	if corrected {
		return a.S / float64(a.N-1)
	}
	return a.S / float64(a.N)
}

// Defined reports whether the variance is defined, which needs two samples.
func (a Variance) Defined() bool { return a.N >= 2 }

// Covariance accumulates count, per-input means, and the centered
// cross-product sum C for a pair of jointly observed series.
type Covariance struct {
	N     int64
	MeanX float64
	MeanY float64
	C     float64
}

// CovarianceOf wraps a single joint observation.
func CovarianceOf(x, y float64) Covariance {
	return Covariance{N: 1, MeanX: x, MeanY: y}
}

// Merge combines two covariance aggregates. The cross term pairs b's
// pre-merge x-mean delta with b's y-mean delta against the merged y-mean,
// mirroring the scalar variance update.
func (a Covariance) Merge(b Covariance) Covariance {
	n := a.N + b.N
	na := float64(a.N) / float64(n)
	nb := float64(b.N) / float64(n)
	meanX := a.MeanX*na + b.MeanX*nb
	meanY := a.MeanY*na + b.MeanY*nb
	return Covariance{
		N:     n,
		MeanX: meanX,
		MeanY: meanY,
		C:     a.C + b.C + float64(b.N)*(b.MeanX-a.MeanX)*(b.MeanY-meanY),
	}
}

// Value returns the covariance: C/(n-1) when corrected, C/n otherwise.
func (a Covariance) Value(corrected bool) float64 {
	if corrected {
		return a.C / float64(a.N-1)
	}
	return a.C / float64(a.N)
}

// Defined reports whether the covariance is defined, which needs two samples.
func (a Covariance) Defined() bool { return a.N >= 2 }
