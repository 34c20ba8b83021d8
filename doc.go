// Package timedag builds and incrementally evaluates computation graphs
// over time-series data.
//
// A series is a run of knots: strictly time-increasing (timestamp, value)
// observations. Graph vertices are immutable nodes pairing an ordered
// parent list with an operation descriptor; construction goes through a
// weak hash-consing identity map, so structurally identical subgraphs share
// one instance without the map ever keeping a node alive. Operators are
// evaluated incrementally: each node turns a stream of aligned input values
// into a stream of optional output values, and outputs never depend on
// future inputs.
//
// Statistical operators (mean, variance, covariance, covariance matrices)
// are built from numerically stable associative accumulators (package
// stats); their windowed counterparts run on an O(1)-amortized sliding
// combiner for non-commutative associative operators (package window).
package timedag
