// Package window maintains the running combine of the most recent W pushed
// items for an arbitrary associative binary operator, in O(1) amortized time
// per push and O(1) worst-case per query.
//
// The operator is not assumed to be commutative or invertible, so the usual
// "subtract the evicted element" trick is unavailable. Instead the combiner
// keeps two stacks, front and back, each storing a running combine alongside
// every raw element. New elements are pushed onto back; evictions pop from
// front; when front runs dry the whole of back is migrated into front in
// reverse, re-deriving the running combines from the new base. Each element
// is migrated at most once, which is where the amortized bound comes from.
package window

import "fmt"

// entry pairs a raw element with the running combine of its stack from the
// stack's base up to and including this element.
type entry[T any] struct {
	raw T
	agg T
}

// Combiner holds the most recent Size pushed elements and reports their
// combine in original push order. It is not safe for concurrent use.
type Combiner[T any] struct {
	combine func(T, T) T
	size    int

	// front holds the older half of the window; its top is the oldest live
	// element, and each agg is the combine of that element through the
	// oldest-to-newest run of front.
	front []entry[T]
	// back holds the newer half in arrival order; each agg is the combine
	// of back's base through that element.
	back []entry[T]
}

// New creates a Combiner for the given window size and associative combine
// function. Size must be at least 1.
func New[T any](size int, combine func(T, T) T) (*Combiner[T], error) {
	if size < 1 {
		return nil, fmt.Errorf("window size must be at least 1, got %d", size)
	}
	if combine == nil {
		return nil, fmt.Errorf("combine function must not be nil")
	}
	return &Combiner[T]{combine: combine, size: size}, nil
}

// Size returns the configured window size W.
func (c *Combiner[T]) Size() int { return c.size }

// Len returns the number of elements currently held, at most Size.
func (c *Combiner[T]) Len() int { return len(c.front) + len(c.back) }

// Full reports whether the combiner holds exactly Size elements.
func (c *Combiner[T]) Full() bool { return c.Len() == c.size }

// Push appends v as the newest element, evicting the oldest element first if
// the window is already full.
func (c *Combiner[T]) Push(v T) {
	if c.Len() == c.size {
		c.evict()
	}
	agg := v
	if n := len(c.back); n > 0 {
		agg = c.combine(c.back[n-1].agg, v)
	}
	c.back = append(c.back, entry[T]{raw: v, agg: agg})
}

// evict drops the oldest element, migrating back into front first if needed.
func (c *Combiner[T]) evict() {
	if len(c.front) == 0 {
		// Rebuild front from back in reverse so that the top of front is
		// the oldest element. Combining raw-before-agg preserves the
		// original ordering for non-commutative operators: each migrated
		// agg is combine(element, everything newer already in front).
		for i := len(c.back) - 1; i >= 0; i-- {
			raw := c.back[i].raw
			agg := raw
			if n := len(c.front); n > 0 {
				agg = c.combine(raw, c.front[n-1].agg)
			}
			c.front = append(c.front, entry[T]{raw: raw, agg: agg})
		}
		c.back = c.back[:0]
	}
	c.front = c.front[:len(c.front)-1]
}

// Value returns the combine of all currently-held elements in original push
// order, front contributions first. The second return is false when the
// combiner is empty.
func (c *Combiner[T]) Value() (T, bool) {
	nf, nb := len(c.front), len(c.back)
	switch {
	case nf == 0 && nb == 0:
		var zero T
		return zero, false
	case nf == 0:
		return c.back[nb-1].agg, true
	case nb == 0:
		return c.front[nf-1].agg, true
	default:
		return c.combine(c.front[nf-1].agg, c.back[nb-1].agg), true
	}
}
