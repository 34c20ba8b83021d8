package timedag

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"weak"
)

// IdentityMap deduplicates node construction: at most one live node exists
// per distinct (parents-by-identity, descriptor-by-value) pair at any
// instant. The map holds only weak references, so it never extends a node's
// lifetime; ownership stays with whatever graph-construction code retains
// the node. A cleanup attached to every minted node raises a dirty flag, and
// stale entries are swept opportunistically on the next lookup.
type IdentityMap struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[Node]
	dirty   atomic.Bool
}

// NewIdentityMap creates an empty identity map.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{entries: make(map[string]weak.Pointer[Node])}
}

// lookupKey derives the weak lookup key for a construction request: the
// descriptor's value identity plus each parent's pointer identity. Two keys
// are equal iff the parents are pairwise the same instances and the
// descriptors are value-equal.
func lookupKey(parents []*Node, op NodeOp) string {
	var sb strings.Builder
	sb.WriteString(op.Key())
	sb.WriteByte('(')
	for i, p := range parents {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%p", p)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Obtain returns the canonical node for the given parents and descriptor,
// minting one if no live instance exists. It cannot fail.
func (m *IdentityMap) Obtain(parents []*Node, op NodeOp) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirty.Swap(false) {
		m.sweepLocked()
	}

	key := lookupKey(parents, op)
	if wp, ok := m.entries[key]; ok {
		// Re-validate right before returning: the node may have been
		// reclaimed between the sweep and now.
		if n := wp.Value(); n != nil {
			return n
		}
	}

	n := newNode(parents, op)
	runtime.AddCleanup(n, func(m *IdentityMap) { m.dirty.Store(true) }, m)
	m.entries[key] = weak.Make(n)
	return n
}

// Len reports the number of entries whose node is still alive, sweeping
// first if a collection has been signalled since the last pass.
func (m *IdentityMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty.Swap(false) {
		m.sweepLocked()
	}
	return len(m.entries)
}

// sweepLocked removes entries whose node has been reclaimed. Callers hold mu.
func (m *IdentityMap) sweepLocked() {
	for key, wp := range m.entries {
		if wp.Value() == nil {
			delete(m.entries, key)
		}
	}
}

var (
	defaultMapMu sync.Mutex
	defaultMap   *IdentityMap
)

// DefaultIdentityMap returns the process-wide identity map, creating it on
// first use. All node constructors in this package go through it.
func DefaultIdentityMap() *IdentityMap {
	defaultMapMu.Lock()
	defer defaultMapMu.Unlock()
	if defaultMap == nil {
		defaultMap = NewIdentityMap()
	}
	return defaultMap
}

// SwapDefaultIdentityMap replaces the process-wide identity map and returns
// the previous one. Intended for tests that need construction isolation.
func SwapDefaultIdentityMap(m *IdentityMap) *IdentityMap {
	defaultMapMu.Lock()
	defer defaultMapMu.Unlock()
	prev := defaultMap
	defaultMap = m
	return prev
}

// Obtain returns the canonical node for (parents, op) from the process-wide
// identity map. It is the sole sanctioned way to construct a Node.
func Obtain(parents []*Node, op NodeOp) *Node {
	return DefaultIdentityMap().Obtain(parents, op)
}
