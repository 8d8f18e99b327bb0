// Package dag orders tasks by their "runs after" relations.
//
// Tasks that do not depend on each other keep the order they were added in,
// so a declared task list is also its own tie-break.
package dag

import (
	"fmt"
	"slices"
)

// CycleError reports a dependency cycle. Path starts and ends with the same key.
type CycleError[K comparable] struct {
	Path []K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// Graph holds keyed values and the edges between them.
// The zero value is not usable; call New.
type Graph[K comparable, V any] struct {
	values     map[K]V
	index      map[K]int // position in insertion order
	keys       []K
	deps       map[K][]K // key -> keys that must come first
	dependents map[K][]K // key -> keys that come after
}

// New returns an empty graph.
func New[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{
		values:     make(map[K]V),
		index:      make(map[K]int),
		deps:       make(map[K][]K),
		dependents: make(map[K][]K),
	}
}

// Add inserts a key. Adding a key twice is an error.
func (g *Graph[K, V]) Add(key K, value V) error {
	if _, ok := g.values[key]; ok {
		return fmt.Errorf("duplicate node %v", key)
	}
	g.values[key] = value
	g.index[key] = len(g.keys)
	g.keys = append(g.keys, key)
	return nil
}

// Link records that first must come before then. Repeated links are ignored.
func (g *Graph[K, V]) Link(first, then K) error {
	if _, ok := g.values[first]; !ok {
		return fmt.Errorf("unknown node %v", first)
	}
	if _, ok := g.values[then]; !ok {
		return fmt.Errorf("unknown node %v", then)
	}
	if first == then {
		return fmt.Errorf("node %v cannot depend on itself", first)
	}
	if slices.Contains(g.deps[then], first) {
		return nil
	}
	g.deps[then] = append(g.deps[then], first)
	g.dependents[first] = append(g.dependents[first], then)
	return nil
}

// Value returns the value stored for key.
func (g *Graph[K, V]) Value(key K) (V, bool) {
	v, ok := g.values[key]
	return v, ok
}

// Deps returns the direct dependencies of key.
func (g *Graph[K, V]) Deps(key K) []K { return g.deps[key] }

// Dependents returns the keys that directly depend on key.
func (g *Graph[K, V]) Dependents(key K) []K { return g.dependents[key] }

// Len returns the number of nodes.
func (g *Graph[K, V]) Len() int { return len(g.keys) }

// Edges returns the number of links.
func (g *Graph[K, V]) Edges() int {
	n := 0
	for _, d := range g.deps {
		n += len(d)
	}
	return n
}

// FindCycle returns one dependency cycle, or nil.
func (g *Graph[K, V]) FindCycle() []K {
	const (
		unseen = iota
		open
		done
	)
	state := make(map[K]int, len(g.keys))
	var stack []K

	var walk func(k K) []K
	walk = func(k K) []K {
		state[k] = open
		stack = append(stack, k)
		for _, next := range g.dependents[k] {
			switch state[next] {
			case open:
				start := slices.Index(stack, next)
				return append(slices.Clone(stack[start:]), next)
			case unseen:
				if c := walk(next); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[k] = done
		return nil
	}

	for _, k := range g.keys {
		if state[k] == unseen {
			if c := walk(k); c != nil {
				return c
			}
		}
	}
	return nil
}

// Sort returns every key with dependencies first. Among keys whose
// dependencies are satisfied, the earliest added comes first.
func (g *Graph[K, V]) Sort() ([]K, error) {
	if c := g.FindCycle(); c != nil {
		return nil, &CycleError[K]{Path: c}
	}

	pending := make(map[K]int, len(g.keys))
	var ready []K
	for _, k := range g.keys {
		pending[k] = len(g.deps[k])
		if pending[k] == 0 {
			ready = append(ready, k)
		}
	}

	out := make([]K, 0, len(g.keys))
	for len(ready) > 0 {
		next := slices.MinFunc(ready, func(a, b K) int { return g.index[a] - g.index[b] })
		ready = slices.DeleteFunc(ready, func(k K) bool { return k == next })
		out = append(out, next)
		for _, d := range g.dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return out, nil
}

// SortedValues returns the values in Sort order.
func (g *Graph[K, V]) SortedValues() ([]V, error) {
	keys, err := g.Sort()
	if err != nil {
		return nil, err
	}
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = g.values[k]
	}
	return out, nil
}

// Ancestors returns every key that key depends on, directly or not, in Sort order.
func (g *Graph[K, V]) Ancestors(key K) []K {
	seen := make(map[K]bool)
	queue := slices.Clone(g.deps[key])
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if seen[k] {
			continue
		}
		seen[k] = true
		queue = append(queue, g.deps[k]...)
	}

	sorted, err := g.Sort()
	if err != nil {
		return nil
	}
	return slices.DeleteFunc(sorted, func(k K) bool { return !seen[k] })
}

// Roots returns the keys without dependencies, in insertion order.
func (g *Graph[K, V]) Roots() []K {
	var roots []K
	for _, k := range g.keys {
		if len(g.deps[k]) == 0 {
			roots = append(roots, k)
		}
	}
	return roots
}
