// Package analysis computes per-schema availability and direction by
// seeding facts at endpoints and channels and propagating them along the
// reference graph to a fixpoint.
package analysis

import (
	"github.com/mark3labs/swiftsdkgen/internal/graph"
)

// Propagate pushes every known fact onto the schemas its key references,
// combining with join on conflict, until a full pass over the keys in
// sorted order changes nothing. join must be monotone over a finite lattice.
// seeds is not modified.
func Propagate[T comparable](g *graph.Graph, seeds map[string]T, join func(prev, pushed T) T) map[string]T {
	facts := make(map[string]T, len(seeds))
	for k, v := range seeds {
		facts[k] = v
	}
	keys := g.Keys()
	for changed := true; changed; {
		changed = false
		for _, key := range keys {
			v, ok := facts[key]
			if !ok {
				continue
			}
			for _, ref := range g.Refs(key) {
				prev, ok := facts[ref]
				if !ok {
					facts[ref] = v
					changed = true
					continue
				}
				if next := join(prev, v); next != prev {
					facts[ref] = next
					changed = true
				}
			}
		}
	}
	return facts
}

// seed records v for key, joining with an earlier seed of the same key.
func seed[T comparable](seeds map[string]T, key string, v T, join func(prev, pushed T) T) {
	if prev, ok := seeds[key]; ok {
		v = join(prev, v)
	}
	seeds[key] = v
}
