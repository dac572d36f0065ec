package analysis

import (
	"github.com/mark3labs/swiftsdkgen/internal/graph"
)

// Direction says which way a schema travels between client and server.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
	Both     Direction = "both"
	// Orphaned is never seeded; it marks schemas no endpoint or channel reaches.
	Orphaned Direction = "orphaned"
)

// joinDirection: unequal directions become both, and both absorbs.
func joinDirection(prev, pushed Direction) Direction {
	if prev == pushed {
		return prev
	}
	return Both
}

func (r Root) direction() Direction {
	switch r.Role {
	case RoleRequest, RolePublish:
		return Sent
	default:
		return Received
	}
}

// Directions seeds every root and propagates to a fixpoint. Schemas never
// reached are orphaned.
func Directions(g *graph.Graph, roots []Root) map[string]Direction {
	seeds := make(map[string]Direction)
	for _, r := range roots {
		seed(seeds, r.Key, r.direction(), joinDirection)
	}
	facts := Propagate(g, seeds, joinDirection)
	for _, key := range g.Keys() {
		if _, ok := facts[key]; !ok {
			facts[key] = Orphaned
		}
	}
	return facts
}
