package analysis

import (
	"github.com/mark3labs/swiftsdkgen/internal/graph"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

// Options configures Run.
type Options struct {
	// ServerOnly reports whether an endpoint path is restricted to the
	// server side. Nil treats every endpoint as client facing.
	ServerOnly func(path string) bool
}

// Result holds the final facts of both analyses for every schema key.
type Result struct {
	Roots        []Root
	Availability map[string]Availability
	Direction    map[string]Direction
	// Fallbacks lists refs under endpoints and channels that only
	// resolved by bare name.
	Fallbacks []graph.Fallback
}

// Run collects the roots of m and runs both analyses over g.
func Run(m *schema.Model, g *graph.Graph, opts Options) (*Result, error) {
	roots, fallbacks, err := CollectRoots(m, g, opts.ServerOnly)
	if err != nil {
		return nil, err
	}
	return &Result{
		Roots:        roots,
		Availability: Availabilities(g, roots),
		Direction:    Directions(g, roots),
		Fallbacks:    fallbacks,
	}, nil
}
