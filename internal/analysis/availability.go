package analysis

import (
	"fmt"
	"regexp"

	"github.com/mark3labs/swiftsdkgen/internal/graph"
)

// Availability says whether a schema is generated for client SDK consumers
// or only for the server side.
type Availability string

const (
	ServerOnly Availability = "serverOnly"
	Full       Availability = "full"
)

// DefaultServerOnlyPaths marks configuration endpoints as server side.
var DefaultServerOnlyPaths = []string{"/configs"}

// ServerOnlyPaths compiles patterns into a path predicate. A path matches
// when any pattern matches a substring of it. An empty list matches nothing.
func ServerOnlyPaths(patterns []string) (func(path string) bool, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("server-only path %q: %w", p, err)
		}
		res = append(res, re)
	}
	return func(path string) bool {
		for _, re := range res {
			if re.MatchString(path) {
				return true
			}
		}
		return false
	}, nil
}

// joinAvailability: full wins.
func joinAvailability(prev, pushed Availability) Availability {
	if prev == Full || pushed == Full {
		return Full
	}
	return ServerOnly
}

func (r Root) availability() Availability {
	if r.ServerOnly && !r.Channel() {
		return ServerOnly
	}
	return Full
}

// Availabilities seeds every root and propagates to a fixpoint. Schemas
// never reached are server only.
func Availabilities(g *graph.Graph, roots []Root) map[string]Availability {
	seeds := make(map[string]Availability)
	for _, r := range roots {
		seed(seeds, r.Key, r.availability(), joinAvailability)
	}
	facts := Propagate(g, seeds, joinAvailability)
	for _, key := range g.Keys() {
		if _, ok := facts[key]; !ok {
			facts[key] = ServerOnly
		}
	}
	return facts
}
