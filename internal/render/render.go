// Package render turns the classified model and its analysis facts into
// Swift source files. Parameter orders are stabilized against a recorded
// baseline so regeneration does not reshuffle public signatures.
package render

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/analysis"
	"github.com/mark3labs/swiftsdkgen/internal/graph"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

// Target is the top-level SDK directory a file belongs to.
type Target string

const (
	ClientTarget Target = "Client"
	ServerTarget Target = "Server"
)

// Options configures a Renderer.
type Options struct {
	// ServerOnly places resource methods for matching endpoint paths under
	// the server target. Nil keeps every method in the client target.
	ServerOnly func(path string) bool
}

// Files maps slash-separated paths, relative to the output directory, to
// file contents.
type Files map[string][]byte

// Paths returns the file paths in ascending order.
func (f Files) Paths() []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (f Files) add(p string, content []byte) error {
	if _, dup := f[p]; dup {
		return fmt.Errorf("render: %s generated twice", p)
	}
	f[p] = content
	return nil
}

// Renderer renders one generation run.
type Renderer struct {
	model     *schema.Model
	graph     *graph.Graph
	facts     *analysis.Result
	orderings *OrderingState
	opts      Options
}

func New(m *schema.Model, g *graph.Graph, facts *analysis.Result, orderings *OrderingState, opts Options) *Renderer {
	if orderings == nil {
		orderings = NewOrderingState(nil)
	}
	return &Renderer{model: m, graph: g, facts: facts, orderings: orderings, opts: opts}
}

// Orderings returns the state the renderer stabilizes against.
func (r *Renderer) Orderings() *OrderingState { return r.orderings }

// Render renders every generated schema and every resource. Ordering
// drift does not fail Render; check Orderings().Err() afterwards.
func (r *Renderer) Render() (Files, error) {
	files := make(Files)
	for _, key := range r.model.SchemaKeys() {
		p, content, err := r.renderSchema(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if p == "" {
			continue
		}
		if err := files.add(p, content); err != nil {
			return nil, err
		}
	}
	if err := r.renderResources(files); err != nil {
		return nil, err
	}
	return files, nil
}

// ModelPath returns where the schema stored under key is written, or "" when
// it is not generated.
func (r *Renderer) ModelPath(key string) string {
	s := r.model.Schemas[key]
	if s == nil || s.Kind == schema.Ignored || r.facts.Direction[key] == analysis.Orphaned {
		return ""
	}
	target := ServerTarget
	if r.facts.Availability[key] == analysis.Full {
		target = ClientTarget
	}
	namespace, _ := schema.SplitKey(key)
	return path.Join(string(target), namespaceDir(namespace), "Models", r.typeName(s)+".swift")
}

func (r *Renderer) renderSchema(key string) (string, []byte, error) {
	p := r.ModelPath(key)
	if p == "" {
		return "", nil, nil
	}
	s := r.model.Schemas[key]
	namespace, _ := schema.SplitKey(key)
	body, err := r.definition(namespace, r.typeName(s), s, r.facts.Direction[key])
	if err != nil {
		return "", nil, err
	}
	return p, append([]byte("import Foundation\n\n"), body...), nil
}

// typeName is the Swift name of a named schema.
func (r *Renderer) typeName(s *schema.Schema) string {
	return pascal(s.DisplayName())
}

// refTarget resolves a ref node seen from namespace to its named schema.
func (r *Renderer) refTarget(namespace, ref string) (*schema.Schema, error) {
	key, _, err := r.graph.Resolve(namespace, ref)
	if err != nil {
		return nil, err
	}
	target := r.model.Schemas[key]
	if target == nil {
		return nil, fmt.Errorf("no schema stored under %s", key)
	}
	return target, nil
}

// uniqueNames hands out identifiers that are unique within one scope.
type uniqueNames map[string]int

func (u uniqueNames) take(name string) string {
	u[name]++
	if n := u[name]; n > 1 {
		return escapeKeyword(fmt.Sprintf("%s%d", bare(name), n))
	}
	return name
}

func optional(typ string) string {
	if strings.HasSuffix(typ, "?") {
		return typ
	}
	return typ + "?"
}
