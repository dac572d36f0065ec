// Package graph builds the reference graph over named schemas.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

// DefaultNamespaces are the recognized namespaces, in probe order.
var DefaultNamespaces = []string{"tts", "evi"}

// Fallback records a ref that only resolved to the bare, unprefixed name.
type Fallback struct {
	From   string // source schema key or namespace
	Ref    string
	Target string
}

func (f Fallback) String() string {
	return fmt.Sprintf("%s -> %s resolved to bare %q", f.From, f.Ref, f.Target)
}

// UnknownRefError reports a ref whose target exists under none of the tried names.
type UnknownRefError struct {
	From  string
	Ref   string
	Tried []string
}

func (e *UnknownRefError) Error() string {
	return fmt.Sprintf("unknown ref %q from %s (tried %s)", e.Ref, e.From, strings.Join(e.Tried, ", "))
}

// Resolver maps schema refs to schema keys.
type Resolver struct {
	keys       map[string]struct{}
	namespaces []string
}

// NewResolver returns a Resolver over keys. namespaces defaults to
// DefaultNamespaces.
func NewResolver(keys []string, namespaces []string) *Resolver {
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}
	r := &Resolver{
		keys:       make(map[string]struct{}, len(keys)),
		namespaces: append([]string(nil), namespaces...),
	}
	for _, k := range keys {
		r.keys[k] = struct{}{}
	}
	return r
}

// Resolve returns the key ref points to when seen from namespace. A
// recognized namespace looks in itself first; anything else probes the
// recognized namespaces in order. Both fall back to the bare name, in which
// case fellBack is true. A ref matching nothing is an *UnknownRefError.
func (r *Resolver) Resolve(namespace, ref string) (target string, fellBack bool, err error) {
	name := schema.RefName(ref)
	var tried []string
	if r.recognized(namespace) {
		k := schema.Key(namespace, name)
		if r.has(k) {
			return k, false, nil
		}
		tried = append(tried, k)
	} else {
		for _, ns := range r.namespaces {
			k := schema.Key(ns, name)
			if r.has(k) {
				return k, false, nil
			}
			tried = append(tried, k)
		}
	}
	if r.has(name) {
		return name, true, nil
	}
	tried = append(tried, name)
	return "", false, &UnknownRefError{From: namespace, Ref: ref, Tried: tried}
}

func (r *Resolver) recognized(namespace string) bool {
	for _, ns := range r.namespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}

func (r *Resolver) has(key string) bool {
	_, ok := r.keys[key]
	return ok
}

// Graph is the immutable reference graph of one generation run.
type Graph struct {
	keys      []string
	edges     map[string][]string
	fallbacks []Fallback
	resolver  *Resolver
}

// Build walks every named schema and adds an edge to each schema one of its
// ref nodes points at.
func Build(schemas map[string]*schema.Schema, r *Resolver) (*Graph, error) {
	g := &Graph{
		edges:    make(map[string][]string, len(schemas)),
		resolver: r,
	}
	for k := range schemas {
		g.keys = append(g.keys, k)
	}
	sort.Strings(g.keys)

	for _, key := range g.keys {
		namespace, _ := schema.SplitKey(key)
		targets := make(map[string]struct{})
		for _, node := range schema.Refs(schemas[key]) {
			target, fellBack, err := r.Resolve(namespace, node.Ref)
			if err != nil {
				if ue, ok := err.(*UnknownRefError); ok {
					ue.From = key
				}
				return nil, err
			}
			if fellBack {
				g.fallbacks = append(g.fallbacks, Fallback{From: key, Ref: node.Ref, Target: target})
			}
			targets[target] = struct{}{}
		}
		refs := make([]string, 0, len(targets))
		for t := range targets {
			refs = append(refs, t)
		}
		sort.Strings(refs)
		g.edges[key] = refs
	}
	return g, nil
}

// Keys returns every node in ascending order.
func (g *Graph) Keys() []string { return append([]string(nil), g.keys...) }

// Refs returns the sorted targets of key.
func (g *Graph) Refs(key string) []string { return append([]string(nil), g.edges[key]...) }

// Fallbacks returns the refs that resolved to a bare name while building.
func (g *Graph) Fallbacks() []Fallback { return append([]Fallback(nil), g.fallbacks...) }

// Resolve resolves ref from namespace with the resolver the graph was built with.
func (g *Graph) Resolve(namespace, ref string) (string, bool, error) {
	return g.resolver.Resolve(namespace, ref)
}

// Has reports whether key is a node.
func (g *Graph) Has(key string) bool {
	_, ok := g.edges[key]
	return ok
}
