package analysis

import (
	"fmt"

	"github.com/mark3labs/swiftsdkgen/internal/graph"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

// Role is how a root schema is used where it was found.
type Role string

const (
	RoleRequest   Role = "request"   // parameter or request body
	RoleResponse  Role = "response"  // JSON or binary response
	RolePublish   Role = "publish"   // channel message sent by the client
	RoleSubscribe Role = "subscribe" // channel message received by the client
)

// Root is one named schema touched directly by an endpoint or channel.
type Root struct {
	Key    string
	Source string // endpoint ID or channel name
	Role   Role
	// ServerOnly is set for roots found under a server-restricted endpoint.
	ServerOnly bool
}

// Channel reports whether the root came from a channel message.
func (r Root) Channel() bool { return r.Role == RolePublish || r.Role == RoleSubscribe }

// CollectRoots walks every non-ignored endpoint and every channel of m and
// returns the named schemas they touch. A node with a schema key counts as
// that key; a ref node counts as its resolved target.
func CollectRoots(m *schema.Model, g *graph.Graph, serverOnly func(path string) bool) ([]Root, []graph.Fallback, error) {
	c := &collector{model: m, graph: g}
	for _, ep := range m.Endpoints {
		if ep.Ignored {
			continue
		}
		restricted := serverOnly != nil && serverOnly(ep.Path)
		add := func(s *schema.Schema, role Role) error {
			return c.walk(ep.Namespace, ep.ID(), s, role, restricted)
		}
		for _, p := range ep.Parameters {
			if err := add(p.Schema, RoleRequest); err != nil {
				return nil, nil, err
			}
		}
		if err := add(ep.RequestBody, RoleRequest); err != nil {
			return nil, nil, err
		}
		for _, r := range ep.Responses {
			if r.Kind == schema.NoContent {
				continue
			}
			if err := add(r.Schema, RoleResponse); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, ch := range m.Channels {
		for _, slot := range []struct {
			msg  *schema.Message
			role Role
		}{{ch.Publish, RolePublish}, {ch.Subscribe, RoleSubscribe}} {
			var err error
			walkMessage(m, ch.Namespace, slot.msg, nil, func(msg *schema.Message) {
				if err != nil || msg.Kind != schema.PayloadMessage {
					return
				}
				err = c.walk(ch.Namespace, ch.Name, msg.Payload, slot.role, false)
			})
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return c.roots, c.fallbacks, nil
}

type collector struct {
	model     *schema.Model
	graph     *graph.Graph
	roots     []Root
	fallbacks []graph.Fallback
}

func (c *collector) walk(namespace, source string, s *schema.Schema, role Role, serverOnly bool) error {
	var err error
	schema.Walk(s, "", func(node *schema.Schema, _ string) {
		if err != nil {
			return
		}
		key := node.SchemaKey
		if key == "" && node.Kind == schema.Ref {
			target, fellBack, rerr := c.graph.Resolve(namespace, node.Ref)
			if rerr != nil {
				err = fmt.Errorf("%s: %w", source, rerr)
				return
			}
			if fellBack {
				c.fallbacks = append(c.fallbacks, graph.Fallback{From: source, Ref: node.Ref, Target: target})
			}
			key = target
		}
		if key == "" {
			return
		}
		c.roots = append(c.roots, Root{Key: key, Source: source, Role: role, ServerOnly: serverOnly})
	})
	return err
}

// walkMessage visits msg and every message reachable through oneOf and ref
// indirection. seen holds the message keys on the current path; it is never
// modified, each ref step works on its own extended copy.
func walkMessage(m *schema.Model, namespace string, msg *schema.Message, seen map[string]bool, visit func(*schema.Message)) {
	if msg == nil {
		return
	}
	visit(msg)
	switch msg.Kind {
	case schema.OneOfMessage:
		for _, child := range msg.OneOf {
			walkMessage(m, namespace, child, seen, visit)
		}
	case schema.RefMessage:
		key := schema.Key(namespace, schema.MessageRefName(msg.Ref))
		if seen[key] {
			return
		}
		target := m.Messages[key]
		if target == nil {
			return
		}
		walkMessage(m, namespace, target, extend(seen, key), visit)
	}
}

func extend(seen map[string]bool, key string) map[string]bool {
	next := make(map[string]bool, len(seen)+1)
	for k := range seen {
		next[k] = true
	}
	next[key] = true
	return next
}
