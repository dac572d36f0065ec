package classify

import (
	"strconv"

	"github.com/mark3labs/swiftsdkgen/internal/schema"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// Validate checks the classified model against the shapes the renderer
// relies on. It reports every issue at once rather than the first one.
func Validate(m *schema.Model) error {
	v := &validator{}
	for _, key := range m.SchemaKeys() {
		ns, name := schema.SplitKey(key)
		v.schema(ns, schema.AppendPointer("#/components/schemas", name), m.Schemas[key])
	}
	for _, ep := range m.Endpoints {
		if ep.Ignored {
			continue
		}
		opPtr := schema.AppendPointer("#/paths", ep.Path, string(ep.Method))
		for i, p := range ep.Parameters {
			ptr := schema.AppendPointer(opPtr, "parameters", strconv.Itoa(i))
			if !p.In.Supported() {
				v.add(ep.Namespace, ptr+"/in", "unsupported parameter location", string(p.In))
			}
			if p.Name == "" {
				v.add(ep.Namespace, ptr+"/name", "parameter without name", nil)
			}
			if p.Schema == nil {
				v.add(ep.Namespace, ptr+"/schema", "parameter without schema", p.Name)
				continue
			}
			v.schema(ep.Namespace, ptr+"/schema", p.Schema)
		}
		if ep.RequestBody != nil {
			v.schema(ep.Namespace, schema.AppendPointer(opPtr, "requestBody", "content", "application/json", "schema"), ep.RequestBody)
		}
		for _, r := range ep.Responses {
			ptr := schema.AppendPointer(opPtr, "responses", r.Status)
			if r.Kind != schema.NoContent && r.Schema == nil {
				v.add(ep.Namespace, ptr, "response without schema", string(r.Kind))
				continue
			}
			if r.Schema != nil {
				v.schema(ep.Namespace, schema.AppendPointer(ptr, "content", r.MediaType, "schema"), r.Schema)
			}
		}
	}
	for _, key := range spec.SortedKeys(m.Messages) {
		ns, name := schema.SplitKey(key)
		v.message(m, ns, schema.AppendPointer("#/components/messages", name), m.Messages[key])
	}
	for _, ch := range m.Channels {
		ptr := schema.AppendPointer("#/channels", ch.Name)
		if ch.Publish != nil {
			v.message(m, ch.Namespace, ptr+"/publish/message", ch.Publish)
		}
		if ch.Subscribe != nil {
			v.message(m, ch.Namespace, ptr+"/subscribe/message", ch.Subscribe)
		}
	}
	if len(v.issues) > 0 {
		return &ValidationError{Issues: v.issues}
	}
	return nil
}

type validator struct {
	issues []Issue
}

func (v *validator) add(ns, pointer, message string, value any) {
	v.issues = append(v.issues, Issue{Namespace: ns, Pointer: pointer, Message: message, Value: value})
}

func (v *validator) schema(ns, pointer string, root *schema.Schema) {
	if root == nil {
		v.add(ns, pointer, "missing schema", nil)
		return
	}
	schema.Walk(root, pointer, func(s *schema.Schema, ptr string) {
		if !s.Kind.Known() {
			v.add(ns, ptr, "node left untagged", string(s.Kind))
			return
		}
		switch s.Kind {
		case schema.Ref:
			if s.Ref == "" {
				v.add(ns, ptr, "ref without target", nil)
			}
		case schema.Enum:
			if len(s.Enum) == 0 {
				v.add(ns, ptr, "enum without values", nil)
			}
		case schema.Primitive:
			switch s.Type {
			case "string", "number", "boolean", "integer":
			default:
				v.add(ns, ptr, "unsupported primitive type", s.Type)
			}
		case schema.Array:
			if s.Items == nil {
				v.add(ns, ptr, "array without items", nil)
			}
		case schema.Dictionary:
			if s.AdditionalProperties == nil {
				v.add(ns, ptr, "dictionary without value schema", nil)
			}
		case schema.Object:
			if s.Required == nil {
				v.add(ns, ptr, "object without required list", nil)
			}
			for _, p := range s.Properties {
				if p.Schema == nil {
					v.add(ns, schema.AppendPointer(ptr, "properties", p.Name), "property without schema", nil)
				}
			}
		case schema.SingletonOrArray, schema.StringOrInteger:
			if len(s.Variants) != 2 {
				v.add(ns, ptr, "expected exactly two variants", len(s.Variants))
			}
		case schema.StringNumberBool:
			if len(s.Variants) != 3 {
				v.add(ns, ptr, "expected exactly three variants", len(s.Variants))
			}
		case schema.DiscriminatedUnion:
			if s.Discriminator == nil || s.Discriminator.PropertyName == "" {
				v.add(ns, ptr+"/discriminator", "discriminated union without property name", nil)
			}
			if len(s.Variants) == 0 {
				v.add(ns, ptr, "union without variants", nil)
			}
		case schema.AnyOfDiscriminatedUnion:
			if s.Discriminant == "" {
				v.add(ns, ptr, "discriminated union without discriminant", nil)
			}
			if len(s.Variants) == 0 {
				v.add(ns, ptr, "union without variants", nil)
			}
		case schema.AnyOfUndiscriminatedUnion, schema.OneOfUndiscriminatedUnion, schema.UnionOfRefs:
			if len(s.Variants) == 0 {
				v.add(ns, ptr, "union without variants", nil)
			}
		}
	})
}

func (v *validator) message(m *schema.Model, ns, pointer string, msg *schema.Message) {
	switch msg.Kind {
	case schema.RefMessage:
		if m.ResolveMessage(ns, msg.Ref) == nil {
			v.add(ns, pointer, "unresolvable message ref", msg.Ref)
		}
	case schema.OneOfMessage:
		if len(msg.OneOf) == 0 {
			v.add(ns, pointer, "oneOf message without variants", nil)
		}
		for i, child := range msg.OneOf {
			v.message(m, ns, schema.AppendPointer(pointer, "oneOf", strconv.Itoa(i)), child)
		}
	case schema.PayloadMessage:
		if msg.Payload == nil {
			v.add(ns, pointer, "message without payload", msg.Name)
			return
		}
		v.schema(ns, pointer+"/payload", msg.Payload)
	default:
		v.add(ns, pointer, "message left untagged", string(msg.Kind))
	}
}
