// Package classify turns raw OpenAPI/AsyncAPI schema trees into classified
// schema trees and builds the generation model from loaded documents.
package classify

import (
	"strconv"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/schema"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// annotationKeys never make a node schema-bearing on their own.
var annotationKeys = map[string]bool{
	"description": true,
	"title":       true,
	"example":     true,
	"examples":    true,
	"default":     true,
	"deprecated":  true,
	"readOnly":    true,
	"writeOnly":   true,
	"nullable":    true,
	"format":      true,
}

var primitiveTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"integer": true,
}

// Classifier assigns exactly one schema.Kind to every node of a raw schema
// tree. The raw tree is never modified.
type Classifier struct {
	// schemas is the components.schemas table of the document being
	// classified, used to look through refs during discriminant inference.
	schemas map[string]*spec.RawSchema
}

// New returns a Classifier resolving refs against schemas.
func New(schemas map[string]*spec.RawSchema) *Classifier {
	return &Classifier{schemas: schemas}
}

// Classify classifies raw. key is the schema key of a top-level named schema
// and empty for inline nodes; pointer locates raw in its document.
func (c *Classifier) Classify(raw *spec.RawSchema, key, pointer string) (*schema.Schema, error) {
	if raw == nil {
		return nil, &ClassifyError{Pointer: pointer, Reason: "schema is null", Err: ErrUnclassifiable}
	}
	return c.classify(raw, key, pointer)
}

func (c *Classifier) classify(raw *spec.RawSchema, key, pointer string) (*schema.Schema, error) {
	typeName, typeNull := raw.Type.Single()
	out := &schema.Schema{
		SchemaKey:   key,
		Nullable:    raw.Nullable || typeNull,
		Title:       raw.Title,
		Description: raw.Description,
		TypeName:    raw.TypeName,
		Format:      raw.Format,
	}
	fail := func(err error, reason string) (*schema.Schema, error) {
		return nil, &ClassifyError{Pointer: pointer, Reason: reason, Node: raw, Err: err}
	}

	if raw.Ignore {
		out.Kind = schema.Ignored
		return out, nil
	}
	if !hasSchemaKeys(raw) {
		out.Kind = schema.Empty
		return out, nil
	}
	additional := raw.AdditionalProperties
	if additional.IsFalse() {
		additional = nil
	}
	if raw.AllOf != nil {
		out.Kind = schema.Inheritance
		return out, nil
	}
	if raw.AnyOf != nil {
		return c.classifyAnyOf(raw, out, pointer)
	}
	if raw.OneOf != nil {
		return c.classifyOneOf(raw, out, pointer)
	}
	if raw.Ref != "" {
		out.Kind = schema.Ref
		out.Ref = raw.Ref
		return out, nil
	}
	if values, nullable, ok := stringEnum(raw.Enum); ok {
		out.Kind = schema.Enum
		out.Type = "string"
		out.Enum = values
		out.Nullable = out.Nullable || nullable
		return out, nil
	} else if nullable {
		out.Nullable = true
	}

	untyped := len(raw.Type.Names) == 0
	if raw.Properties != nil && (typeName == "object" || untyped) {
		out.Kind = schema.Object
		out.Required = append([]string{}, raw.Required...)
		for _, name := range raw.PropertyNames() {
			prop := raw.Properties[name]
			if prop == nil {
				continue
			}
			ps, err := c.classify(prop, "", schema.AppendPointer(pointer, "properties", name))
			if err != nil {
				return nil, err
			}
			out.Properties = append(out.Properties, schema.Property{Name: name, Schema: ps})
		}
		return out, nil
	}
	if typeName == "object" && additional != nil && additional.Schema != nil {
		value, err := c.classify(additional.Schema, "", schema.AppendPointer(pointer, "additionalProperties"))
		if err != nil {
			return nil, err
		}
		out.Kind = schema.Dictionary
		out.AdditionalProperties = value
		return out, nil
	}
	if typeName == "object" {
		out.Kind = schema.MetadataObject
		return out, nil
	}
	if typeName == "array" && raw.Items != nil {
		items, err := c.classify(raw.Items, "", schema.AppendPointer(pointer, "items"))
		if err != nil {
			return nil, err
		}
		out.Kind = schema.Array
		out.Items = items
		return out, nil
	}
	constValue, hasStringConst := raw.Const.(string)
	if untyped && hasStringConst {
		typeName = "string"
	}
	if primitiveTypes[typeName] {
		out.Kind = schema.Primitive
		out.Type = typeName
		if hasStringConst {
			out.Const = constValue
		}
		return out, nil
	}
	if typeNull && typeName == "" && len(raw.Type.Names) == 1 {
		out.Kind = schema.Empty
		return out, nil
	}
	return fail(ErrUnclassifiable, "no rule matched")
}

func (c *Classifier) classifyAnyOf(raw *spec.RawSchema, out *schema.Schema, pointer string) (*schema.Schema, error) {
	fail := func(err error, reason string) (*schema.Schema, error) {
		return nil, &ClassifyError{Pointer: pointer, Reason: reason, Node: raw, Err: err}
	}
	if allInheritance(raw.AnyOf) {
		out.Kind = schema.Inheritance
		return out, nil
	}

	var (
		branches []*spec.RawSchema
		indexes  []int
	)
	for i, b := range raw.AnyOf {
		if isNullBranch(b) {
			out.Nullable = true
			continue
		}
		branches = append(branches, b)
		indexes = append(indexes, i)
	}
	switch len(branches) {
	case 0:
		return fail(ErrUnknownAnyOf, "no non-null branches")
	case 1:
		inner, err := c.classify(branches[0], "", schema.AppendPointer(pointer, "anyOf", strconv.Itoa(indexes[0])))
		if err != nil {
			return nil, err
		}
		return collapse(out, inner), nil
	}

	variants := make([]*schema.Schema, len(branches))
	for i, b := range branches {
		v, err := c.classify(b, "", schema.AppendPointer(pointer, "anyOf", strconv.Itoa(indexes[i])))
		if err != nil {
			return nil, err
		}
		variants[i] = v
	}

	if len(variants) == 2 {
		a, b := variants[0], variants[1]
		switch {
		case sameIdentity(b.Items, a) && b.Kind == schema.Array:
			out.Kind = schema.SingletonOrArray
			out.Variants = []*schema.Schema{a, b}
			return out, nil
		case sameIdentity(a.Items, b) && a.Kind == schema.Array:
			out.Kind = schema.SingletonOrArray
			out.Variants = []*schema.Schema{b, a}
			return out, nil
		case isStringIntegerPair(a, b):
			out.Kind = schema.StringOrInteger
			out.Variants = variants
			return out, nil
		}
	}
	if allKind(variants, schema.Object) {
		out.Variants = variants
		if name, ok := inferDiscriminant(variants); ok {
			out.Kind = schema.AnyOfDiscriminatedUnion
			out.Discriminant = name
			return out, nil
		}
		out.Kind = schema.AnyOfUndiscriminatedUnion
		return out, nil
	}
	if allKind(variants, schema.Ref) {
		out.Kind = schema.UnionOfRefs
		out.Variants = variants
		return out, nil
	}
	kinds := make([]string, len(variants))
	for i, v := range variants {
		kinds[i] = string(v.Kind)
	}
	return fail(ErrUnknownAnyOf, "branch kinds "+strings.Join(kinds, ", "))
}

func (c *Classifier) classifyOneOf(raw *spec.RawSchema, out *schema.Schema, pointer string) (*schema.Schema, error) {
	fail := func(err error, reason string) (*schema.Schema, error) {
		return nil, &ClassifyError{Pointer: pointer, Reason: reason, Node: raw, Err: err}
	}
	if len(raw.OneOf) == 0 {
		return fail(ErrMalformedOneOf, "no branches")
	}
	variants := make([]*schema.Schema, len(raw.OneOf))
	for i, b := range raw.OneOf {
		v, err := c.Classify(b, "", schema.AppendPointer(pointer, "oneOf", strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		variants[i] = v
	}

	if allKind(variants, schema.Primitive) {
		seen := map[string]int{}
		for _, v := range variants {
			seen[v.Type]++
		}
		if len(variants) == 3 && seen["string"] == 1 && seen["number"] == 1 && seen["boolean"] == 1 {
			out.Kind = schema.StringNumberBool
			out.Variants = variants
			return out, nil
		}
		return fail(ErrPrimitiveOneOf, "")
	}
	if allKind(variants, schema.Ref) {
		out.Variants = variants
		if raw.Undiscriminated {
			out.Kind = schema.OneOfUndiscriminatedUnion
			return out, nil
		}
		if d, ok := c.discriminatorFor(raw, variants); ok {
			out.Kind = schema.DiscriminatedUnion
			out.Discriminator = d
			return out, nil
		}
		out.Kind = schema.OneOfUndiscriminatedUnion
		return out, nil
	}
	return fail(ErrMalformedOneOf, "branches must be all refs or all primitives")
}

// collapse replaces an anyOf parent by its only surviving branch.
func collapse(parent, inner *schema.Schema) *schema.Schema {
	if inner.SchemaKey == "" {
		inner.SchemaKey = parent.SchemaKey
	}
	if inner.Description == "" {
		inner.Description = parent.Description
	}
	if inner.Title == "" {
		inner.Title = parent.Title
	}
	if inner.TypeName == "" {
		inner.TypeName = parent.TypeName
	}
	inner.Nullable = inner.Nullable || parent.Nullable
	return inner
}

func hasSchemaKeys(raw *spec.RawSchema) bool {
	if keys := raw.Keys(); len(keys) > 0 {
		for _, k := range keys {
			if !annotationKeys[k] && !strings.HasPrefix(k, "x-") {
				return true
			}
		}
		return false
	}
	return len(raw.Type.Names) > 0 || raw.Properties != nil || raw.Items != nil || raw.Enum != nil ||
		raw.AnyOf != nil || raw.OneOf != nil || raw.AllOf != nil || raw.Ref != "" ||
		raw.Required != nil || raw.AdditionalProperties != nil || raw.Const != nil || raw.Discriminator != nil
}

func allInheritance(branches []*spec.RawSchema) bool {
	if len(branches) == 0 {
		return false
	}
	for _, b := range branches {
		if b == nil || b.AllOf == nil {
			return false
		}
	}
	return true
}

func isNullBranch(b *spec.RawSchema) bool {
	return b == nil || b.Type.Is("null")
}

func sameIdentity(a, b *schema.Schema) bool {
	id := a.Identity()
	return id != "" && id == b.Identity()
}

func isStringIntegerPair(a, b *schema.Schema) bool {
	if a.Kind != schema.Primitive || b.Kind != schema.Primitive {
		return false
	}
	return (a.Type == "string" && b.Type == "integer") || (a.Type == "integer" && b.Type == "string")
}

func allKind(nodes []*schema.Schema, k schema.Kind) bool {
	for _, n := range nodes {
		if n.Kind != k {
			return false
		}
	}
	return len(nodes) > 0
}

// stringEnum returns the string values of an enum. null entries only set
// nullable; any other non-string value means the enum is not a string enum.
func stringEnum(values []any) (strs []string, nullable, ok bool) {
	for _, v := range values {
		switch tv := v.(type) {
		case nil:
			nullable = true
		case string:
			strs = append(strs, tv)
		default:
			return nil, nullable, false
		}
	}
	return strs, nullable, len(strs) > 0
}
