package schema

import (
	"strings"
)

// Kind is the classification tag of a schema node. Every node produced by
// the classifier carries exactly one.
type Kind string

const (
	Ignored                   Kind = "ignored"
	Ref                       Kind = "ref"
	Empty                     Kind = "empty"
	Inheritance               Kind = "inheritance"
	DiscriminatedUnion        Kind = "discriminatedUnion"
	AnyOfDiscriminatedUnion   Kind = "anyOfDiscriminatedUnion"
	AnyOfUndiscriminatedUnion Kind = "anyOfUndiscriminatedUnion"
	OneOfUndiscriminatedUnion Kind = "oneOfUndiscriminatedUnion"
	UnionOfRefs               Kind = "unionOfRefs"
	SingletonOrArray          Kind = "singletonOrArray"
	MetadataObject            Kind = "metadataObject"
	Enum                      Kind = "enum"
	Primitive                 Kind = "primitive"
	StringOrInteger           Kind = "stringOrInteger"
	StringNumberBool          Kind = "stringNumberBool"
	Object                    Kind = "object"
	Array                     Kind = "array"
	Dictionary                Kind = "dictionary"
)

// Kinds lists every tag in declaration order.
var Kinds = []Kind{
	Ignored, Ref, Empty, Inheritance, DiscriminatedUnion, AnyOfDiscriminatedUnion,
	AnyOfUndiscriminatedUnion, OneOfUndiscriminatedUnion, UnionOfRefs, SingletonOrArray,
	MetadataObject, Enum, Primitive, StringOrInteger, StringNumberBool, Object, Array, Dictionary,
}

// Known reports whether k is one of the closed set of tags.
func (k Kind) Known() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// IsUnion reports whether the node holds its variants in Variants.
func (k Kind) IsUnion() bool {
	switch k {
	case DiscriminatedUnion, AnyOfDiscriminatedUnion, AnyOfUndiscriminatedUnion,
		OneOfUndiscriminatedUnion, UnionOfRefs, SingletonOrArray, StringOrInteger, StringNumberBool:
		return true
	}
	return false
}

const schemaRefPrefix = "#/components/schemas/"

// Schema is a classified schema node. Fields beyond Kind are populated
// according to the tag; the rest stay zero.
type Schema struct {
	Kind Kind
	// SchemaKey is set only on top-level named schemas, e.g. "tts:Voice".
	SchemaKey   string
	Nullable    bool
	Title       string
	Description string
	TypeName    string // x-fern-type-name

	Ref    string // ref
	Type   string // primitive type name
	Format string
	Const  string // string const of a primitive

	Enum []string

	Properties []Property // object, source order
	Required   []string

	Items                *Schema // array
	AdditionalProperties *Schema // dictionary

	Variants      []*Schema      // unions, in canonical order
	Discriminator *Discriminator // discriminatedUnion
	Discriminant  string         // anyOfDiscriminatedUnion
}

type Property struct {
	Name   string
	Schema *Schema
}

type Discriminator struct {
	PropertyName string
	Mapping      map[string]string // discriminant value -> $ref
}

// RefName returns the bare target name of a ref node.
func (s *Schema) RefName() string {
	if s == nil {
		return ""
	}
	return RefName(s.Ref)
}

// RefName strips the components prefix from a schema $ref.
func RefName(ref string) string {
	return strings.TrimPrefix(ref, schemaRefPrefix)
}

// RefTo builds a schema $ref for name.
func RefTo(name string) string { return schemaRefPrefix + name }

// Property returns the schema of the named property, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Identity is the stable key used to compare two nodes: the schema key of
// a named schema, or the target name of a ref. Anonymous nodes have none.
func (s *Schema) Identity() string {
	if s == nil {
		return ""
	}
	if s.SchemaKey != "" {
		return s.SchemaKey
	}
	if s.Kind == Ref {
		return s.RefName()
	}
	return ""
}

// DisplayName is the name a named schema is rendered under.
func (s *Schema) DisplayName() string {
	if s == nil {
		return ""
	}
	if s.TypeName != "" {
		return s.TypeName
	}
	if s.SchemaKey != "" {
		_, name := SplitKey(s.SchemaKey)
		return name
	}
	return s.Title
}

// Key joins a namespace and a schema name.
func Key(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}

// SplitKey splits "ns:Name" into its parts. Keys without a namespace return
// an empty namespace.
func SplitKey(key string) (namespace, name string) {
	if i := strings.Index(key, ":"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
