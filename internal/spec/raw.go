package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Raw document definitions. These mirror the on-disk OpenAPI/AsyncAPI trees
// closely and carry no classification; see package classify for that.

// DocumentKind tells which kind of API description a Document holds.
type DocumentKind string

const (
	OpenAPIKind  DocumentKind = "openapi"
	AsyncAPIKind DocumentKind = "asyncapi"
)

// Document is one loaded (and override-merged) spec document.
type Document struct {
	Namespace string
	Kind      DocumentKind
	Location  string
	OpenAPI   *RawOpenAPI
	AsyncAPI  *RawAsyncAPI
}

// Schemas returns the document's components.schemas table.
func (d *Document) Schemas() map[string]*RawSchema {
	switch {
	case d == nil:
		return nil
	case d.OpenAPI != nil:
		return d.OpenAPI.Components.Schemas
	case d.AsyncAPI != nil:
		return d.AsyncAPI.Components.Schemas
	}
	return nil
}

type RawOpenAPI struct {
	OpenAPI    string                  `yaml:"openapi"`
	Info       RawInfo                 `yaml:"info"`
	Paths      map[string]*RawPathItem `yaml:"paths"`
	Components RawComponents           `yaml:"components"`
	BasePath   string                  `yaml:"x-fern-base-path"`
}

type RawInfo struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type RawComponents struct {
	Schemas       map[string]*RawSchema      `yaml:"schemas"`
	Parameters    map[string]*RawParameter   `yaml:"parameters"`
	Responses     map[string]*RawResponse    `yaml:"responses"`
	RequestBodies map[string]*RawRequestBody `yaml:"requestBodies"`
}

// HTTPVerbs lists the operation keys of a path item in rendering order.
var HTTPVerbs = []string{"get", "post", "put", "patch", "delete"}

// RawPathItem holds the shared parameters and the per-verb operations of a path.
type RawPathItem struct {
	Parameters []*RawParameter
	Operations map[string]*RawOperation
}

func (p *RawPathItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: path item must be a mapping", node.Line)
	}
	p.Operations = make(map[string]*RawOperation)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch {
		case key == "parameters":
			if err := value.Decode(&p.Parameters); err != nil {
				return err
			}
		case isVerb(key):
			var op RawOperation
			if err := value.Decode(&op); err != nil {
				return err
			}
			p.Operations[key] = &op
		}
	}
	return nil
}

func isVerb(key string) bool {
	for _, v := range HTTPVerbs {
		if v == key {
			return true
		}
	}
	return false
}

type RawOperation struct {
	OperationID string                  `yaml:"operationId"`
	Summary     string                  `yaml:"summary"`
	Description string                  `yaml:"description"`
	Tags        []string                `yaml:"tags"`
	Parameters  []*RawParameter         `yaml:"parameters"`
	RequestBody *RawRequestBody         `yaml:"requestBody"`
	Responses   map[string]*RawResponse `yaml:"responses"`
	Ignore      bool                    `yaml:"x-fern-ignore"`
	GroupName   string                  `yaml:"x-fern-sdk-group-name"`
	MethodName  string                  `yaml:"x-fern-sdk-method-name"`
}

type RawParameter struct {
	Ref         string     `yaml:"$ref"`
	Name        string     `yaml:"name"`
	In          string     `yaml:"in"`
	Required    bool       `yaml:"required"`
	Description string     `yaml:"description"`
	Schema      *RawSchema `yaml:"schema"`
}

type RawRequestBody struct {
	Ref      string                   `yaml:"$ref"`
	Required bool                     `yaml:"required"`
	Content  map[string]*RawMediaType `yaml:"content"`
}

type RawResponse struct {
	Ref         string                   `yaml:"$ref"`
	Description string                   `yaml:"description"`
	Content     map[string]*RawMediaType `yaml:"content"`
}

type RawMediaType struct {
	Schema *RawSchema `yaml:"schema"`
}

type RawAsyncAPI struct {
	AsyncAPI   string                 `yaml:"asyncapi"`
	Info       RawInfo                `yaml:"info"`
	Channels   map[string]*RawChannel `yaml:"channels"`
	Components RawAsyncComponents     `yaml:"components"`
}

type RawAsyncComponents struct {
	Messages map[string]*RawMessage `yaml:"messages"`
	Schemas  map[string]*RawSchema  `yaml:"schemas"`
}

type RawChannel struct {
	Description string          `yaml:"description"`
	Publish     *RawChannelSlot `yaml:"publish"`
	Subscribe   *RawChannelSlot `yaml:"subscribe"`
}

type RawChannelSlot struct {
	Message *RawMessage `yaml:"message"`
}

// RawMessage is either a payload-bearing message, a oneOf fan-out, or a $ref.
type RawMessage struct {
	Ref         string        `yaml:"$ref"`
	OneOf       []*RawMessage `yaml:"oneOf"`
	Name        string        `yaml:"name"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Payload     *RawSchema    `yaml:"payload"`
}

// RawSchema is an unclassified JSON-Schema-like node.
type RawSchema struct {
	Type                 SchemaType            `yaml:"type,omitempty"`
	Properties           map[string]*RawSchema `yaml:"properties,omitempty"`
	Items                *RawSchema            `yaml:"items,omitempty"`
	Enum                 []any                 `yaml:"enum,omitempty"`
	AnyOf                []*RawSchema          `yaml:"anyOf,omitempty"`
	OneOf                []*RawSchema          `yaml:"oneOf,omitempty"`
	AllOf                []*RawSchema          `yaml:"allOf,omitempty"`
	Ref                  string                `yaml:"$ref,omitempty"`
	Title                string                `yaml:"title,omitempty"`
	Description          string                `yaml:"description,omitempty"`
	Nullable             bool                  `yaml:"nullable,omitempty"`
	Format               string                `yaml:"format,omitempty"`
	Required             []string              `yaml:"required,omitempty"`
	AdditionalProperties *AdditionalProperties `yaml:"additionalProperties,omitempty"`
	Default              any                   `yaml:"default,omitempty"`
	Const                any                   `yaml:"const,omitempty"`
	Ignore               bool                  `yaml:"x-fern-ignore,omitempty"`
	TypeName             string                `yaml:"x-fern-type-name,omitempty"`
	Undiscriminated      bool                  `yaml:"x-fern-undiscriminated,omitempty"`
	Discriminator        *RawDiscriminator     `yaml:"discriminator,omitempty"`

	keys          []string
	propertyOrder []string
}

type RawDiscriminator struct {
	PropertyName string            `yaml:"propertyName"`
	Mapping      map[string]string `yaml:"mapping"`
}

func (s *RawSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema must be a mapping", node.Line)
	}
	type plain RawSchema
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	s.keys = s.keys[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		s.keys = append(s.keys, key)
		if key == "type" && node.Content[i+1].ShortTag() == "!!null" {
			// A bare YAML null is the JSON Schema "null" type.
			s.Type.Names = []string{"null"}
		}
		if key != "properties" || node.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		props := node.Content[i+1].Content
		for j := 0; j+1 < len(props); j += 2 {
			s.propertyOrder = append(s.propertyOrder, props[j].Value)
		}
	}
	return nil
}

// Keys returns the keys present on the node, in source order.
func (s *RawSchema) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// PropertyNames returns the property names in source order. Schemas built
// in code (not decoded) fall back to sorted map order.
func (s *RawSchema) PropertyNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	if len(s.propertyOrder) == len(s.Properties) {
		return append([]string(nil), s.propertyOrder...)
	}
	return sortedKeys(s.Properties)
}

// SchemaType is the JSON Schema "type" keyword: a single name or, in
// OpenAPI 3.1 documents, a list of names.
type SchemaType struct {
	Names []string
}

func (t *SchemaType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			t.Names = []string{"null"}
			return nil
		}
		t.Names = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		t.Names = make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.ShortTag() == "!!null" {
				t.Names = append(t.Names, "null")
				continue
			}
			t.Names = append(t.Names, item.Value)
		}
		return nil
	}
	return fmt.Errorf("line %d: type must be a string or a list of strings", node.Line)
}

func (t SchemaType) MarshalYAML() (any, error) {
	switch len(t.Names) {
	case 0:
		return nil, nil
	case 1:
		return t.Names[0], nil
	}
	return t.Names, nil
}

// Single returns the only non-null type name and whether "null" was listed.
// It returns "" when zero or several non-null names are present.
func (t SchemaType) Single() (name string, null bool) {
	var rest []string
	for _, n := range t.Names {
		if n == "null" {
			null = true
			continue
		}
		rest = append(rest, n)
	}
	if len(rest) == 1 {
		name = rest[0]
	}
	return name, null
}

// Is reports whether the type is exactly the given name.
func (t SchemaType) Is(name string) bool {
	return len(t.Names) == 1 && t.Names[0] == name
}

// AdditionalProperties is either a boolean or a schema.
type AdditionalProperties struct {
	Allowed *bool
	Schema  *RawSchema
}

func (a *AdditionalProperties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		a.Allowed = &b
		return nil
	}
	var s RawSchema
	if err := node.Decode(&s); err != nil {
		return err
	}
	a.Schema = &s
	return nil
}

func (a *AdditionalProperties) MarshalYAML() (any, error) {
	if a.Schema != nil {
		return a.Schema, nil
	}
	if a.Allowed != nil {
		return *a.Allowed, nil
	}
	return nil, nil
}

// IsFalse reports whether additionalProperties is the literal false.
func (a *AdditionalProperties) IsFalse() bool {
	return a != nil && a.Schema == nil && a.Allowed != nil && !*a.Allowed
}
