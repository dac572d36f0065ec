package schema

import (
	"strconv"
	"strings"
)

// Walk visits root and every node below it in pre-order, passing the JSON
// pointer of each node relative to pointer.
func Walk(root *Schema, pointer string, fn func(node *Schema, pointer string)) {
	if root == nil {
		return
	}
	fn(root, pointer)
	for _, p := range root.Properties {
		Walk(p.Schema, AppendPointer(pointer, "properties", p.Name), fn)
	}
	if root.Items != nil {
		Walk(root.Items, AppendPointer(pointer, "items"), fn)
	}
	if root.AdditionalProperties != nil {
		Walk(root.AdditionalProperties, AppendPointer(pointer, "additionalProperties"), fn)
	}
	keyword := root.variantKeyword()
	for i, v := range root.Variants {
		Walk(v, AppendPointer(pointer, keyword, strconv.Itoa(i)), fn)
	}
}

// Refs returns the ref nodes found anywhere under root, in walk order.
func Refs(root *Schema) []*Schema {
	var out []*Schema
	Walk(root, "", func(n *Schema, _ string) {
		if n.Kind == Ref {
			out = append(out, n)
		}
	})
	return out
}

func (s *Schema) variantKeyword() string {
	switch s.Kind {
	case AnyOfDiscriminatedUnion, AnyOfUndiscriminatedUnion, UnionOfRefs, SingletonOrArray, StringOrInteger:
		return "anyOf"
	}
	return "oneOf"
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// AppendPointer appends escaped segments to a JSON pointer.
func AppendPointer(pointer string, segments ...string) string {
	var b strings.Builder
	b.WriteString(pointer)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(s))
	}
	return b.String()
}
