package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/analysis"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

type propertyView struct {
	Name   string
	Key    string
	Type   string
	Doc    string
	Const  string
	Reason string
}

type structView struct {
	Name        string
	Doc         string
	Properties  []propertyView
	Unsupported []propertyView
	Settable    []propertyView
	Consts      []propertyView
	CodingKeys  bool
	Init        bool
	InitParams  string
}

type memberView struct {
	Name  string
	Value string
}

type enumView struct {
	Name    string
	Doc     string
	Members []memberView
}

type caseView struct {
	Name   string
	Type   string
	Values []string
}

type unionView struct {
	Name              string
	Doc               string
	Discriminator     string
	DiscriminatorCase string
	Cases             []caseView
}

type aliasView struct {
	Name string
	Doc  string
	Type string
}

type placeholderView struct {
	Name   string
	Reason string
}

// definition renders the declaration of one named schema followed by any
// structs generated for its inline variants.
func (r *Renderer) definition(namespace, name string, s *schema.Schema, dir analysis.Direction) ([]byte, error) {
	switch s.Kind {
	case schema.Object:
		view := r.structView(namespace, name, s, dir)
		return execute("struct", view)
	case schema.Enum:
		return execute("enum", enumOf(name, s))
	case schema.DiscriminatedUnion, schema.AnyOfDiscriminatedUnion:
		return r.discriminated(namespace, name, s, dir)
	case schema.AnyOfUndiscriminatedUnion, schema.OneOfUndiscriminatedUnion, schema.UnionOfRefs,
		schema.SingletonOrArray, schema.StringOrInteger, schema.StringNumberBool:
		return r.undiscriminated(namespace, name, s, dir)
	case schema.Dictionary, schema.Array, schema.Primitive, schema.Ref, schema.MetadataObject:
		typ, reason := r.fieldType(namespace, s)
		if reason != "" {
			return execute("placeholder", placeholderView{Name: name, Reason: reason})
		}
		if s.Nullable {
			typ = optional(typ)
		}
		return execute("typealias", aliasView{Name: name, Doc: s.Description, Type: typ})
	case schema.Inheritance:
		return execute("placeholder", placeholderView{Name: name, Reason: "allOf composition is not decomposed"})
	}
	return execute("placeholder", placeholderView{Name: name, Reason: fmt.Sprintf("%s schemas have no Swift shape", s.Kind)})
}

// fieldType renders the Swift type of a node used as a property, parameter,
// variant or alias target. A non-empty reason means it has none.
func (r *Renderer) fieldType(namespace string, s *schema.Schema) (typ, reason string) {
	if s == nil {
		return "", "missing schema"
	}
	switch s.Kind {
	case schema.Primitive:
		return primitiveType(s), ""
	case schema.Enum:
		return "String", ""
	case schema.Ref:
		target, err := r.refTarget(namespace, s.Ref)
		if err != nil {
			return "", err.Error()
		}
		if target.Kind == schema.Ignored {
			return "", fmt.Sprintf("references ignored schema %s", target.Identity())
		}
		return r.typeName(target), ""
	case schema.Array:
		item, reason := r.fieldType(namespace, s.Items)
		if reason != "" {
			return "", reason
		}
		if s.Items.Nullable {
			item = optional(item)
		}
		return "[" + item + "]", ""
	case schema.Dictionary:
		value, reason := r.fieldType(namespace, s.AdditionalProperties)
		if reason != "" {
			return "", reason
		}
		return "[String: " + value + "]", ""
	case schema.MetadataObject:
		return "[String: JSONValue]", ""
	case schema.Empty:
		return "JSONValue", ""
	}
	return "", fmt.Sprintf("inline %s", s.Kind)
}

func primitiveType(s *schema.Schema) string {
	switch s.Type {
	case "integer":
		return "Int"
	case "number":
		if s.Format == "float" {
			return "Float"
		}
		return "Double"
	case "boolean":
		return "Bool"
	case "string":
		if s.Format == "binary" {
			return "Data"
		}
	}
	return "String"
}

func (r *Renderer) structView(namespace, name string, s *schema.Schema, dir analysis.Direction) structView {
	view := structView{Name: name, Doc: s.Description, Init: dir != analysis.Received}
	names := make(uniqueNames)
	for _, p := range s.Properties {
		pv := propertyView{Name: names.take(camel(p.Name)), Key: p.Name, Doc: p.Schema.Description}
		if p.Schema.Kind == schema.Primitive && p.Schema.Const != "" {
			pv.Type = "String"
			pv.Const = p.Schema.Const
			view.Properties = append(view.Properties, pv)
			view.Consts = append(view.Consts, pv)
			continue
		}
		typ, reason := r.fieldType(namespace, p.Schema)
		if reason != "" {
			pv.Reason = reason
			view.Unsupported = append(view.Unsupported, pv)
			continue
		}
		if !s.IsRequired(p.Name) || p.Schema.Nullable {
			typ = optional(typ)
		}
		pv.Type = typ
		view.Properties = append(view.Properties, pv)
		view.Settable = append(view.Settable, pv)
	}
	for _, pv := range view.Properties {
		if bare(pv.Name) != pv.Key {
			view.CodingKeys = true
		}
	}
	if !view.Init {
		return view
	}

	current := make([]string, len(view.Settable))
	byName := make(map[string]propertyView, len(view.Settable))
	for i, pv := range view.Settable {
		current[i] = bare(pv.Name)
		byName[bare(pv.Name)] = pv
	}
	order := r.orderings.Stabilize(name+".init", current)
	view.Settable = view.Settable[:0]
	list := make([]string, 0, len(order))
	for _, n := range order {
		pv := byName[n]
		view.Settable = append(view.Settable, pv)
		param := pv.Name + ": " + pv.Type
		if strings.HasSuffix(pv.Type, "?") {
			param += " = nil"
		}
		list = append(list, param)
	}
	view.InitParams = params(list, "        ")
	return view
}

func enumOf(name string, s *schema.Schema) enumView {
	view := enumView{Name: name, Doc: s.Description}
	names := make(uniqueNames)
	for i, v := range s.Enum {
		n := camel(v)
		if n == "" {
			n = fmt.Sprintf("value%d", i+1)
		}
		view.Members = append(view.Members, memberView{Name: names.take(n), Value: v})
	}
	return view
}

func (r *Renderer) discriminated(namespace, name string, s *schema.Schema, dir analysis.Direction) ([]byte, error) {
	view := unionView{Name: name, Doc: s.Description}
	var nested []structView
	names := make(uniqueNames)

	if s.Kind == schema.DiscriminatedUnion {
		view.Discriminator = s.Discriminator.PropertyName
		values := make(map[string][]string)
		for value, ref := range s.Discriminator.Mapping {
			target := schema.RefName(ref)
			values[target] = append(values[target], value)
		}
		for _, v := range s.Variants {
			typ, reason := r.fieldType(namespace, v)
			if reason != "" {
				return execute("placeholder", placeholderView{Name: name, Reason: reason})
			}
			vals := values[v.RefName()]
			sort.Strings(vals)
			if len(vals) == 0 {
				vals = []string{v.RefName()}
			}
			view.Cases = append(view.Cases, caseView{Name: names.take(camel(vals[0])), Type: typ, Values: vals})
		}
	} else {
		view.Discriminator = s.Discriminant
		for _, v := range s.Variants {
			value := ""
			if p := v.Property(s.Discriminant); p != nil {
				value = p.Const
			}
			typ := pascal(v.TypeName)
			if typ == "" {
				typ = pascal(v.Title)
			}
			if typ == "" {
				typ = name + pascal(value)
			}
			nested = append(nested, r.structView(namespace, typ, v, dir))
			view.Cases = append(view.Cases, caseView{Name: names.take(camel(value)), Type: typ, Values: []string{value}})
		}
	}
	view.DiscriminatorCase = camel(view.Discriminator)
	return renderWithNested("discriminated", view, nested)
}

func (r *Renderer) undiscriminated(namespace, name string, s *schema.Schema, dir analysis.Direction) ([]byte, error) {
	view := unionView{Name: name, Doc: s.Description}
	var nested []structView
	names := make(uniqueNames)
	for i, v := range s.Variants {
		var typ, caseName string
		switch {
		case v.Kind == schema.Object:
			typ = pascal(v.TypeName)
			if typ == "" {
				typ = pascal(v.Title)
			}
			if typ == "" {
				typ = fmt.Sprintf("%sOption%d", name, i+1)
			}
			nested = append(nested, r.structView(namespace, typ, v, dir))
			caseName = camel(typ)
		default:
			var reason string
			typ, reason = r.fieldType(namespace, v)
			if reason != "" {
				return execute("placeholder", placeholderView{Name: name, Reason: fmt.Sprintf("variant %d: %s", i+1, reason)})
			}
			switch {
			case s.Kind == schema.SingletonOrArray && i == 0:
				caseName = "single"
			case s.Kind == schema.SingletonOrArray:
				caseName = "many"
			case v.Kind == schema.Ref, v.Kind == schema.Primitive:
				caseName = camel(typ)
			default:
				caseName = fmt.Sprintf("case%d", i+1)
			}
		}
		view.Cases = append(view.Cases, caseView{Name: names.take(caseName), Type: typ})
	}
	return renderWithNested("undiscriminated", view, nested)
}

func renderWithNested(name string, view unionView, nested []structView) ([]byte, error) {
	out, err := execute(name, view)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(out)
	for _, sv := range nested {
		b, err := execute("struct", sv)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n")
		buf.Write(b)
	}
	return buf.Bytes(), nil
}
