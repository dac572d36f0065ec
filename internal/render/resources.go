package render

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/analysis"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

type methodView struct {
	Name           string
	Doc            string
	Params         string
	Args           string
	EndpointParams string
	Return         string
	Path           string
	Verb           string
	Body           string
	Headers        []string
	Query          []string
	Stream         bool
}

type resourceView struct {
	Name    string
	Methods []methodView
	nested  []structView
}

type clientView struct {
	Name      string
	Resources []resourceRef
}

type resourceRef struct {
	Property string
	Type     string
}

type resourceKey struct {
	target    Target
	namespace string
	group     string
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// ResourceName is the group an endpoint's method is generated into:
// x-fern-sdk-group-name when set, else the first path segment that is not
// a version, a path parameter or the namespace itself.
func ResourceName(ep *schema.Endpoint) string {
	if ep.GroupName != "" {
		return pascal(ep.GroupName)
	}
	for _, seg := range strings.Split(ep.Path, "/") {
		if seg == "" || versionSegment.MatchString(seg) || strings.HasPrefix(seg, "{") || seg == ep.Namespace {
			continue
		}
		return pascal(seg)
	}
	return pascal(ep.Namespace)
}

// MethodName is the Swift method name of an endpoint.
func MethodName(ep *schema.Endpoint) string {
	switch {
	case ep.MethodName != "":
		return camel(ep.MethodName)
	case ep.OperationID != "":
		return camel(ep.OperationID)
	}
	last := ""
	for _, seg := range strings.Split(ep.Path, "/") {
		if seg != "" && !strings.HasPrefix(seg, "{") {
			last = seg
		}
	}
	return camel(string(ep.Method) + "_" + last)
}

func (r *Renderer) renderResources(files Files) error {
	groups := make(map[resourceKey][]*schema.Endpoint)
	for _, ep := range r.model.Endpoints {
		if ep.Ignored {
			continue
		}
		target := ClientTarget
		if r.opts.ServerOnly != nil && r.opts.ServerOnly(ep.Path) {
			target = ServerTarget
		}
		key := resourceKey{target: target, namespace: ep.Namespace, group: ResourceName(ep)}
		groups[key] = append(groups[key], ep)
	}
	keys := make([]resourceKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.target != b.target {
			return a.target < b.target
		}
		if a.namespace != b.namespace {
			return a.namespace < b.namespace
		}
		return a.group < b.group
	})

	clients := make(map[resourceKey]*clientView)
	var clientOrder []resourceKey
	for _, key := range keys {
		view := resourceView{Name: key.group}
		names := make(uniqueNames)
		for _, ep := range groups[key] {
			m, err := r.method(key.group, names.take(MethodName(ep)), ep, &view)
			if err != nil {
				return fmt.Errorf("%s: %w", ep.ID(), err)
			}
			view.Methods = append(view.Methods, m)
		}
		content, err := execute("resource", view)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		buf.Write(content)
		for _, sv := range view.nested {
			b, err := execute("struct", sv)
			if err != nil {
				return err
			}
			buf.WriteString("\n")
			buf.Write(b)
		}
		dir := path.Join(string(key.target), namespaceDir(key.namespace))
		if err := files.add(path.Join(dir, "Resources", key.group+".swift"), buf.Bytes()); err != nil {
			return err
		}

		ck := resourceKey{target: key.target, namespace: key.namespace}
		c, ok := clients[ck]
		if !ok {
			name := namespaceDir(key.namespace) + "Client"
			if key.target == ServerTarget {
				name = namespaceDir(key.namespace) + "ServerClient"
			}
			c = &clientView{Name: name}
			clients[ck] = c
			clientOrder = append(clientOrder, ck)
		}
		c.Resources = append(c.Resources, resourceRef{Property: camel(key.group), Type: key.group})
	}
	for _, ck := range clientOrder {
		c := clients[ck]
		content, err := execute("client", c)
		if err != nil {
			return err
		}
		p := path.Join(string(ck.target), namespaceDir(ck.namespace), c.Name+".swift")
		if err := files.add(p, content); err != nil {
			return err
		}
	}
	return nil
}

type paramView struct {
	name     string
	key      string
	typ      string
	in       schema.Location
	optional bool
	body     bool
}

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

func (r *Renderer) method(group, name string, ep *schema.Endpoint, res *resourceView) (methodView, error) {
	m := methodView{Name: name, Doc: ep.Summary, Verb: string(ep.Method)}
	if m.Doc == "" {
		m.Doc = ep.Description
	}
	m.Stream = strings.Contains(name, "Stream")

	names := make(uniqueNames)
	var all []paramView
	for _, p := range ep.Parameters {
		typ, reason := r.fieldType(ep.Namespace, p.Schema)
		if reason != "" {
			return m, fmt.Errorf("parameter %s: %s", p.Name, reason)
		}
		pv := paramView{name: names.take(camel(p.Name)), key: p.Name, typ: typ, in: p.In, optional: !p.Required}
		if pv.optional {
			pv.typ = optional(pv.typ)
		}
		all = append(all, pv)
	}
	m.Body = "nil"
	if ep.RequestBody != nil {
		typ, err := r.inlineType(ep.Namespace, pascal(name)+"Request", ep.RequestBody, analysis.Sent, res)
		if err != nil {
			return m, fmt.Errorf("request body: %w", err)
		}
		pv := paramView{name: names.take("request"), typ: typ, body: true}
		all = append(all, pv)
		m.Body = pv.name
	}

	m.Return = "Void"
	if success := ep.Success(); success != nil {
		switch success.Kind {
		case schema.BinaryResponse:
			m.Return = "Data"
		case schema.JSONResponse:
			typ, err := r.inlineType(ep.Namespace, pascal(name)+"Response", success.Schema, analysis.Received, res)
			if err != nil {
				return m, fmt.Errorf("response %s: %w", success.Status, err)
			}
			m.Return = typ
		}
	}

	current := make([]string, len(all))
	byName := make(map[string]paramView, len(all))
	for i, pv := range all {
		current[i] = bare(pv.name)
		byName[bare(pv.name)] = pv
	}
	order := r.orderings.Stabilize(group+"."+name, current)

	timeout := "120"
	if m.Stream {
		timeout = "300"
	}
	var decl, endpointDecl, args []string
	for _, n := range order {
		pv := byName[n]
		param := pv.name + ": " + pv.typ
		endpointDecl = append(endpointDecl, param)
		if pv.optional {
			param += " = nil"
		}
		decl = append(decl, param)
		args = append(args, pv.name+": "+pv.name)
	}
	decl = append(decl, "timeoutDuration: TimeInterval = "+timeout, "maxRetries: Int = 0")
	endpointDecl = append(endpointDecl, "timeoutDuration: TimeInterval", "maxRetries: Int")
	args = append(args, "timeoutDuration: timeoutDuration", "maxRetries: maxRetries")
	m.Params = params(decl, "        ")
	m.EndpointParams = params(endpointDecl, "        ")
	m.Args = strings.Join(args, ", ")

	m.Headers = []string{`"Content-Type": "application/json"`}
	for _, pv := range all {
		switch pv.in {
		case schema.InHeader:
			m.Headers = append(m.Headers, fmt.Sprintf(`"%s": %s`, swiftString(pv.key), pv.name))
		case schema.InQuery:
			value := `"\(` + pv.name + `)"`
			if pv.optional {
				value = pv.name + `.map { "\($0)" }`
			}
			m.Query = append(m.Query, fmt.Sprintf(`"%s": %s`, swiftString(pv.key), value))
		}
	}
	m.Path = pathParam.ReplaceAllStringFunc(ep.Path, func(seg string) string {
		key := seg[1 : len(seg)-1]
		for _, pv := range all {
			if pv.in == schema.InPath && pv.key == key {
				return `\(` + pv.name + `)`
			}
		}
		return `\(` + camel(key) + `)`
	})
	return m, nil
}

// inlineType renders the type of a body or response schema. Inline objects
// become structs named name and appended to the resource file.
func (r *Renderer) inlineType(namespace, name string, s *schema.Schema, dir analysis.Direction, res *resourceView) (string, error) {
	if s.Kind == schema.Object && s.SchemaKey == "" {
		res.nested = append(res.nested, r.structView(namespace, name, s, dir))
		return name, nil
	}
	typ, reason := r.fieldType(namespace, s)
	if reason != "" {
		return "", errors.New(reason)
	}
	return typ, nil
}
