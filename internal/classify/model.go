package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/swiftsdkgen/internal/schema"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// BuildModel classifies every schema, operation and message of docs into
// one Model. Schemas are keyed "<namespace>:<name>"; a key defined by two
// documents is an error.
func BuildModel(docs []*spec.Document) (*schema.Model, error) {
	m := schema.NewModel()
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if !containsString(m.Namespaces, doc.Namespace) {
			m.Namespaces = append(m.Namespaces, doc.Namespace)
		}
		b := &builder{doc: doc, model: m, classifier: New(doc.Schemas())}
		if err := b.schemas(); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Location, err)
		}
		var err error
		switch {
		case doc.OpenAPI != nil:
			err = b.endpoints()
		case doc.AsyncAPI != nil:
			err = b.asyncAPI()
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Location, err)
		}
	}
	return m, nil
}

type builder struct {
	doc        *spec.Document
	model      *schema.Model
	classifier *Classifier
}

func (b *builder) schemas() error {
	raw := b.doc.Schemas()
	for _, name := range spec.SortedKeys(raw) {
		key := schema.Key(b.doc.Namespace, name)
		if _, dup := b.model.Schemas[key]; dup {
			return fmt.Errorf("duplicate schema key %q", key)
		}
		s, err := b.classifier.Classify(raw[name], key, schema.AppendPointer("#/components/schemas", name))
		if err != nil {
			return err
		}
		b.model.Schemas[key] = s
	}
	return nil
}

func (b *builder) endpoints() error {
	api := b.doc.OpenAPI
	for _, path := range spec.SortedKeys(api.Paths) {
		item := api.Paths[path]
		if item == nil {
			continue
		}
		for _, verb := range spec.HTTPVerbs {
			op := item.Operations[verb]
			if op == nil {
				continue
			}
			ep, err := b.endpoint(path, verb, item, op)
			if err != nil {
				return err
			}
			b.model.Endpoints = append(b.model.Endpoints, ep)
		}
	}
	return nil
}

func (b *builder) endpoint(path, verb string, item *spec.RawPathItem, op *spec.RawOperation) (*schema.Endpoint, error) {
	pathPtr := schema.AppendPointer("#/paths", path)
	opPtr := schema.AppendPointer(pathPtr, verb)
	ep := &schema.Endpoint{
		Namespace:   b.doc.Namespace,
		Path:        path,
		Method:      schema.HttpMethod(verb),
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		GroupName:   op.GroupName,
		MethodName:  op.MethodName,
		Ignored:     op.Ignore,
	}
	if op.Ignore {
		return ep, nil
	}

	// Path-level parameters first, overridden by operation-level ones.
	index := make(map[string]int)
	addParams := func(list []*spec.RawParameter, ptr string) error {
		for i, raw := range list {
			p := schema.AppendPointer(ptr, "parameters", strconv.Itoa(i))
			param, err := b.parameter(raw, p)
			if err != nil {
				return err
			}
			if param == nil {
				continue
			}
			k := paramKey(string(param.In), param.Name)
			if at, ok := index[k]; ok {
				ep.Parameters[at] = *param
				continue
			}
			index[k] = len(ep.Parameters)
			ep.Parameters = append(ep.Parameters, *param)
		}
		return nil
	}
	if err := addParams(item.Parameters, pathPtr); err != nil {
		return nil, err
	}
	if err := addParams(op.Parameters, opPtr); err != nil {
		return nil, err
	}

	if op.RequestBody != nil {
		body, err := b.requestBody(op.RequestBody)
		if err != nil {
			return nil, fmt.Errorf("%s/requestBody: %w", opPtr, err)
		}
		if media := body.Content["application/json"]; media != nil && media.Schema != nil {
			s, err := b.classifier.Classify(media.Schema, "", schema.AppendPointer(opPtr, "requestBody", "content", "application/json", "schema"))
			if err != nil {
				return nil, err
			}
			ep.RequestBody = s
		}
	}

	for _, status := range spec.SortedKeys(op.Responses) {
		ptr := schema.AppendPointer(opPtr, "responses", status)
		resp, err := b.response(status, op.Responses[status], ptr)
		if err != nil {
			return nil, err
		}
		ep.Responses = append(ep.Responses, resp)
	}
	return ep, nil
}

func (b *builder) parameter(raw *spec.RawParameter, ptr string) (*schema.Parameter, error) {
	if raw == nil {
		return nil, nil
	}
	if raw.Ref != "" {
		name := strings.TrimPrefix(raw.Ref, "#/components/parameters/")
		resolved := b.doc.OpenAPI.Components.Parameters[name]
		if resolved == nil {
			return nil, fmt.Errorf("%s: unknown parameter ref %q", ptr, raw.Ref)
		}
		raw = resolved
		ptr = schema.AppendPointer("#/components/parameters", name)
	}
	param := &schema.Parameter{
		Name:        raw.Name,
		In:          schema.Location(raw.In),
		Required:    raw.Required,
		Description: raw.Description,
	}
	if raw.Schema != nil {
		s, err := b.classifier.Classify(raw.Schema, "", schema.AppendPointer(ptr, "schema"))
		if err != nil {
			return nil, err
		}
		param.Schema = s
	}
	return param, nil
}

func (b *builder) requestBody(raw *spec.RawRequestBody) (*spec.RawRequestBody, error) {
	if raw.Ref == "" {
		return raw, nil
	}
	name := strings.TrimPrefix(raw.Ref, "#/components/requestBodies/")
	resolved := b.doc.OpenAPI.Components.RequestBodies[name]
	if resolved == nil {
		return nil, fmt.Errorf("unknown request body ref %q", raw.Ref)
	}
	return resolved, nil
}

func (b *builder) response(status string, raw *spec.RawResponse, ptr string) (schema.Response, error) {
	resp := schema.Response{Status: status, Kind: schema.NoContent}
	if raw == nil {
		return resp, nil
	}
	if raw.Ref != "" {
		name := strings.TrimPrefix(raw.Ref, "#/components/responses/")
		resolved := b.doc.OpenAPI.Components.Responses[name]
		if resolved == nil {
			return resp, fmt.Errorf("%s: unknown response ref %q", ptr, raw.Ref)
		}
		raw = resolved
		ptr = schema.AppendPointer("#/components/responses", name)
	}
	kind, mediaType := pickMedia(raw.Content)
	if kind == schema.NoContent {
		return resp, nil
	}
	s, err := b.classifier.Classify(raw.Content[mediaType].Schema, "", schema.AppendPointer(ptr, "content", mediaType, "schema"))
	if err != nil {
		return resp, err
	}
	resp.Kind = kind
	resp.MediaType = mediaType
	resp.Schema = s
	return resp, nil
}

// pickMedia chooses how a response is consumed: audio and octet streams win
// over JSON; anything else has no content.
func pickMedia(content map[string]*spec.RawMediaType) (schema.ResponseKind, string) {
	jsonType := ""
	for _, mt := range spec.SortedKeys(content) {
		media := content[mt]
		if media == nil || media.Schema == nil {
			continue
		}
		if strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream" {
			return schema.BinaryResponse, mt
		}
		if mt == "application/json" {
			jsonType = mt
		}
	}
	if jsonType != "" {
		return schema.JSONResponse, jsonType
	}
	return schema.NoContent, ""
}

func (b *builder) asyncAPI() error {
	api := b.doc.AsyncAPI
	for _, name := range spec.SortedKeys(api.Components.Messages) {
		key := schema.Key(b.doc.Namespace, name)
		if _, dup := b.model.Messages[key]; dup {
			return fmt.Errorf("duplicate message key %q", key)
		}
		msg, err := b.message(api.Components.Messages[name], name, schema.AppendPointer("#/components/messages", name))
		if err != nil {
			return err
		}
		b.model.Messages[key] = msg
	}
	for _, name := range spec.SortedKeys(api.Channels) {
		raw := api.Channels[name]
		if raw == nil {
			continue
		}
		ptr := schema.AppendPointer("#/channels", name)
		ch := &schema.Channel{Namespace: b.doc.Namespace, Name: name, Description: raw.Description}
		if raw.Publish != nil && raw.Publish.Message != nil {
			msg, err := b.message(raw.Publish.Message, "", schema.AppendPointer(ptr, "publish", "message"))
			if err != nil {
				return err
			}
			ch.Publish = msg
		}
		if raw.Subscribe != nil && raw.Subscribe.Message != nil {
			msg, err := b.message(raw.Subscribe.Message, "", schema.AppendPointer(ptr, "subscribe", "message"))
			if err != nil {
				return err
			}
			ch.Subscribe = msg
		}
		b.model.Channels = append(b.model.Channels, ch)
	}
	return nil
}

func (b *builder) message(raw *spec.RawMessage, name, ptr string) (*schema.Message, error) {
	if raw == nil {
		return &schema.Message{Kind: schema.PayloadMessage, Name: name}, nil
	}
	switch {
	case raw.Ref != "":
		return &schema.Message{Kind: schema.RefMessage, Name: name, Ref: raw.Ref}, nil
	case raw.OneOf != nil:
		msg := &schema.Message{Kind: schema.OneOfMessage, Name: name, Description: raw.Description}
		for i, m := range raw.OneOf {
			child, err := b.message(m, "", schema.AppendPointer(ptr, "oneOf", strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			msg.OneOf = append(msg.OneOf, child)
		}
		return msg, nil
	}
	msg := &schema.Message{Kind: schema.PayloadMessage, Name: raw.Name, Description: raw.Description}
	if msg.Name == "" {
		msg.Name = name
	}
	if raw.Payload != nil {
		payload, err := b.classifier.Classify(raw.Payload, "", schema.AppendPointer(ptr, "payload"))
		if err != nil {
			return nil, err
		}
		msg.Payload = payload
	}
	return msg, nil
}

func paramKey(in, name string) string { return in + ":" + name }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
