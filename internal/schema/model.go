package schema

import (
	"sort"
	"strings"
)

// Model definitions consumed by the analyses and the renderer.

type HttpMethod string

const (
	GET    HttpMethod = "get"
	POST   HttpMethod = "post"
	PUT    HttpMethod = "put"
	PATCH  HttpMethod = "patch"
	DELETE HttpMethod = "delete"
)

type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
)

// Supported reports whether parameters in l can be rendered.
func (l Location) Supported() bool {
	return l == InPath || l == InQuery || l == InHeader
}

type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Description string
	Schema      *Schema
}

type ResponseKind string

const (
	JSONResponse   ResponseKind = "jsonResponse"
	BinaryResponse ResponseKind = "binaryResponse"
	NoContent      ResponseKind = "noContent"
)

type Response struct {
	Status    string // 200, 4xx, default
	Kind      ResponseKind
	MediaType string
	Schema    *Schema // nil for noContent
}

// Endpoint is one HTTP operation.
type Endpoint struct {
	Namespace   string
	Path        string
	Method      HttpMethod
	OperationID string
	Summary     string
	Description string
	GroupName   string // x-fern-sdk-group-name
	MethodName  string // x-fern-sdk-method-name
	Ignored     bool
	Parameters  []Parameter
	RequestBody *Schema // application/json only
	Responses   []Response
}

// ID returns "method path".
func (e *Endpoint) ID() string { return string(e.Method) + " " + e.Path }

// Success returns the first 2xx response, or nil.
func (e *Endpoint) Success() *Response {
	for i := range e.Responses {
		if strings.HasPrefix(e.Responses[i].Status, "2") {
			return &e.Responses[i]
		}
	}
	return nil
}

type MessageKind string

const (
	PayloadMessage MessageKind = "message"
	OneOfMessage   MessageKind = "oneOf"
	RefMessage     MessageKind = "ref"
)

// Message is an AsyncAPI message: a payload-bearing leaf, a oneOf fan-out,
// or a $ref into the message table.
type Message struct {
	Kind        MessageKind
	Name        string
	Description string
	Payload     *Schema
	OneOf       []*Message
	Ref         string
}

const messageRefPrefix = "#/components/messages/"

// MessageRefName strips the components prefix from a message $ref.
func MessageRefName(ref string) string {
	return strings.TrimPrefix(ref, messageRefPrefix)
}

// Channel is one AsyncAPI channel. Publish is client to server, Subscribe
// is server to client.
type Channel struct {
	Namespace   string
	Name        string
	Description string
	Publish     *Message
	Subscribe   *Message
}

// Model is everything one generation run knows about its inputs.
type Model struct {
	Namespaces []string
	Schemas    map[string]*Schema  // by schema key
	Messages   map[string]*Message // by "ns:Name"
	Endpoints  []*Endpoint
	Channels   []*Channel
}

func NewModel() *Model {
	return &Model{
		Schemas:  make(map[string]*Schema),
		Messages: make(map[string]*Message),
	}
}

// SchemaKeys returns the schema keys in ascending order.
func (m *Model) SchemaKeys() []string {
	keys := make([]string, 0, len(m.Schemas))
	for k := range m.Schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveMessage follows a message $ref within namespace.
func (m *Model) ResolveMessage(namespace, ref string) *Message {
	return m.Messages[Key(namespace, MessageRefName(ref))]
}
