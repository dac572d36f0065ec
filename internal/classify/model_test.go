package classify

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swiftsdkgen/internal/schema"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

func openAPIDoc(t *testing.T, ns, src string) *spec.Document {
	t.Helper()
	var api spec.RawOpenAPI
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(src)), &api); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &spec.Document{Namespace: ns, Kind: spec.OpenAPIKind, Location: ns + ".yaml", OpenAPI: &api}
}

func asyncAPIDoc(t *testing.T, ns, src string) *spec.Document {
	t.Helper()
	var api spec.RawAsyncAPI
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(src)), &api); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &spec.Document{Namespace: ns, Kind: spec.AsyncAPIKind, Location: ns + "-async.yaml", AsyncAPI: &api}
}

const ttsOpenAPI = `
openapi: 3.0.0
info: {title: TTS, version: "1"}
paths:
  /v0/tts/voices/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string}
      - $ref: '#/components/parameters/PageSize'
    get:
      operationId: get-voice
      x-fern-sdk-group-name: voices
      x-fern-sdk-method-name: get
      parameters:
        - name: page_size
          in: query
          description: overridden
          schema: {type: integer}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Voice'}
        "404":
          $ref: '#/components/responses/NotFound'
    delete:
      operationId: delete-voice
      x-fern-ignore: true
      responses:
        "204": {description: gone}
  /v0/tts/file:
    post:
      operationId: synthesize-file
      requestBody:
        content:
          application/json:
            schema: {$ref: '#/components/schemas/PostedTts'}
      responses:
        "200":
          description: audio
          content:
            audio/*:
              schema: {type: string, format: binary}
components:
  parameters:
    PageSize:
      name: page_size
      in: query
      schema: {type: integer}
  responses:
    NotFound:
      description: missing
      content:
        application/json:
          schema: {$ref: '#/components/schemas/ErrorBody'}
  schemas:
    Voice:
      type: object
      properties:
        id: {type: string}
        name: {type: string}
      required: [id]
    PostedTts:
      type: object
      properties:
        utterances:
          type: array
          items: {$ref: '#/components/schemas/Voice'}
    ErrorBody:
      type: object
      properties:
        message: {type: string}
`

const eviAsyncAPI = `
asyncapi: 2.6.0
info: {title: EVI, version: "1"}
channels:
  /v0/evi/chat:
    publish:
      message:
        $ref: '#/components/messages/PublishEvent'
    subscribe:
      message:
        oneOf:
          - $ref: '#/components/messages/AssistantEnd'
          - name: Inline
            description: inline message
            payload: {$ref: '#/components/schemas/Bar'}
components:
  messages:
    PublishEvent:
      name: PublishEvent
      payload: {$ref: '#/components/schemas/UserInput'}
    AssistantEnd:
      payload: {$ref: '#/components/schemas/Bar'}
  schemas:
    UserInput:
      type: object
      properties:
        text: {type: string}
    Bar:
      type: string
`

func TestBuildModel_OpenAPI(t *testing.T) {
	t.Parallel()
	m, err := BuildModel([]*spec.Document{openAPIDoc(t, "tts", ttsOpenAPI)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(m.Schemas) != 3 || m.Schemas["tts:Voice"] == nil || m.Schemas["tts:Voice"].SchemaKey != "tts:Voice" {
		t.Fatalf("unexpected schemas %v", m.SchemaKeys())
	}
	if len(m.Endpoints) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(m.Endpoints))
	}
	// Sorted paths, verbs in fixed order.
	ids := make([]string, len(m.Endpoints))
	for i, ep := range m.Endpoints {
		ids[i] = ep.ID()
	}
	if strings.Join(ids, "|") != "post /v0/tts/file|get /v0/tts/voices/{id}|delete /v0/tts/voices/{id}" {
		t.Fatalf("unexpected endpoint order %v", ids)
	}

	get := m.Endpoints[1]
	if get.GroupName != "voices" || get.MethodName != "get" || get.Namespace != "tts" {
		t.Fatalf("unexpected endpoint metadata %+v", get)
	}
	if len(get.Parameters) != 2 {
		t.Fatalf("expected merged parameters, got %+v", get.Parameters)
	}
	if get.Parameters[0].Name != "id" || get.Parameters[0].In != schema.InPath {
		t.Fatalf("expected path parameter first, got %+v", get.Parameters[0])
	}
	if get.Parameters[1].Name != "page_size" || get.Parameters[1].Description != "overridden" {
		t.Fatalf("expected operation-level parameter to win, got %+v", get.Parameters[1])
	}
	if len(get.Responses) != 2 || get.Responses[0].Kind != schema.JSONResponse || get.Responses[1].Kind != schema.JSONResponse {
		t.Fatalf("unexpected responses %+v", get.Responses)
	}
	if get.Responses[1].Schema.RefName() != "ErrorBody" {
		t.Fatalf("expected response ref resolved, got %+v", get.Responses[1].Schema)
	}

	post := m.Endpoints[0]
	if post.RequestBody == nil || post.RequestBody.RefName() != "PostedTts" {
		t.Fatalf("expected JSON body, got %+v", post.RequestBody)
	}
	if post.Responses[0].Kind != schema.BinaryResponse || post.Responses[0].MediaType != "audio/*" {
		t.Fatalf("expected binary response, got %+v", post.Responses[0])
	}

	del := m.Endpoints[2]
	if !del.Ignored || len(del.Responses) != 0 {
		t.Fatalf("expected ignored endpoint without contents, got %+v", del)
	}

	if err := Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBuildModel_AsyncAPI(t *testing.T) {
	t.Parallel()
	m, err := BuildModel([]*spec.Document{asyncAPIDoc(t, "evi", eviAsyncAPI)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(m.Channels) != 1 || len(m.Messages) != 2 {
		t.Fatalf("unexpected channels/messages: %d/%d", len(m.Channels), len(m.Messages))
	}
	ch := m.Channels[0]
	if ch.Publish.Kind != schema.RefMessage || m.ResolveMessage("evi", ch.Publish.Ref) == nil {
		t.Fatalf("expected resolvable publish ref, got %+v", ch.Publish)
	}
	if ch.Subscribe.Kind != schema.OneOfMessage || len(ch.Subscribe.OneOf) != 2 {
		t.Fatalf("expected oneOf subscribe, got %+v", ch.Subscribe)
	}
	inline := ch.Subscribe.OneOf[1]
	if inline.Kind != schema.PayloadMessage || inline.Name != "Inline" || inline.Payload.RefName() != "Bar" {
		t.Fatalf("unexpected inline message %+v", inline)
	}
	if m.Messages["evi:AssistantEnd"].Name != "AssistantEnd" {
		t.Fatalf("expected component name as default message name")
	}
	if err := Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBuildModel_DuplicateKeys(t *testing.T) {
	t.Parallel()
	a := openAPIDoc(t, "tts", ttsOpenAPI)
	b := openAPIDoc(t, "tts", ttsOpenAPI)
	if _, err := BuildModel([]*spec.Document{a, b}); err == nil || !strings.Contains(err.Error(), "duplicate schema key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	// Same names in different namespaces are fine.
	c := openAPIDoc(t, "evi", ttsOpenAPI)
	m, err := BuildModel([]*spec.Document{a, c})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Join(m.Namespaces, ",") != "tts,evi" {
		t.Fatalf("unexpected namespaces %v", m.Namespaces)
	}
}

func TestBuildModel_UnknownParameterRef(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t, "tts", `
openapi: 3.0.0
paths:
  /x:
    get:
      parameters:
        - $ref: '#/components/parameters/Missing'
      responses: {}
`)
	if _, err := BuildModel([]*spec.Document{doc}); err == nil || !strings.Contains(err.Error(), "unknown parameter ref") {
		t.Fatalf("expected unknown parameter ref, got %v", err)
	}
}

func TestBuildModel_ClassifyErrorCarriesPointer(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t, "tts", `
openapi: 3.0.0
components:
  schemas:
    Broken:
      oneOf:
        - type: string
        - $ref: '#/components/schemas/Other'
`)
	_, err := BuildModel([]*spec.Document{doc})
	var ce *ClassifyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClassifyError, got %v", err)
	}
	if ce.Pointer != "#/components/schemas/Broken" {
		t.Fatalf("unexpected pointer %q", ce.Pointer)
	}
}

func TestValidate_CollectsEveryIssue(t *testing.T) {
	t.Parallel()
	m := schema.NewModel()
	m.Schemas["tts:Untagged"] = &schema.Schema{}
	m.Schemas["tts:Pair"] = &schema.Schema{Kind: schema.StringOrInteger, Variants: []*schema.Schema{{Kind: schema.Primitive, Type: "string"}}}
	m.Schemas["tts:Colors"] = &schema.Schema{Kind: schema.Enum}
	m.Schemas["tts:Event"] = &schema.Schema{Kind: schema.DiscriminatedUnion, Variants: []*schema.Schema{{Kind: schema.Ref, Ref: "#/components/schemas/A"}}}
	m.Endpoints = append(m.Endpoints, &schema.Endpoint{
		Namespace: "tts",
		Path:      "/x",
		Method:    schema.GET,
		Parameters: []schema.Parameter{
			{Name: "session", In: "cookie", Schema: &schema.Schema{Kind: schema.Primitive, Type: "string"}},
		},
	})
	m.Messages["evi:Dangling"] = &schema.Message{Kind: schema.RefMessage, Ref: "#/components/messages/Nowhere"}
	m.Messages["evi:Hollow"] = &schema.Message{Kind: schema.PayloadMessage, Name: "Hollow"}

	err := Validate(m)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"enum without values",
		"discriminated union without property name",
		"expected exactly two variants",
		"node left untagged",
		"unsupported parameter location",
		"unresolvable message ref",
		"message without payload",
	}
	if len(ve.Issues) != len(want) {
		t.Fatalf("expected %d issues, got %d:\n%v", len(want), len(ve.Issues), err)
	}
	for i, w := range want {
		if ve.Issues[i].Message != w {
			t.Fatalf("issue %d: expected %q, got %q", i, w, ve.Issues[i].Message)
		}
	}
	if !strings.Contains(err.Error(), "#/paths/~1x/get/parameters/0/in") {
		t.Fatalf("expected pointer in message, got:\n%s", err)
	}
}
