package spec

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func decodeSchema(t *testing.T, src string) *RawSchema {
	t.Helper()
	var s RawSchema
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(src)), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &s
}

func TestRawSchema_TypeForms(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		src      string
		single   string
		nullable bool
	}{
		{name: "scalar", src: `type: string`, single: "string"},
		{name: "list with null", src: `type: [integer, "null"]`, single: "integer", nullable: true},
		{name: "list of two", src: `type: [string, integer]`},
		{name: "absent", src: `description: x`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := decodeSchema(t, tc.src)
			name, null := s.Type.Single()
			if name != tc.single || null != tc.nullable {
				t.Fatalf("Single() = %q, %v; want %q, %v", name, null, tc.single, tc.nullable)
			}
		})
	}
}

func TestRawSchema_KeysAndPropertyOrder(t *testing.T) {
	t.Parallel()
	s := decodeSchema(t, `
type: object
additionalProperties: false
properties:
  b: {type: string}
  a: {type: string}
  c: {$ref: '#/components/schemas/C'}
`)
	if got := strings.Join(s.Keys(), ","); got != "type,additionalProperties,properties" {
		t.Fatalf("unexpected keys %s", got)
	}
	if got := strings.Join(s.PropertyNames(), ","); got != "b,a,c" {
		t.Fatalf("unexpected property order %s", got)
	}
	if !s.AdditionalProperties.IsFalse() {
		t.Fatalf("expected additionalProperties: false")
	}
	if s.Properties["c"].Ref != "#/components/schemas/C" {
		t.Fatalf("expected ref on c, got %+v", s.Properties["c"])
	}
}

func TestRawSchema_AdditionalPropertiesSchema(t *testing.T) {
	t.Parallel()
	s := decodeSchema(t, `
type: object
additionalProperties:
  type: integer
`)
	if s.AdditionalProperties == nil || s.AdditionalProperties.Schema == nil {
		t.Fatalf("expected schema-valued additionalProperties")
	}
	if !s.AdditionalProperties.Schema.Type.Is("integer") {
		t.Fatalf("unexpected value type %v", s.AdditionalProperties.Schema.Type.Names)
	}
	if s.AdditionalProperties.IsFalse() {
		t.Fatalf("schema-valued additionalProperties is not false")
	}
}

func TestRawSchema_RoundTripsThroughYAML(t *testing.T) {
	t.Parallel()
	s := decodeSchema(t, `
type: [string, "null"]
enum: [a, b]
`)
	out, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "- string") || !strings.Contains(string(out), "- \"null\"") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}

func TestRawPathItem_SplitsVerbs(t *testing.T) {
	t.Parallel()
	var item RawPathItem
	src := `
parameters:
  - name: id
    in: path
    required: true
    schema: {type: string}
get:
  operationId: get-thing
delete:
  operationId: delete-thing
summary: ignored
`
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(src)), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(item.Parameters) != 1 || item.Parameters[0].Name != "id" {
		t.Fatalf("unexpected parameters %+v", item.Parameters)
	}
	if len(item.Operations) != 2 || item.Operations["get"].OperationID != "get-thing" {
		t.Fatalf("unexpected operations %+v", item.Operations)
	}
}
