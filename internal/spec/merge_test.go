package spec

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func parseNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(src)), &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc.Content[0]
}

func TestMergeNodes_OverridePrecedence(t *testing.T) {
	t.Parallel()
	base := parseNode(t, `
a: 1
list: [1, 2, 3]
nested:
  keep: yes
  change: old
`)
	override := parseNode(t, `
list: [9]
nested:
  change: new
  added: true
b: 2
`)
	if err := mergeNodes(base, override); err != nil {
		t.Fatalf("merge: %v", err)
	}
	var got struct {
		A      int               `yaml:"a"`
		B      int               `yaml:"b"`
		List   []int             `yaml:"list"`
		Nested map[string]string `yaml:"nested"`
	}
	if err := base.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.A != 1 || got.B != 2 {
		t.Fatalf("unexpected scalars: %+v", got)
	}
	if len(got.List) != 1 || got.List[0] != 9 {
		t.Fatalf("expected sequence replaced, got %v", got.List)
	}
	if got.Nested["keep"] != "yes" || got.Nested["change"] != "new" || got.Nested["added"] != "true" {
		t.Fatalf("unexpected nested merge: %v", got.Nested)
	}

	var order []string
	for i := 0; i < len(base.Content); i += 2 {
		order = append(order, base.Content[i].Value)
	}
	if strings.Join(order, ",") != "a,list,nested,b" {
		t.Fatalf("expected base order kept with new keys appended, got %v", order)
	}
}

func TestMergeNodes_TypeChangeReplaces(t *testing.T) {
	t.Parallel()
	base := parseNode(t, `value: {x: 1}`)
	override := parseNode(t, `value: plain`)
	if err := mergeNodes(base, override); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if v := mappingValue(base, "value"); v == nil || v.Kind != yaml.ScalarNode || v.Value != "plain" {
		t.Fatalf("expected scalar replacement, got %+v", v)
	}
}

func TestApplyBasePath(t *testing.T) {
	t.Parallel()
	root := parseNode(t, `
x-fern-base-path: /v0/tts/
paths:
  /voices: {}
  /tts/file: {}
`)
	applyBasePath(root)
	paths := mappingValue(root, "paths")
	if paths.Content[0].Value != "/v0/tts/voices" || paths.Content[2].Value != "/v0/tts/tts/file" {
		t.Fatalf("unexpected paths: %s, %s", paths.Content[0].Value, paths.Content[2].Value)
	}

	bare := parseNode(t, `
paths:
  /voices: {}
`)
	applyBasePath(bare)
	if got := mappingValue(bare, "paths").Content[0].Value; got != "/voices" {
		t.Fatalf("expected untouched path, got %s", got)
	}
}
