package render

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestStabilizeOrder_RoundTrip(t *testing.T) {
	t.Parallel()
	got := StabilizeOrder([]string{"a", "b", "c"}, []string{"b", "c", "d"})
	want := Ordering{Order: []string{"b", "c", "d"}, Missing: []string{"d"}, Extra: []string{"a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStabilizeOrder_Cases(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		recorded []string
		current  []string
		order    []string
		drift    bool
	}{
		{"empty baseline reports everything missing", nil, []string{"x", "y"}, []string{"x", "y"}, true},
		{"same set keeps recorded order", []string{"y", "x"}, []string{"x", "y"}, []string{"y", "x"}, false},
		{"nothing to order", nil, nil, nil, false},
		{"all removed", []string{"x"}, nil, nil, true},
		{"duplicate current names collapse", []string{"x"}, []string{"x", "x"}, []string{"x"}, false},
	}
	for _, tc := range cases {
		got := StabilizeOrder(tc.recorded, tc.current)
		if !reflect.DeepEqual(got.Order, tc.order) {
			t.Fatalf("%s: order %v, want %v", tc.name, got.Order, tc.order)
		}
		if drift := len(got.Missing)+len(got.Extra) > 0; drift != tc.drift {
			t.Fatalf("%s: drift %v, want %v (%+v)", tc.name, drift, tc.drift, got)
		}
	}
}

func TestOrderingState_CollectsEveryDiscrepancy(t *testing.T) {
	t.Parallel()
	s := NewOrderingState(Orderings{
		"Voice.init":  {"name", "provider"},
		"Chat.init":   {"text"},
		"Stable.init": {"a", "b"},
	})
	s.Stabilize("Voice.init", []string{"provider", "name", "id"})
	s.Stabilize("Stable.init", []string{"b", "a"})
	s.Stabilize("Chat.init", []string{"content"})

	ds := s.Discrepancies()
	if len(ds) != 2 || ds[0].ID != "Chat.init" || ds[1].ID != "Voice.init" {
		t.Fatalf("unexpected discrepancies %+v", ds)
	}
	var de *DiscrepancyError
	if err := s.Err(); !errors.As(err, &de) {
		t.Fatalf("expected DiscrepancyError, got %v", err)
	}
	msg := de.Error()
	for _, want := range []string{"2 identifier(s)", "Chat.init: missing content; extra text", "Voice.init: missing id"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %q", msg, want)
		}
	}
}

func TestOrderingState_FixedBecomesCleanBaseline(t *testing.T) {
	t.Parallel()
	first := NewOrderingState(nil)
	first.Stabilize("Voice.init", []string{"name", "provider"})
	if first.Err() == nil {
		t.Fatal("expected first run against an empty baseline to drift")
	}

	second := NewOrderingState(first.Fixed())
	order := second.Stabilize("Voice.init", []string{"provider", "name"})
	if err := second.Err(); err != nil {
		t.Fatalf("expected no drift, got %v", err)
	}
	if strings.Join(order, ",") != "name,provider" {
		t.Fatalf("expected recorded order, got %v", order)
	}
}

func TestOrderings_MarshalIsDeterministic(t *testing.T) {
	t.Parallel()
	o := Orderings{"b.init": {"y", "x"}, "a.init": {"z"}, "c.init": {}}
	first, err := o.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, _ := o.Marshal()
		if string(again) != string(first) {
			t.Fatalf("marshal output changed:\n%s\n%s", first, again)
		}
	}
	text := string(first)
	if strings.Index(text, "a.init") > strings.Index(text, "b.init") {
		t.Fatalf("keys not sorted:\n%s", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Fatal("expected trailing newline")
	}
	back, err := ParseOrderings(first)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back["b.init"], []string{"y", "x"}) || len(back["c.init"]) != 0 {
		t.Fatalf("unexpected parse result %v", back)
	}
}

func TestLoadOrderings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	o, err := LoadOrderings(filepath.Join(dir, "missing.json"))
	if err != nil || len(o) != 0 {
		t.Fatalf("missing file: %v %v", o, err)
	}

	p := filepath.Join(dir, "orderings.json")
	if err := os.WriteFile(p, []byte(`{"Voice.init": ["name"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	o, err = LoadOrderings(p)
	if err != nil || o["Voice.init"][0] != "name" {
		t.Fatalf("load: %v %v", o, err)
	}

	if err := os.WriteFile(p, []byte(`{"Voice.init": "name"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrderings(p); err == nil {
		t.Fatal("expected parse error")
	}
}
