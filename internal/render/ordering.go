package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Orderings maps an identifier such as "Voice.init" or "Configs.createConfig"
// to its recorded parameter order.
type Orderings map[string][]string

// Ordering is the result of stabilizing one identifier.
type Ordering struct {
	Order   []string
	Missing []string // present now, absent from the recorded order
	Extra   []string // recorded, no longer present
}

// StabilizeOrder keeps the recorded order for names that still exist and
// appends new names in their current order.
func StabilizeOrder(recorded, current []string) Ordering {
	now := make(map[string]bool, len(current))
	for _, n := range current {
		now[n] = true
	}
	before := make(map[string]bool, len(recorded))
	var o Ordering
	for _, n := range recorded {
		if before[n] {
			continue
		}
		before[n] = true
		if now[n] {
			o.Order = append(o.Order, n)
		} else {
			o.Extra = append(o.Extra, n)
		}
	}
	for _, n := range current {
		if before[n] {
			continue
		}
		before[n] = true
		o.Missing = append(o.Missing, n)
		o.Order = append(o.Order, n)
	}
	return o
}

// Discrepancy is one identifier whose current names differ from the baseline.
type Discrepancy struct {
	ID      string
	Missing []string
	Extra   []string
}

func (d Discrepancy) String() string {
	var parts []string
	if len(d.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(d.Missing, ", "))
	}
	if len(d.Extra) > 0 {
		parts = append(parts, "extra "+strings.Join(d.Extra, ", "))
	}
	return d.ID + ": " + strings.Join(parts, "; ")
}

// DiscrepancyError reports every identifier that drifted from the baseline
// during one run.
type DiscrepancyError struct {
	Discrepancies []Discrepancy
}

func (e *DiscrepancyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parameter orderings differ from baseline for %d identifier(s)", len(e.Discrepancies))
	for _, d := range e.Discrepancies {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// OrderingState carries the baseline and everything stabilized so far in one
// render run. It is not safe for concurrent use.
type OrderingState struct {
	baseline      Orderings
	fixed         Orderings
	discrepancies map[string]Discrepancy
}

func NewOrderingState(baseline Orderings) *OrderingState {
	return &OrderingState{
		baseline:      baseline,
		fixed:         make(Orderings),
		discrepancies: make(map[string]Discrepancy),
	}
}

// Stabilize orders names for id against the baseline and records the result
// as the candidate baseline entry.
func (s *OrderingState) Stabilize(id string, names []string) []string {
	o := StabilizeOrder(s.baseline[id], names)
	s.fixed[id] = append([]string{}, o.Order...)
	if len(o.Missing) > 0 || len(o.Extra) > 0 {
		s.discrepancies[id] = Discrepancy{ID: id, Missing: o.Missing, Extra: o.Extra}
	} else {
		delete(s.discrepancies, id)
	}
	return o.Order
}

// Fixed returns the orderings computed in this run, suitable as the next baseline.
func (s *OrderingState) Fixed() Orderings {
	out := make(Orderings, len(s.fixed))
	for k, v := range s.fixed {
		out[k] = append([]string{}, v...)
	}
	return out
}

// Discrepancies returns every drifted identifier sorted by id.
func (s *OrderingState) Discrepancies() []Discrepancy {
	out := make([]Discrepancy, 0, len(s.discrepancies))
	for _, d := range s.discrepancies {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Err returns a *DiscrepancyError when any identifier drifted, else nil.
func (s *OrderingState) Err() error {
	ds := s.Discrepancies()
	if len(ds) == 0 {
		return nil
	}
	return &DiscrepancyError{Discrepancies: ds}
}

// ParseOrderings decodes a baseline document. Empty input is an empty baseline.
func ParseOrderings(data []byte) (Orderings, error) {
	o := make(Orderings)
	if len(strings.TrimSpace(string(data))) == 0 {
		return o, nil
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse orderings: %w", err)
	}
	return o, nil
}

// LoadOrderings reads the baseline at path. A missing file is an empty baseline.
func LoadOrderings(path string) (Orderings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(Orderings), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read orderings %s: %w", path, err)
	}
	return ParseOrderings(data)
}

// Marshal encodes o with sorted keys and a trailing newline.
func (o Orderings) Marshal() ([]byte, error) {
	if o == nil {
		o = Orderings{}
	}
	data, err := json.Marshal(o, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("marshal orderings: %w", err)
	}
	return append(data, '\n'), nil
}
