package codegen

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/mark3labs/swiftsdkgen/internal/analysis"
	"github.com/mark3labs/swiftsdkgen/internal/render"
	"github.com/mark3labs/swiftsdkgen/internal/schema"
)

// Report is the analysis summary written as report.json.
type Report struct {
	RunID         string              `json:"runId"`
	Schemas       []SchemaReport      `json:"schemas"`
	Fallbacks     []FallbackReport    `json:"fallbacks"`
	Discrepancies []DiscrepancyReport `json:"acceptedDiscrepancies,omitempty"`
}

type SchemaReport struct {
	Key          string                `json:"key"`
	Kind         schema.Kind           `json:"kind"`
	Availability analysis.Availability `json:"availability"`
	Direction    analysis.Direction    `json:"direction"`
	File         string                `json:"file,omitempty"`
}

type FallbackReport struct {
	From   string `json:"from"`
	Ref    string `json:"ref"`
	Target string `json:"target"`
}

type DiscrepancyReport struct {
	ID      string   `json:"id"`
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

func buildReport(res *Result, model *schema.Model, r *render.Renderer) *Report {
	rep := &Report{RunID: res.RunID, Schemas: []SchemaReport{}, Fallbacks: []FallbackReport{}}
	for _, key := range model.SchemaKeys() {
		rep.Schemas = append(rep.Schemas, SchemaReport{
			Key:          key,
			Kind:         model.Schemas[key].Kind,
			Availability: res.Availability[key],
			Direction:    res.Direction[key],
			File:         r.ModelPath(key),
		})
	}
	for _, fb := range res.Fallbacks {
		rep.Fallbacks = append(rep.Fallbacks, FallbackReport{From: fb.From, Ref: fb.Ref, Target: fb.Target})
	}
	for _, d := range res.Discrepancies {
		rep.Discrepancies = append(rep.Discrepancies, DiscrepancyReport{ID: d.ID, Missing: d.Missing, Extra: d.Extra})
	}
	return rep
}

// Marshal encodes the report deterministically.
func (rep *Report) Marshal() ([]byte, error) {
	data, err := json.Marshal(rep, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseReport decodes a report.json document.
func ParseReport(data []byte) (*Report, error) {
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &rep, nil
}
