// Package codegen runs one generation end to end: load, classify, validate,
// analyze, render and write.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mark3labs/swiftsdkgen/internal/analysis"
	"github.com/mark3labs/swiftsdkgen/internal/classify"
	"github.com/mark3labs/swiftsdkgen/internal/graph"
	"github.com/mark3labs/swiftsdkgen/internal/render"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// ReportFile is written next to the generated sources.
const ReportFile = "report.json"

// Config holds every input of a generation run.
type Config struct {
	Sources []spec.Source
	// Namespaces is the probe order for refs from outside any known
	// namespace. Empty uses graph.DefaultNamespaces.
	Namespaces []string
	// ServerOnlyPaths are regular expressions over endpoint paths. Nil uses
	// analysis.DefaultServerOnlyPaths; an empty non-nil list matches nothing.
	ServerOnlyPaths []string
	// OrderingsPath is the parameter ordering baseline. Empty runs against
	// an empty baseline and records nothing.
	OrderingsPath   string
	AcceptOrderings bool
	OutDir          string
	Force           bool
	DryRun          bool
	Validate        bool
	LoadOptions     []spec.Option
}

// Result summarizes a run. It is returned alongside a *render.DiscrepancyError
// so callers can still report what drifted.
type Result struct {
	RunID            string
	Planned          []render.PlannedFile
	Availability     map[string]analysis.Availability
	Direction        map[string]analysis.Direction
	Fallbacks        []graph.Fallback
	Discrepancies    []render.Discrepancy
	OrderingsWritten bool
}

// Run executes one generation. Either every output is written or nothing is.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) (*Result, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("codegen: no input documents")
	}
	if strings.TrimSpace(cfg.OutDir) == "" {
		return nil, errors.New("codegen: output directory is required")
	}
	res := &Result{RunID: uuid.NewString()}
	log = log.With().Str("run", res.RunID).Logger()

	opts := append([]spec.Option{spec.WithValidation(cfg.Validate)}, cfg.LoadOptions...)
	docs, err := spec.LoadAll(ctx, cfg.Sources, opts...)
	if err != nil {
		return res, err
	}
	for _, doc := range docs {
		log.Debug().Str("namespace", doc.Namespace).Str("kind", string(doc.Kind)).Str("location", doc.Location).Msg("loaded document")
	}

	model, err := classify.BuildModel(docs)
	if err != nil {
		return res, err
	}
	if err := classify.Validate(model); err != nil {
		return res, err
	}
	log.Info().Int("schemas", len(model.Schemas)).Int("endpoints", len(model.Endpoints)).Int("channels", len(model.Channels)).Msg("classified model")

	namespaces := cfg.Namespaces
	if len(namespaces) == 0 {
		namespaces = graph.DefaultNamespaces
	}
	g, err := graph.Build(model.Schemas, graph.NewResolver(model.SchemaKeys(), namespaces))
	if err != nil {
		return res, err
	}

	patterns := cfg.ServerOnlyPaths
	if patterns == nil {
		patterns = analysis.DefaultServerOnlyPaths
	}
	serverOnly, err := analysis.ServerOnlyPaths(patterns)
	if err != nil {
		return res, err
	}
	facts, err := analysis.Run(model, g, analysis.Options{ServerOnly: serverOnly})
	if err != nil {
		return res, err
	}
	res.Availability = facts.Availability
	res.Direction = facts.Direction
	res.Fallbacks = append(g.Fallbacks(), facts.Fallbacks...)
	for _, fb := range res.Fallbacks {
		log.Warn().Str("key", fb.From).Str("ref", fb.Ref).Str("target", fb.Target).Msg("ref resolved by bare name")
	}

	baseline := render.Orderings{}
	if cfg.OrderingsPath != "" {
		if baseline, err = render.LoadOrderings(cfg.OrderingsPath); err != nil {
			return res, err
		}
	}
	r := render.New(model, g, facts, render.NewOrderingState(baseline), render.Options{ServerOnly: serverOnly})
	files, err := r.Render()
	if err != nil {
		return res, err
	}
	res.Discrepancies = r.Orderings().Discrepancies()
	for _, d := range res.Discrepancies {
		log.Warn().Str("id", d.ID).Strs("missing", d.Missing).Strs("extra", d.Extra).Msg("parameter ordering drift")
	}
	if err := r.Orderings().Err(); err != nil && !cfg.AcceptOrderings {
		return res, err
	}

	report, err := buildReport(res, model, r).Marshal()
	if err != nil {
		return res, err
	}
	files[ReportFile] = report

	res.Planned, err = render.Emit(ctx, files, render.EmitOptions{OutDir: cfg.OutDir, Force: cfg.Force, DryRun: cfg.DryRun})
	if err != nil {
		return res, err
	}
	if cfg.DryRun || cfg.OrderingsPath == "" {
		log.Info().Int("files", len(res.Planned)).Bool("dryRun", cfg.DryRun).Msg("generation finished")
		return res, nil
	}

	data, err := r.Orderings().Fixed().Marshal()
	if err != nil {
		return res, err
	}
	if err := render.WriteFileAtomic(cfg.OrderingsPath, data); err != nil {
		return res, fmt.Errorf("write orderings: %w", err)
	}
	res.OrderingsWritten = true
	log.Info().Int("files", len(res.Planned)).Str("orderings", cfg.OrderingsPath).Msg("generation finished")
	return res, nil
}
