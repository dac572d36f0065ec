package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swiftsdkgen/internal/codegen"
	"github.com/mark3labs/swiftsdkgen/internal/graph"
	"github.com/mark3labs/swiftsdkgen/internal/render"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// Assignment binds a document path to a namespace ("evi=openapi.yaml").
type Assignment struct {
	Namespace string
	Path      string
}

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	OpenAPI           []Assignment
	OpenAPIOverrides  []Assignment
	AsyncAPI          []Assignment
	AsyncAPIOverrides []Assignment
	Namespaces        []string
	// ServerOnlyPaths is nil when unset so the pipeline default applies.
	ServerOnlyPaths []string
	Orderings       string
	Out             string
	ConfigPath      string
	AcceptOrderings bool
	Validate        bool
	DryRun          bool
	Force           bool
	Watch           bool
	Verbose         bool
	LogFormat       string
	LogLevel        string
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Out: "Sources", LogFormat: "console", LogLevel: "info"}
}

var generateRunner = runGenerate

// logOutput receives CLI logs; stdout stays reserved for the dry-run plan.
var logOutput io.Writer = os.Stderr

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Swift SDK sources from OpenAPI/AsyncAPI documents",
		Long: "Generate Swift SDK sources from namespaced OpenAPI and AsyncAPI documents. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swiftsdkgen generate --openapi evi=openapi.yaml --asyncapi evi=asyncapi.json --out ./Sources
  swiftsdkgen --config swiftsdkgen.yaml generate --accept-orderings
  swiftsdkgen --config swiftsdkgen.yaml generate --watch`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringArray("openapi", nil, "OpenAPI document as namespace=path (repeatable)")
	flags.StringArray("openapi-overrides", nil, "OpenAPI override document as namespace=path (repeatable, applied in order)")
	flags.StringArray("asyncapi", nil, "AsyncAPI document as namespace=path (repeatable)")
	flags.StringArray("asyncapi-overrides", nil, "AsyncAPI override document as namespace=path (repeatable, applied in order)")
	flags.StringSlice("namespaces", nil, "Namespace probe order for refs that resolve by bare name")
	flags.StringSlice("server-only-paths", nil, "Regular expressions for endpoint paths that only the server SDK calls (default /configs)")
	flags.String("orderings", "", "Parameter ordering baseline file (JSON)")
	flags.String("out", "", "Output directory; defaults to ./Sources")
	flags.Bool("accept-orderings", false, "Accept parameter ordering drift and record the new baseline")
	flags.Bool("validate", false, "Validate merged OpenAPI documents with kin-openapi")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	flags.Bool("watch", false, "Regenerate whenever an input document changes")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	assignments := []struct {
		name   string
		target *[]Assignment
	}{
		{"openapi", &cfg.OpenAPI},
		{"openapi-overrides", &cfg.OpenAPIOverrides},
		{"asyncapi", &cfg.AsyncAPI},
		{"asyncapi-overrides", &cfg.AsyncAPIOverrides},
	}
	for _, a := range assignments {
		if !flags.Changed(a.name) {
			continue
		}
		values, err := flags.GetStringArray(a.name)
		if err != nil {
			return err
		}
		parsed, err := parseAssignments(values)
		if err != nil {
			return newUsageErrorf("--%s: %v", a.name, err)
		}
		*a.target = parsed
	}
	if flags.Changed("namespaces") {
		value, err := flags.GetStringSlice("namespaces")
		if err != nil {
			return err
		}
		cfg.Namespaces = sanitizeList(value)
	}
	if flags.Changed("server-only-paths") {
		value, err := flags.GetStringSlice("server-only-paths")
		if err != nil {
			return err
		}
		// An explicit empty flag disables the default patterns.
		cfg.ServerOnlyPaths = append([]string{}, sanitizeList(value)...)
	}
	if flags.Changed("orderings") {
		value, err := flags.GetString("orderings")
		if err != nil {
			return err
		}
		cfg.Orderings = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("log-format") {
		value, err := flags.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = value
	}
	if flags.Changed("log-level") {
		value, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = value
	}

	bools := []struct {
		name   string
		target *bool
	}{
		{"accept-orderings", &cfg.AcceptOrderings},
		{"validate", &cfg.Validate},
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"watch", &cfg.Watch},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.target = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Out = strings.TrimSpace(c.Out)
	c.Orderings = strings.TrimSpace(c.Orderings)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Namespaces = sanitizeList(c.Namespaces)
}

func (c *GenerateConfig) validate() error {
	if len(c.OpenAPI) == 0 && len(c.AsyncAPI) == 0 {
		return newUsageError("generate: at least one --openapi or --asyncapi document is required (set via flag or config file)")
	}
	if c.Out == "" {
		return newUsageError("generate: --out must not be empty")
	}
	if c.Watch && c.DryRun {
		return newUsageError("generate: --watch and --dry-run cannot be combined")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return newUsageErrorf("generate: unsupported --log-format %q (allowed: console, json)", c.LogFormat)
	}
	if _, err := c.sources(); err != nil {
		return err
	}
	return nil
}

// sources pairs every document with its overrides. Each namespace may carry at
// most one document per kind, and every override needs a document to apply to.
func (c *GenerateConfig) sources() ([]spec.Source, error) {
	var out []spec.Source
	build := func(kind spec.DocumentKind, docs, overrides []Assignment) error {
		index := make(map[string]int, len(docs))
		for _, d := range docs {
			if _, dup := index[d.Namespace]; dup {
				return newUsageErrorf("generate: namespace %q has more than one %s document", d.Namespace, kind)
			}
			index[d.Namespace] = len(out)
			out = append(out, spec.Source{Namespace: d.Namespace, Kind: kind, Path: d.Path})
		}
		for _, ov := range overrides {
			i, ok := index[ov.Namespace]
			if !ok {
				return newUsageErrorf("generate: %s override for namespace %q has no %s document", kind, ov.Namespace, kind)
			}
			out[i].Overrides = append(out[i].Overrides, ov.Path)
		}
		return nil
	}
	if err := build(spec.OpenAPIKind, c.OpenAPI, c.OpenAPIOverrides); err != nil {
		return nil, err
	}
	if err := build(spec.AsyncAPIKind, c.AsyncAPI, c.AsyncAPIOverrides); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GenerateConfig) codegenConfig() (codegen.Config, error) {
	sources, err := c.sources()
	if err != nil {
		return codegen.Config{}, err
	}
	return codegen.Config{
		Sources:         sources,
		Namespaces:      c.Namespaces,
		ServerOnlyPaths: c.ServerOnlyPaths,
		OrderingsPath:   c.Orderings,
		AcceptOrderings: c.AcceptOrderings,
		OutDir:          c.Out,
		Force:           c.Force || c.Watch,
		DryRun:          c.DryRun,
		Validate:        c.Validate,
	}, nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := newLogger(logOutput, cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	if err != nil {
		return err
	}
	ccfg, err := cfg.codegenConfig()
	if err != nil {
		return err
	}

	// Ensure outDir is absolute only for display; the emitter handles creation/writes
	absOut := ccfg.OutDir
	if ap, err := filepath.Abs(ccfg.OutDir); err == nil {
		absOut = ap
	}

	if cfg.Watch {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return codegen.Watch(ctx, ccfg, log, func(res *codegen.Result, err error) {
			if err != nil {
				log.Error().Err(mapGenerateError(err, absOut)).Msg("generation failed")
				return
			}
			log.Info().Str("run", res.RunID).Int("files", len(res.Planned)).Msg("regenerated")
		})
	}

	res, err := codegen.Run(ctx, ccfg, log)
	if err != nil {
		return mapGenerateError(err, absOut)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(res.Planned), paths)
	}
	logSummary(log, res)
	return nil
}

func logSummary(log zerolog.Logger, res *codegen.Result) {
	if res == nil {
		return
	}
	counts := make(map[string]int)
	for _, a := range res.Availability {
		counts[string(a)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ev := log.Info().Str("run", res.RunID)
	for _, k := range keys {
		ev = ev.Int(k, counts[k])
	}
	ev.Int("acceptedDiscrepancies", len(res.Discrepancies)).Bool("orderingsWritten", res.OrderingsWritten).Msg("availability summary")
}

// mapGenerateError turns structured pipeline errors into friendly usage errors.
func mapGenerateError(err error, outDir string) error {
	var se *spec.SpecError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("spec: %s", se.Message)
		if se.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
		}
		if se.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
		}
		return newUsageError(msg)
	}
	var de *render.DiscrepancyError
	if errors.As(err, &de) {
		return newUsageErrorf("%v\nHint: review the changes and rerun with --accept-orderings to record the new baseline.", de)
	}
	var ue *graph.UnknownRefError
	if errors.As(err, &ue) {
		return newUsageError(err.Error())
	}
	return wrapOutputError(err, outDir)
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageErrorf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg)
	}
	return err
}

func parseAssignments(values []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(values))
	for _, v := range values {
		ns, path, ok := strings.Cut(v, "=")
		ns, path = strings.TrimSpace(ns), strings.TrimSpace(path)
		if !ok || ns == "" || path == "" {
			return nil, fmt.Errorf("expected namespace=path, got %q", v)
		}
		out = append(out, Assignment{Namespace: ns, Path: path})
	}
	return out, nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageErrorf("read config file %q: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageErrorf("parse config file %q: %v", path, err)
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "openapi", "openapioverrides", "asyncapi", "asyncapioverrides":
			list, err := valueAsAssignments(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			switch normalized {
			case "openapi":
				cfg.OpenAPI = list
			case "openapioverrides":
				cfg.OpenAPIOverrides = list
			case "asyncapi":
				cfg.AsyncAPI = list
			default:
				cfg.AsyncAPIOverrides = list
			}
		case "namespaces":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			cfg.Namespaces = sanitizeList(list)
		case "serveronlypaths":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			cfg.ServerOnlyPaths = append([]string{}, sanitizeList(list)...)
		case "orderings", "out", "logformat", "loglevel":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			switch normalized {
			case "orderings":
				cfg.Orderings = str
			case "out":
				cfg.Out = str
			case "logformat":
				cfg.LogFormat = str
			default:
				cfg.LogLevel = str
			}
		case "acceptorderings", "validate", "dryrun", "force", "watch", "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			switch normalized {
			case "acceptorderings":
				cfg.AcceptOrderings = val
			case "validate":
				cfg.Validate = val
			case "dryrun":
				cfg.DryRun = val
			case "force":
				cfg.Force = val
			case "watch":
				cfg.Watch = val
			default:
				cfg.Verbose = val
			}
		default:
			return newUsageErrorf("config file %q: unknown field %q", path, key)
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

// valueAsAssignments accepts a namespace mapping (values are a path or a list
// of paths) or a list of "namespace=path" strings. Mapping entries are sorted
// by namespace; list values keep their order.
func valueAsAssignments(v any) ([]Assignment, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		namespaces := make([]string, 0, len(val))
		for ns := range val {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)
		var out []Assignment
		for _, ns := range namespaces {
			paths, err := valueAsStringSlice(val[ns])
			if err != nil {
				return nil, fmt.Errorf("namespace %q: %w", ns, err)
			}
			if len(paths) == 0 {
				return nil, fmt.Errorf("namespace %q: path is empty", ns)
			}
			for _, p := range paths {
				out = append(out, Assignment{Namespace: strings.TrimSpace(ns), Path: p})
			}
		}
		return out, nil
	case string, []any:
		list, err := valueAsStringSlice(val)
		if err != nil {
			return nil, err
		}
		return parseAssignments(list)
	default:
		return nil, fmt.Errorf("expected mapping or list, got %T", v)
	}
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
