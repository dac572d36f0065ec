package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	MergeError      ErrorCode = "MergeError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Source names one spec document and the override documents merged on top of it.
type Source struct {
	Namespace string
	Kind      DocumentKind
	Path      string
	Overrides []string
}

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// Validate re-checks OpenAPI documents with kin-openapi after merging.
	Validate bool
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithValidation(enabled bool) Option     { return func(s *Settings) { s.Validate = enabled } }

// Load reads src, merges its overrides on top, and decodes the result.
//
// Paths may be local files or http/https URLs. file:// URLs are rejected.
// Overrides are merged in order, each one taking precedence over everything
// before it. For OpenAPI documents x-fern-base-path is applied to every path
// after merging.
func Load(ctx context.Context, src Source, opts ...Option) (*Document, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}
	if strings.TrimSpace(src.Namespace) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: namespace is empty", Location: src.Path}
	}
	if src.Kind != OpenAPIKind && src.Kind != AsyncAPIKind {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unknown document kind %q", src.Kind), Location: src.Path}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	root, location, err := readNode(ctx, src.Path, settings)
	if err != nil {
		return nil, err
	}
	for _, ov := range src.Overrides {
		override, ovLocation, err := readNode(ctx, ov, settings)
		if err != nil {
			return nil, err
		}
		if err := mergeNodes(root, override); err != nil {
			return nil, &SpecError{Code: MergeError, Message: fmt.Sprintf("merge %s: %v", ovLocation, err), Location: ovLocation, Cause: err}
		}
	}

	kind, err := detectDocumentKind(root)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}
	if kind != src.Kind {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("spec: %s is an %s document, expected %s", location, kind, src.Kind), Location: location}
	}

	doc := &Document{Namespace: src.Namespace, Kind: kind, Location: location}
	switch kind {
	case OpenAPIKind:
		applyBasePath(root)
		var raw RawOpenAPI
		if err := root.Decode(&raw); err != nil {
			return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode %s: %v", location, err), Location: location, Cause: err}
		}
		if settings.Validate {
			if err := validateOpenAPI(ctx, root, location); err != nil {
				return nil, err
			}
		}
		doc.OpenAPI = &raw
	case AsyncAPIKind:
		var raw RawAsyncAPI
		if err := root.Decode(&raw); err != nil {
			return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode %s: %v", location, err), Location: location, Cause: err}
		}
		doc.AsyncAPI = &raw
	}
	return doc, nil
}

// LoadAll loads every source in order. The first failure aborts the batch.
func LoadAll(ctx context.Context, sources []Source, opts ...Option) ([]*Document, error) {
	docs := make([]*Document, 0, len(sources))
	for _, src := range sources {
		doc, err := Load(ctx, src, opts...)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// readNode reads input and returns the top-level mapping node of the
// YAML/JSON document together with the resolved location.
func readNode(ctx context.Context, input string, settings Settings) (*yaml.Node, string, error) {
	raw, location, err := readSource(ctx, input, settings)
	if err != nil {
		return nil, location, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, location, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, location, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse %s: top level must be a mapping", location), Location: location}
	}
	return doc.Content[0], location, nil
}

func readSource(ctx context.Context, input string, settings Settings) ([]byte, string, error) {
	// Classify input as URL or file path.
	u, uerr := url.Parse(input)
	if uerr == nil && strings.EqualFold(u.Scheme, "file") {
		return nil, input, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked; pass a plain path", Location: input}
	}
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, input, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, input, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return raw, input, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, input, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, abs, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return raw, abs, nil
}

// detectDocumentKind looks at the version key of the top-level mapping.
func detectDocumentKind(root *yaml.Node) (DocumentKind, error) {
	if v := mappingValue(root, "openapi"); v != nil && strings.HasPrefix(strings.TrimSpace(v.Value), "3.") {
		return OpenAPIKind, nil
	}
	if v := mappingValue(root, "asyncapi"); v != nil && strings.HasPrefix(strings.TrimSpace(v.Value), "2.") {
		return AsyncAPIKind, nil
	}
	return "", fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'asyncapi: 2.x')")
}

func validateOpenAPI(ctx context.Context, root *yaml.Node, location string) error {
	data, err := yaml.Marshal(root)
	if err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("re-encode %s: %v", location, err), Location: location, Cause: err}
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return mapValidateOrParseErr(err, location)
	}
	if err := doc.Validate(ctx); err != nil {
		return mapValidateOrParseErr(err, location)
	}
	return nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		body, err = io.ReadAll(resp.Body)
		return body, false, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string { return sortedKeys(m) }
