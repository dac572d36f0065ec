package classify

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

var (
	// ErrUnclassifiable means no rule matched the node.
	ErrUnclassifiable = errors.New("unclassifiable schema node")
	// ErrUnknownAnyOf means the anyOf branches match no recognized shape.
	ErrUnknownAnyOf = errors.New("unknown anyOf shape")
	// ErrMalformedOneOf means the oneOf branches mix kinds.
	ErrMalformedOneOf = errors.New("malformed oneOf")
	// ErrPrimitiveOneOf means an all-primitive oneOf is not exactly string, number, boolean.
	ErrPrimitiveOneOf = errors.New("oneOf of primitives that is not string, number, boolean")
)

// ClassifyError reports a node the classifier could not tag. Its message
// carries a YAML dump of the node.
type ClassifyError struct {
	Pointer string
	Reason  string
	Node    *spec.RawSchema
	Err     error
}

func (e *ClassifyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "classify %s: %s", e.Pointer, e.Err)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.Node != nil {
		if dump, err := yaml.Marshal(e.Node); err == nil {
			b.WriteString("\n")
			b.Write(dump)
		}
	}
	return b.String()
}

func (e *ClassifyError) Unwrap() error { return e.Err }

// Issue is one structural problem found after classification.
type Issue struct {
	Namespace string
	Pointer   string
	Message   string
	Value     any
}

func (i Issue) String() string {
	loc := i.Pointer
	if i.Namespace != "" {
		loc = i.Namespace + " " + loc
	}
	if i.Value == nil {
		return fmt.Sprintf("%s: %s", loc, i.Message)
	}
	return fmt.Sprintf("%s: %s (got %v)", loc, i.Message, i.Value)
}

// ValidationError lists every issue found by Validate.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model validation failed with %d issue(s):", len(e.Issues))
	for _, is := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(is.String())
	}
	return b.String()
}
