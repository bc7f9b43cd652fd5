package validate

import (
	"fmt"
	"sort"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"

	"github.com/firmforge/firmforge/pkg/model"
)

// Kind categorizes a violation.
type Kind string

const (
	// KindShape marks a document that does not match its schema or a
	// record that cannot be decoded.
	KindShape Kind = "shape"

	// KindIdentifier marks a malformed entity or reference name.
	KindIdentifier Kind = "identifier"

	// KindUniqueness marks a duplicated name or wire value.
	KindUniqueness Kind = "uniqueness"

	// KindReference marks a reference to an undeclared entity.
	KindReference Kind = "reference"

	// KindConstraint marks a missing required field or a value outside
	// its allowed set or range.
	KindConstraint Kind = "constraint"
)

// Violation is one validation finding, attributable to an entity and
// field where possible.
type Violation struct {
	// Domain is the domain the violation was found in.
	Domain model.Domain `json:"domain"`

	// Kind is the violation category.
	Kind Kind `json:"kind"`

	// Entity names the offending entity, e.g. "task 'sensor_task'".
	// Empty for document-level findings.
	Entity string `json:"entity,omitempty"`

	// Field is the offending field path within the entity or document.
	Field string `json:"field,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

// String renders the violation in its reportable form.
func (v Violation) String() string {
	if v.Entity != "" {
		return fmt.Sprintf("%s: %s", v.Entity, v.Message)
	}
	return v.Message
}

// Result is the ordered list of violations from one domain validation.
// An empty result means the domain is valid.
type Result []Violation

// OK reports whether the domain passed validation.
func (r Result) OK() bool {
	return len(r) == 0
}

// Strings renders every violation in order.
func (r Result) Strings() []string {
	out := make([]string, 0, len(r))
	for _, v := range r {
		out = append(out, v.String())
	}
	return out
}

// entityRef builds the display reference for an entity.
func entityRef(kind, name string) string {
	return fmt.Sprintf("%s '%s'", kind, name)
}

// schemaViolations explodes a CUE validation error into per-path
// violations, sorted for determinism.
func schemaViolations(domain model.Domain, err error) []Violation {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	out := make([]Violation, 0, len(errs))
	for _, e := range errs {
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = fmt.Sprintf("%s: %s", path, msg)
		}
		out = append(out, Violation{
			Domain:  domain,
			Kind:    KindShape,
			Field:   path,
			Message: msg,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// dirtyRoots collects the top-level keys that schema validation already
// reported on. Their decoding is skipped to avoid double reporting.
func dirtyRoots(violations []Violation) map[string]bool {
	dirty := make(map[string]bool, len(violations))
	for _, v := range violations {
		root, _, _ := strings.Cut(v.Field, ".")
		dirty[root] = true
	}
	return dirty
}

// rootDirty reports whether a root key was flagged by schema validation.
// An unattributable schema finding flags every root.
func rootDirty(dirty map[string]bool, key string) bool {
	return dirty[key] || dirty[""]
}
