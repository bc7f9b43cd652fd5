package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/firmforge/firmforge/pkg/model"
)

func TestPipelineErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "bare",
			err:  NewRunFatalError("writing artifacts", cause),
			want: "[run-fatal] writing artifacts: disk full",
		},
		{
			name: "with domain",
			err:  NewDomainFatalError("validation failed", cause).WithDomain(model.DomainTasks),
			want: "[domain-fatal] validation failed (domain=tasks): disk full",
		},
		{
			name: "with domain and path",
			err: NewSkippableError("loading file", cause).
				WithDomain(model.DomainPacket).
				WithPath("/etc/forge/packet.yaml"),
			want: "[skippable] loading file (domain=packet, path=/etc/forge/packet.yaml): disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("no such file")
	err := NewSkippableError("loading file", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() does not reach the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
}

func TestPipelineErrorIs(t *testing.T) {
	err := NewRunFatalError("no configuration found", nil).WithCode(ErrCodeNoInput)

	if !errors.Is(err, &PipelineError{Class: ErrorClassRunFatal, Code: ErrCodeNoInput}) {
		t.Error("errors.Is() does not match on class and code")
	}
	if errors.Is(err, &PipelineError{Class: ErrorClassRunFatal, Code: ErrCodeTemplateMissing}) {
		t.Error("errors.Is() matched a different code")
	}
	if errors.Is(err, &PipelineError{Class: ErrorClassDomainFatal, Code: ErrCodeNoInput}) {
		t.Error("errors.Is() matched a different class")
	}
}

func TestErrorClassHelpers(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		skippable   bool
		domainFatal bool
		runFatal    bool
	}{
		{name: "nil", err: nil},
		{name: "skippable", err: NewSkippableError("bad file", nil), skippable: true},
		{name: "domain fatal", err: NewDomainFatalError("validation failed", nil), domainFatal: true},
		{name: "run fatal", err: NewRunFatalError("no input", nil), runFatal: true},
		{name: "unclassified treated as run fatal", err: errors.New("boom"), runFatal: true},
		{
			name:        "wrapped domain fatal",
			err:         fmt.Errorf("compiling: %w", NewDomainFatalError("band exhausted", nil)),
			domainFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSkippable(tt.err); got != tt.skippable {
				t.Errorf("IsSkippable() = %v, want %v", got, tt.skippable)
			}
			if got := IsDomainFatal(tt.err); got != tt.domainFatal {
				t.Errorf("IsDomainFatal() = %v, want %v", got, tt.domainFatal)
			}
			if got := IsRunFatal(tt.err); got != tt.runFatal {
				t.Errorf("IsRunFatal() = %v, want %v", got, tt.runFatal)
			}
		})
	}
}

func TestPipelineErrorDetails(t *testing.T) {
	err := NewDomainFatalError("validation failed", nil).
		WithCode(ErrCodeValidation).
		WithDetail("violations", 4).
		WithDetail("entity", "sensor_task")

	if err.Details["violations"] != 4 {
		t.Errorf("Details[violations] = %v, want 4", err.Details["violations"])
	}
	if err.Details["entity"] != "sensor_task" {
		t.Errorf("Details[entity] = %v, want sensor_task", err.Details["entity"])
	}
	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeValidation)
	}
	// Details never leak into the message; they are for structured reporting.
	if strings.Contains(err.Error(), "sensor_task") {
		t.Errorf("Error() leaked details: %q", err.Error())
	}
}
