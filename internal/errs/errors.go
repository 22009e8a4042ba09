// Package errs defines the error taxonomy shared by the pipeline stages.
// Every fatal condition is reported as an *Error carrying the kind, the stage
// that raised it and optional structured details for logging.
package errs

import "fmt"

// Kind classifies a pipeline error
type Kind string

const (
	KindFormat              Kind = "FORMAT_ERROR"
	KindInsufficientData    Kind = "INSUFFICIENT_DATA"
	KindConvergence         Kind = "CONVERGENCE_ERROR"
	KindInternalConsistency Kind = "INTERNAL_CONSISTENCY"
	KindAlignment           Kind = "ALIGNMENT_ERROR"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrFormat              = &Error{Kind: KindFormat}
	ErrInsufficientData    = &Error{Kind: KindInsufficientData}
	ErrConvergence         = &Error{Kind: KindConvergence}
	ErrInternalConsistency = &Error{Kind: KindInternalConsistency}
	ErrAlignment           = &Error{Kind: KindAlignment}
)

// Error represents a pipeline error
type Error struct {
	Kind    Kind                   `json:"kind"`
	Stage   string                 `json:"stage,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Fatal reports whether the error kind must abort a run.
// Convergence shortfalls are left to the caller's policy.
func (e *Error) Fatal() bool {
	return e.Kind != KindConvergence
}

// New creates a new Error
func New(kind Kind, stage, message string) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(kind Kind, stage, format string, args ...interface{}) *Error {
	return New(kind, stage, fmt.Sprintf(format, args...))
}

// NewWithDetails creates a new Error with details
func NewWithDetails(kind Kind, stage, message string, details map[string]interface{}) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new Error around a cause
func Wrap(kind Kind, stage, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// Format creates a FormatError
func Format(stage, format string, args ...interface{}) *Error {
	return Newf(KindFormat, stage, format, args...)
}

// InsufficientData creates an InsufficientDataError
func InsufficientData(stage, format string, args ...interface{}) *Error {
	return Newf(KindInsufficientData, stage, format, args...)
}

// InternalConsistency creates an InternalConsistencyError
func InternalConsistency(stage, format string, args ...interface{}) *Error {
	return Newf(KindInternalConsistency, stage, format, args...)
}

// Alignment creates an AlignmentError
func Alignment(stage, format string, args ...interface{}) *Error {
	return Newf(KindAlignment, stage, format, args...)
}

// WithStage returns a copy of err attributed to stage when err is an *Error
// without a stage. Other errors are returned unchanged.
func WithStage(err error, stage string) error {
	e, ok := err.(*Error)
	if !ok || e.Stage != "" {
		return err
	}
	c := *e
	c.Stage = stage
	return &c
}
