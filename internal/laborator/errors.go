package laborator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks malformed export requests.
var ErrValidation = errors.New("validation failed")

// ConfigurationError reports missing external store settings.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

// LookupError wraps a failed query against one collection.
type LookupError struct {
	Collection string
	Err        error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s failed", e.Collection)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// BuildError wraps a failure while rendering a workbook or the archive.
type BuildError struct {
	Stage  string
	Doctor string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Doctor != "" {
		return fmt.Sprintf("build %s for doctor %s failed", e.Stage, e.Doctor)
	}
	return fmt.Sprintf("build %s failed", e.Stage)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ValidationError carries the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
