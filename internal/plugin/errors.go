package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrUnknownPluginKind        = errors.New("unknown plugin kind")
	ErrMissingRequiredParameter = errors.New("missing required parameter")
	ErrUnknownParameter         = errors.New("unknown parameter")
	ErrTypeMismatch             = errors.New("type mismatch")
	ErrInvalidDefinition        = errors.New("invalid definition")
)

// UnknownPluginKindError is returned when a kind has no catalog entry.
type UnknownPluginKindError struct {
	Kind string
}

func (e *UnknownPluginKindError) Error() string {
	return fmt.Sprintf("unknown plugin kind %q", e.Kind)
}

func (e *UnknownPluginKindError) Is(target error) bool { return target == ErrUnknownPluginKind }

// MissingRequiredParameterError is returned when a required parameter is
// absent or empty.
type MissingRequiredParameterError struct {
	Name string
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

func (e *MissingRequiredParameterError) Is(target error) bool {
	return target == ErrMissingRequiredParameter
}

// UnknownParameterError is returned for a supplied key the kind does not accept.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", e.Name)
}

func (e *UnknownParameterError) Is(target error) bool { return target == ErrUnknownParameter }

// TypeMismatchError is returned when a value does not satisfy its declared type.
type TypeMismatchError struct {
	Name     string
	Expected ParamType
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got %s", e.Name, e.Expected, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// InvalidDefinitionError covers structural problems with a definition:
// bad name, bad ensure value, duplicate kind+name in a batch.
type InvalidDefinitionError struct {
	Kind   string
	Name   string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	switch {
	case e.Kind != "" && e.Name != "":
		return fmt.Sprintf("invalid definition %s/%s: %s", e.Kind, e.Name, e.Reason)
	case e.Name != "":
		return fmt.Sprintf("invalid definition %q: %s", e.Name, e.Reason)
	default:
		return "invalid definition: " + e.Reason
	}
}

func (e *InvalidDefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }

// ValidationError collects every violation found for one definition.
type ValidationError struct {
	Kind string
	Name string
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validate %s/%s: %s", e.Kind, e.Name, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.Errs }
