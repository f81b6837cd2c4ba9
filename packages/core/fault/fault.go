// Package fault defines the error taxonomy shared by the context, template
// and runner packages. Transport and response errors are not wrapped into
// faults; they pass through unchanged.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

const (
	// Import means a declared feature module could not be resolved.
	Import Kind = iota
	// FunctionBind means a function-binding expression did not yield a callable.
	FunctionBind
	// VariableBind means a variable spec referenced an unknown function or the
	// invocation failed.
	VariableBind
	// VariableNotFound means template resolution hit a placeholder with no
	// matching context variable.
	VariableNotFound
	// Params means the resolved request is missing url or method.
	Params
)

func (k Kind) String() string {
	switch k {
	case Import:
		return "import"
	case FunctionBind:
		return "function bind"
	case VariableBind:
		return "variable bind"
	case VariableNotFound:
		return "variable not found"
	case Params:
		return "params"
	default:
		return "unknown"
	}
}

// Error is a classified engine error. It is fatal to the testcase that
// raised it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a fault of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a fault of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err or any error it wraps is a fault of the
// given kind. Faults wrapping faults are walked all the way down, so a
// binding fault caused by a missing variable matches both kinds.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Kind == kind {
			return true
		}
		err = fe.Cause
	}
	return false
}
