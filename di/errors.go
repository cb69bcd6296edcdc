package di

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrComponentNotFound is matched by every *ComponentNotFoundError.
	ErrComponentNotFound = errors.New("component not found")
	// ErrCircularDependency is matched by every *CycleError.
	ErrCircularDependency = errors.New("circular dependency detected")
	// ErrMissingValue is matched by every *MissingValueError.
	ErrMissingValue = errors.New("missing value")
)

// ComponentNotFoundError is raised while compiling a plan when neither the
// ambient context, a registered component, nor the builtin fallback can
// produce a value for a parameter.
//
// The error is enriched as it travels outwards: Component names the innermost
// component whose dependency could not be satisfied (nil if the parameter
// belongs to the target itself), and Target names the target whose plan was
// being compiled.
type ComponentNotFoundError struct {
	Parameter Parameter
	Component Component
	Target    string
}

// Error implements the error interface.
func (e *ComponentNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no component able to handle parameter %q", e.Parameter.Name)
	if e.Parameter.Type != nil {
		fmt.Fprintf(&b, " of type %s", e.Parameter.Type)
	}
	if e.Component != nil {
		fmt.Fprintf(&b, " in component %q", Name(e.Component))
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " for target %q", e.Target)
	}
	return b.String()
}

// Is makes the error match ErrComponentNotFound.
func (e *ComponentNotFoundError) Is(target error) bool {
	return target == ErrComponentNotFound
}

// CycleError reports a dependency cycle between components. Path lists the
// identities involved, starting and ending with the same one.
type CycleError struct {
	Path   []string
	Target string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	msg := "circular dependency detected: " + strings.Join(e.Path, " -> ")
	if e.Target != "" {
		msg += fmt.Sprintf(" for target %q", e.Target)
	}
	return msg
}

// Is makes the error match ErrCircularDependency.
func (e *CycleError) Is(target error) bool {
	return target == ErrCircularDependency
}

// MissingValueError is returned while executing a plan if a value that must
// come from the runtime context was not supplied and has no default.
type MissingValueError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingValueError) Error() string {
	return fmt.Sprintf("missing value %q in runtime context", e.Name)
}

// Is makes the error match ErrMissingValue.
func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// PanicError wraps a panic raised by a component during resolution.
type PanicError struct {
	ID    string
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during resolution of %q: %v", e.ID, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
