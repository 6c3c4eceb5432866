package types

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

var (
	_ error = &DuplicateNodeError{}
	_ error = &InvalidDependencyError{}
	_ error = &UnknownDependencyError{}
	_ error = &CyclicDependencyError{}
	_ error = &UnresolvedDependencyError{}
	_ error = &DuplicateResultError{}
	_ error = &HandlerError{}
)

// ErrRegistrySealed is returned when registering after a run has started.
var ErrRegistrySealed = errors.MethodNotAllowedf("registry sealed: a run has already started")

// DuplicateNodeError rejects a register call whose name is already taken.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node: %s", e.Name)
}

// InvalidDependencyError rejects a node that lists itself as a dependency.
type InvalidDependencyError struct {
	Node       string
	Dependency string
}

func (e *InvalidDependencyError) Error() string {
	return fmt.Sprintf("node %s: invalid dependency %s", e.Node, e.Dependency)
}

type UnknownDependencyError struct {
	Node       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("node %s depends on unknown node %s", e.Node, e.Dependency)
}

/**
 * CyclicDependencyError names the node found on the traversal stack a second
 * time. Path holds the cycle starting and ending at that node.
 */
type CyclicDependencyError struct {
	Node string
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("cyclic dependency detected at node %s", e.Node)
	}
	return fmt.Sprintf("cyclic dependency detected at node %s: %s", e.Node, strings.Join(e.Path, " -> "))
}

type UnresolvedDependencyError struct {
	Name string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s has no result", e.Name)
}

type DuplicateResultError struct {
	Name string
}

func (e *DuplicateResultError) Error() string {
	return fmt.Sprintf("result of %s already recorded", e.Name)
}

// HandlerError carries a node handler failure into the run report.
type HandlerError struct {
	*baseError
	Node string
}

func NewHandlerError(node string, otherErr error) error {
	return &HandlerError{baseError: newBaseErr(otherErr), Node: node}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("node %s failed: %s", e.Node, e.baseError.Error())
}

func (e *HandlerError) Unwrap() error {
	return e.BaseErr
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	if e.BaseErr == nil {
		return "<nil>"
	}
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

// IsValidationError reports whether err rejected a whole run before any
// handler executed.
func IsValidationError(err error) bool {
	return IsUnknownDependency(err) || IsCyclicDependency(err)
}

func IsDuplicateNode(err error) bool {
	var target *DuplicateNodeError
	return errors.As(err, &target)
}

func IsInvalidDependency(err error) bool {
	var target *InvalidDependencyError
	return errors.As(err, &target)
}

func IsUnknownDependency(err error) bool {
	var target *UnknownDependencyError
	return errors.As(err, &target)
}

func IsCyclicDependency(err error) bool {
	var target *CyclicDependencyError
	return errors.As(err, &target)
}

func IsUnresolvedDependency(err error) bool {
	var target *UnresolvedDependencyError
	return errors.As(err, &target)
}

func IsDuplicateResult(err error) bool {
	var target *DuplicateResultError
	return errors.As(err, &target)
}
