package layer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrDanglingReference   = errors.New("dangling reference")
	ErrMalformedTree       = errors.New("malformed tree")
	ErrMalformedReference  = errors.New("malformed external reference")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrPrerequisiteMissing = errors.New("prerequisite layer missing")
	ErrWriteFailed         = errors.New("write failed")
	ErrUnknownLayer        = errors.New("unknown layer")
)

// DanglingReferenceError reports an id absent from the index it must resolve in.
type DanglingReferenceError struct {
	Index string
	ID    string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s id %q not found", ErrDanglingReference, e.Index, e.ID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// MalformedTreeError reports an inconsistent edge list.
type MalformedTreeError struct {
	TreeIndex int
	NodeID    string
	Reason    string
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("%s: tree %d node %q: %s", ErrMalformedTree, e.TreeIndex, e.NodeID, e.Reason)
}

func (e *MalformedTreeError) Unwrap() error { return ErrMalformedTree }

// MalformedReferenceError reports a nested external reference chain that is
// cyclic or too deep.
type MalformedReferenceError struct {
	Reason string
	Depth  int
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("%s: %s at depth %d", ErrMalformedReference, e.Reason, e.Depth)
}

func (e *MalformedReferenceError) Unwrap() error { return ErrMalformedReference }

// PrerequisiteMissingError reports a mandatory layer without a stored record
// while a layer depending on it was requested.
type PrerequisiteMissingError struct {
	Missing    string
	RequiredBy []string
}

func (e *PrerequisiteMissingError) Error() string {
	return fmt.Sprintf("%s: %s (required by %s)", ErrPrerequisiteMissing, e.Missing, strings.Join(e.RequiredBy, ", "))
}

func (e *PrerequisiteMissingError) Unwrap() error { return ErrPrerequisiteMissing }

// ScopeError attaches the failing operation, collection and scope to an error.
type ScopeError struct {
	Op    string
	Layer string
	Scope Scope
	Err   error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Layer, e.Scope, e.Err)
}

func (e *ScopeError) Unwrap() error { return e.Err }

// WrapScope wraps err in a ScopeError. A nil err stays nil and an err that
// already carries a scope is returned as is.
func WrapScope(op, layer string, scope Scope, err error) error {
	if err == nil {
		return nil
	}
	var se *ScopeError
	if errors.As(err, &se) {
		return err
	}
	return &ScopeError{Op: op, Layer: layer, Scope: scope, Err: err}
}
