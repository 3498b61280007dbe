package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the ledger. Handlers map these onto HTTP
// status codes; services and storage return them wrapped with context.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyMember       = errors.New("already a member of the group")
	ErrNotAMember          = errors.New("not a member of the group")
	ErrForbidden           = errors.New("only the payer may modify this expense")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyParticipants   = errors.New("empty participant list")
	ErrConcurrencyConflict = errors.New("expense was modified concurrently")
)

// ValidationError reports a request field that failed validation before any
// write was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SplitMismatchError reports custom split amounts whose sum does not equal
// the expense total. The check is exact: there is no tolerance window.
type SplitMismatchError struct {
	Declared Money
	Total    Money
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("declared splits sum to %s but expense total is %s (diff %s)",
		e.Declared, e.Total, e.Diff())
}

// Diff returns declared minus total.
func (e *SplitMismatchError) Diff() Money {
	return e.Declared.Sub(e.Total)
}
