/*
errors.go - Centralized error types for the reconciliation engine

ERROR CATEGORIES:
  1. Form errors - missing selections, non-positive quantities
  2. Business-rule violations - batch size, duplicates, capacity, supply
  3. Backend errors - the ledger store or remote API failed

  Form and business-rule errors are recoverable and mean nothing was
  submitted. Validation is all-or-nothing across a batch.

USAGE:
  _, err := BuildInstallation(engine, req)
  var reqErr *RequestError
  if errors.As(err, &reqErr) {
      // reqErr.Code, reqErr.UnitID, reqErr.Required, reqErr.Pending
  }
  if errors.Is(err, ErrCapacityExceeded) { ... }
*/
package doors

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNoUnitsSelected       = errors.New("no units selected")
	ErrIncompleteForm        = errors.New("incomplete form")
	ErrConflictingBatchSize  = errors.New("conflicting batch size")
	ErrDuplicateComponent    = errors.New("duplicate component")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrInsufficientSupply    = errors.New("insufficient supply")
	ErrCategoryNotApplicable = errors.New("door category not applicable to unit")
	ErrUnknownUnit           = errors.New("unknown unit")

	// ErrTowerFulfilled is returned when every cell of a tower has been
	// supplied up to its requirement.
	ErrTowerFulfilled = errors.New("tower supply fulfilled")

	// ErrWriteInFlight is returned when a write for the same tower is
	// already being dispatched.
	ErrWriteInFlight = errors.New("write already in flight for tower")

	// ErrBackend wraps failures of the ledger store or remote API.
	ErrBackend = errors.New("backend error")

	// ErrDuplicateRecord is returned by stores when an idempotency key or a
	// (unit, door type, set, component) slot already exists.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// Code is the machine-readable name of a validation failure.
type Code string

const (
	CodeNoUnitsSelected       Code = "NoUnitsSelected"
	CodeIncompleteForm        Code = "IncompleteForm"
	CodeConflictingBatchSize  Code = "ConflictingBatchSize"
	CodeDuplicateComponent    Code = "DuplicateComponent"
	CodeCapacityExceeded      Code = "CapacityExceeded"
	CodeInsufficientSupply    Code = "InsufficientSupply"
	CodeCategoryNotApplicable Code = "CategoryNotApplicable"
	CodeUnknownUnit           Code = "UnknownUnit"
)

var codeSentinels = map[Code]error{
	CodeNoUnitsSelected:       ErrNoUnitsSelected,
	CodeIncompleteForm:        ErrIncompleteForm,
	CodeConflictingBatchSize:  ErrConflictingBatchSize,
	CodeDuplicateComponent:    ErrDuplicateComponent,
	CodeCapacityExceeded:      ErrCapacityExceeded,
	CodeInsufficientSupply:    ErrInsufficientSupply,
	CodeCategoryNotApplicable: ErrCategoryNotApplicable,
	CodeUnknownUnit:           ErrUnknownUnit,
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RequestError describes why a proposed installation or supply was
// rejected. Required and Pending are set for InsufficientSupply and
// CapacityExceeded.
type RequestError struct {
	Code     Code
	UnitID   UnitID
	Cell     *Cell
	SetNo    int
	Required int
	Pending  int
	Message  string
}

func (e *RequestError) Error() string {
	if e.UnitID != "" {
		return fmt.Sprintf("%s: unit %s: %s", e.Code, e.UnitID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RequestError) Unwrap() error {
	return codeSentinels[e.Code]
}

func newRequestError(code Code, unit UnitID, format string, args ...any) *RequestError {
	return &RequestError{Code: code, UnitID: unit, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFormError returns true for input errors that never reached business rules.
func IsFormError(err error) bool {
	return errors.Is(err, ErrNoUnitsSelected) || errors.Is(err, ErrIncompleteForm)
}

// IsClientError returns true if the error is due to invalid client input,
// including business-rule violations.
func IsClientError(err error) bool {
	return IsFormError(err) ||
		errors.Is(err, ErrConflictingBatchSize) ||
		errors.Is(err, ErrDuplicateComponent) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInsufficientSupply) ||
		errors.Is(err, ErrCategoryNotApplicable) ||
		errors.Is(err, ErrUnknownUnit)
}

// IsConflict returns true if the request clashed with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTowerFulfilled) ||
		errors.Is(err, ErrWriteInFlight) ||
		errors.Is(err, ErrDuplicateRecord)
}
