/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All engine error types in one place. Domain packages (rent, payroll) wrap
  these with subject context; the API layer maps them to status codes via
  the classification helpers.

ERROR CATEGORIES:
  1. Validation errors - rejected before any write (retroactive change,
     non-positive amount, malformed month)
  2. Duplicate errors - uniqueness violations (salary already paid)
  3. Activity errors - month predates the subject's schedule history
  4. Store errors - persistence-level failures

USAGE:
  if errors.Is(err, ledger.ErrDuplicatePayment) {
      // second salary payout for the same employee+month
  }

SEE ALSO:
  - schedule.go / allocate.go: produce validation errors
  - store.go: store error contract
  - rent/, payroll/: wrap with domain context
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every pre-write rejection.
	ErrValidation = errors.New("validation failed")

	// ErrRetroactiveChange is returned when a schedule change targets a month
	// earlier than the current month.
	ErrRetroactiveChange = errors.New("retroactive schedule change")

	// ErrDuplicatePayment is returned when a single-shot payment already
	// exists for the subject and month.
	ErrDuplicatePayment = errors.New("payment already recorded for month")

	// ErrNotYetActive is returned when an operation targets a month that
	// predates the subject's first schedule entry. Reconciliation loops skip
	// such months instead of failing.
	ErrNotYetActive = errors.New("subject has no scheduled value for month")

	// ErrAllocationFailed is returned when a lump payment cannot be placed
	// (no schedule absorbs the remainder) or the atomic commit aborted.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrSubjectNotFound is returned when a referenced tenant or employee
	// does not exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrPropertyNotFound is returned when a referenced property does not exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrCategoryNotFound is returned when a referenced expense category does
	// not exist.
	ErrCategoryNotFound = errors.New("expense category not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError details a pre-write rejection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-scoped validation failure.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RetroactiveChangeError details a schedule change rejected by the
// retroactivity ban.
type RetroactiveChangeError struct {
	Subject       SubjectID
	Kind          ScheduleKind
	EffectiveFrom Month
	CurrentMonth  Month
}

func (e *RetroactiveChangeError) Error() string {
	return fmt.Sprintf("%s schedule for %s: effective month %s precedes current month %s",
		e.Kind, e.Subject, e.EffectiveFrom, e.CurrentMonth)
}

func (e *RetroactiveChangeError) Unwrap() error { return ErrRetroactiveChange }

// DuplicatePaymentError details a single-shot payment uniqueness violation.
type DuplicatePaymentError struct {
	Subject  SubjectID
	Month    Month
	Existing ExpenseID
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("payment for %s already recorded for %s (expense: %s)",
		e.Subject, e.Month, e.Existing)
}

func (e *DuplicatePaymentError) Unwrap() error { return ErrDuplicatePayment }

// NotYetActiveError details an operation against a month before the
// subject's schedule history begins.
type NotYetActiveError struct {
	Subject SubjectID
	Kind    ScheduleKind
	Month   Month
}

func (e *NotYetActiveError) Error() string {
	return fmt.Sprintf("%s has no %s value scheduled at %s", e.Subject, e.Kind, e.Month)
}

func (e *NotYetActiveError) Unwrap() error { return ErrNotYetActive }

// AllocationError details an allocation that could not be completed. The
// planner never produces partial state; a failed allocation writes nothing.
type AllocationError struct {
	Subject   SubjectID
	Amount    decimal.Decimal
	Unplaced  decimal.Decimal
	Reason    string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %v for %s: %s (unplaced: %v)",
		e.Amount, e.Subject, e.Reason, e.Unplaced)
}

func (e *AllocationError) Unwrap() error { return ErrAllocationFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault and safe to
// surface as a 4xx outcome.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrRetroactiveChange) ||
		errors.Is(err, ErrDuplicatePayment) ||
		errors.Is(err, ErrNotYetActive)
}

// IsDuplicate reports a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicatePayment)
}

// IsNotFound reports a missing referenced record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}
