package shared

import "errors"

// DomainError represents a domain-level error with a stable reason code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Reason codes shared across the domain.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeCurrencyMismatch       = "CURRENCY_MISMATCH"
	CodeInvoiceOverpayment     = "INVOICE_OVERPAYMENT"
	CodeInvalidLineItem        = "INVALID_LINE_ITEM"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeUnknownParty           = "UNKNOWN_PARTY"
)

// Common domain errors.
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Stream was modified by another writer")
)

// AsDomainError extracts a DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ErrorCode returns the reason code carried by err, or empty when err is not
// a domain error.
func ErrorCode(err error) string {
	if de, ok := AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

// IsConcurrencyConflict reports whether err is a transient optimistic
// concurrency conflict that may be retried.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || ErrorCode(err) == CodeConcurrencyConflict
}

// IsBusinessRuleViolation reports whether err is a permanent business rule
// rejection. Such errors must never be retried: the same command against the
// same state yields the same rejection.
func IsBusinessRuleViolation(err error) bool {
	switch ErrorCode(err) {
	case CodeInvalidStateTransition, CodeCurrencyMismatch, CodeInvoiceOverpayment,
		CodeInvalidLineItem, CodeInvalidAmount, CodeUnknownParty:
		return true
	}
	return false
}
