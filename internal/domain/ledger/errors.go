package ledger

import (
	"fmt"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// NewInvalidStateTransition builds the rejection for an operation attempted
// in a state that does not allow it.
func NewInvalidStateTransition(aggregate, operation, currentStatus string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("%s cannot %s in status %s", aggregate, operation, currentStatus))
}

// NewOverpaymentError builds the rejection for a payment that would push the
// paid amount past the invoice grand total.
func NewOverpaymentError(attempted, paid, grandTotal valueobject.Money) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvoiceOverpayment,
		fmt.Sprintf("payment of %s would exceed invoice total %s (already paid %s)",
			attempted, grandTotal, paid))
}

// NewInvalidLineItemError builds the rejection for a malformed invoice line.
func NewInvalidLineItemError(index int, reason string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidLineItem,
		fmt.Sprintf("line item %d: %s", index, reason))
}
