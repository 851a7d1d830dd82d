package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrInvoiceNotFound is returned when the target invoice id does not exist.
	// The collection is left unchanged.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrLineItemNotFound is returned when the target line item does not exist
	// on the invoice. The collection is left unchanged.
	ErrLineItemNotFound = errors.New("line item not found")

	// ErrInvoiceFinalized protects finalized invoices from line-item changes.
	ErrInvoiceFinalized = errors.New("invoice is finalized, line items cannot change")

	// ErrInvoiceNotOpen is returned when closing an invoice that is not open.
	ErrInvoiceNotOpen = errors.New("invoice is not open")

	// ErrFeeAlreadyPaid keeps fee payment from being registered twice.
	ErrFeeAlreadyPaid = errors.New("invoice fee is already paid")

	// ErrPassThroughAlreadySettled keeps the repasse from being registered twice.
	ErrPassThroughAlreadySettled = errors.New("invoice pass-through is already settled")

	// ErrNoBillableDeliveries is returned by manual invoice creation when none
	// of the selected deliveries can be billed.
	ErrNoBillableDeliveries = errors.New("no billable deliveries in the selected period")
)

// OperationError wraps a failed invoice operation with its name and target.
type OperationError struct {
	// Op is the operation that failed (e.g. "RegisterFeePayment").
	Op string

	// InvoiceID is the target invoice, if any.
	InvoiceID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.InvoiceID != "" {
		return fmt.Sprintf("invoice: %s failed (invoice: %s): %v", e.Op, e.InvoiceID, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OperationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func opError(op, invoiceID string, err error) error {
	return &OperationError{Op: op, InvoiceID: invoiceID, Err: err}
}
