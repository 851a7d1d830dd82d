package services

import (
	"context"

	"courier/internal/invoice"
	"courier/pkg/models"
)

// InvoiceService is the invoicing surface offered to presentation and
// reporting collaborators. Returned invoices are views as of the call: an
// unpaid invoice past its due date reads as overdue.
type InvoiceService interface {
	// List returns every invoice.
	List() []models.Invoice

	// ListByClient returns the invoices of one client.
	ListByClient(clientID string) []models.Invoice

	// Get returns one invoice or an error matching invoice.ErrInvoiceNotFound.
	Get(id string) (models.Invoice, error)

	// OpenInvoiceFor returns the client's invoice accepting deliveries.
	OpenInvoiceFor(clientID string) (models.Invoice, bool)

	// CompleteDelivery reconciles a completed delivery and adds it to the
	// client's open invoice, opening one if needed.
	CompleteDelivery(ctx context.Context, c invoice.DeliveryCompletion) (*models.Invoice, error)

	// CreateManualInvoice bills selected deliveries over an explicit period.
	CreateManualInvoice(ctx context.Context, req invoice.ManualInvoiceRequest) (*models.Invoice, error)

	// CloseInvoice stops an open invoice from accepting deliveries.
	CloseInvoice(ctx context.Context, id string) (*models.Invoice, error)

	// DeleteInvoice removes an invoice.
	DeleteInvoice(ctx context.Context, id string) error

	// AddManualLineItem, UpdateManualLineItem and DeleteManualLineItem edit
	// line items of invoices that are not finalized.
	AddManualLineItem(ctx context.Context, invoiceID string, in invoice.ManualLineItem) (*models.Invoice, error)
	UpdateManualLineItem(ctx context.Context, invoiceID, itemID string, in invoice.ManualLineItem) (*models.Invoice, error)
	DeleteManualLineItem(ctx context.Context, invoiceID, itemID string) (*models.Invoice, error)

	// RegisterFeePayment and RegisterPassThroughSettlement advance the
	// settlement of an invoice.
	RegisterFeePayment(ctx context.Context, id string, p invoice.PaymentDetails) (*models.Invoice, error)
	RegisterPassThroughSettlement(ctx context.Context, id string, p invoice.PaymentDetails) (*models.Invoice, error)
}

var _ InvoiceService = (*invoice.Service)(nil)
