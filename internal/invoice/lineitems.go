package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/reconciliation"
	"courier/pkg/models"
)

// deliveryLineItems builds one line item per route of d. The line item id is
// the route id, which is what makes appending a delivery idempotent.
func (e *Engine) deliveryLineItems(d models.DeliveryRequest, recs models.Reconciliations, rules *reconciliation.Engine) []models.InvoiceLineItem {
	date := e.clock.Now()
	if d.IsCompleted() {
		date = *d.CompletedAt
	}

	items := make([]models.InvoiceLineItem, 0, len(d.Routes))
	for _, route := range d.Routes {
		var rec *models.Reconciliation
		if r, ok := recs[route.ID]; ok {
			rec = &r
		}
		result := rules.ReconcileRoute(route, rec)

		items = append(items, models.InvoiceLineItem{
			ID:                route.ID,
			Source:            models.SourceDelivery,
			DeliveryID:        d.ID,
			DeliveryCode:      d.Code,
			Date:              date,
			Description:       routeDescription(d, route),
			DriverID:          d.DriverID,
			DriverName:        d.DriverName,
			FeeAmount:         route.BaseFee,
			ExtraFees:         result.Extras,
			PassThroughAmount: result.OriginalPassThrough,
			FeeBilled:         result.FeeBilled,
			PassThroughBilled: result.PassThroughBilled,
		})
	}
	return items
}

func routeDescription(d models.DeliveryRequest, route models.Route) string {
	if route.Neighborhood == "" {
		return fmt.Sprintf("Delivery %s", deliveryLabel(d))
	}
	return fmt.Sprintf("Delivery %s - %s", deliveryLabel(d), route.Neighborhood)
}

// newLineItems returns the items whose id is not on inv yet, dropping
// duplicates within items as well.
func newLineItems(inv models.Invoice, items []models.InvoiceLineItem) []models.InvoiceLineItem {
	seen := make(map[string]bool, len(items))
	var fresh []models.InvoiceLineItem
	for _, li := range items {
		if seen[li.ID] || inv.HasLineItem(li.ID) {
			continue
		}
		seen[li.ID] = true
		fresh = append(fresh, li)
	}
	return fresh
}

// ManualLineItem is an operator-entered line item. Its billed amounts are
// always the raw amounts: fee plus extras, and the full pass-through.
type ManualLineItem struct {
	Date              time.Time             `json:"date" validate:"required"`
	Description       string                `json:"description" validate:"required,max=500"`
	DriverID          string                `json:"driverId,omitempty"`
	DriverName        string                `json:"driverName,omitempty" validate:"max=200"`
	FeeAmount         decimal.Decimal       `json:"feeAmount" validate:"gte=0"`
	ExtraFees         []models.LineExtraFee `json:"extraFees,omitempty"`
	PassThroughAmount decimal.Decimal       `json:"passThroughAmount" validate:"gte=0"`
}

func (m ManualLineItem) lineItem(id string) models.InvoiceLineItem {
	return models.InvoiceLineItem{
		ID:                id,
		Source:            models.SourceManual,
		Date:              m.Date,
		Description:       m.Description,
		DriverID:          m.DriverID,
		DriverName:        m.DriverName,
		FeeAmount:         m.FeeAmount,
		ExtraFees:         append([]models.LineExtraFee(nil), m.ExtraFees...),
		PassThroughAmount: m.PassThroughAmount,
		FeeBilled:         models.Raw(),
		PassThroughBilled: models.Raw(),
	}
}

// AddManualLineItem appends an operator-entered line item to an invoice.
func (e *Engine) AddManualLineItem(invoices []models.Invoice, invoiceID string, in ManualLineItem) ([]models.Invoice, *models.Invoice, error) {
	const op = "AddManualLineItem"

	idx, err := e.editableInvoice(invoices, invoiceID)
	if err != nil {
		return invoices, nil, opError(op, invoiceID, err)
	}
	if err := validateInput(in).OrNil(); err != nil {
		return invoices, nil, opError(op, invoiceID, err)
	}

	item := in.lineItem(e.ids())

	updated := invoices[idx].Clone()
	updated.LineItems = append(updated.LineItems, item)
	updated.History = appendHistory(updated.History,
		e.historyEntry(models.ActionItemAdded, e.clock.Now(), item.Description))
	updated = e.finalizeIfSettled(Recompute(updated), e.clock.Now())

	return replaceAt(invoices, idx, updated), &updated, nil
}

// UpdateManualLineItem replaces the amounts and description of a line item.
// The item keeps its id and delivery reference, but from then on it is billed
// at its raw amounts like any manual entry.
func (e *Engine) UpdateManualLineItem(invoices []models.Invoice, invoiceID, itemID string, in ManualLineItem) ([]models.Invoice, *models.Invoice, error) {
	const op = "UpdateManualLineItem"

	idx, err := e.editableInvoice(invoices, invoiceID)
	if err != nil {
		return invoices, nil, opError(op, invoiceID, err)
	}
	pos := invoices[idx].LineItemIndex(itemID)
	if pos < 0 {
		return invoices, nil, opError(op, invoiceID, fmt.Errorf("%w: %s", ErrLineItemNotFound, itemID))
	}
	if err := validateInput(in).OrNil(); err != nil {
		return invoices, nil, opError(op, invoiceID, err)
	}

	updated := invoices[idx].Clone()
	prev := updated.LineItems[pos]
	item := in.lineItem(prev.ID)
	item.DeliveryID = prev.DeliveryID
	item.DeliveryCode = prev.DeliveryCode
	updated.LineItems[pos] = item
	updated.History = appendHistory(updated.History,
		e.historyEntry(models.ActionItemUpdated, e.clock.Now(), item.Description))
	updated = e.finalizeIfSettled(Recompute(updated), e.clock.Now())

	return replaceAt(invoices, idx, updated), &updated, nil
}

// DeleteManualLineItem removes a line item from an invoice.
func (e *Engine) DeleteManualLineItem(invoices []models.Invoice, invoiceID, itemID string) ([]models.Invoice, *models.Invoice, error) {
	const op = "DeleteManualLineItem"

	idx, err := e.editableInvoice(invoices, invoiceID)
	if err != nil {
		return invoices, nil, opError(op, invoiceID, err)
	}
	pos := invoices[idx].LineItemIndex(itemID)
	if pos < 0 {
		return invoices, nil, opError(op, invoiceID, fmt.Errorf("%w: %s", ErrLineItemNotFound, itemID))
	}

	updated := invoices[idx].Clone()
	removed := updated.LineItems[pos]
	items := make([]models.InvoiceLineItem, 0, len(updated.LineItems)-1)
	items = append(items, updated.LineItems[:pos]...)
	items = append(items, updated.LineItems[pos+1:]...)
	updated.LineItems = items
	updated.History = appendHistory(updated.History,
		e.historyEntry(models.ActionItemDeleted, e.clock.Now(), removed.Description))
	updated = e.finalizeIfSettled(Recompute(updated), e.clock.Now())

	return replaceAt(invoices, idx, updated), &updated, nil
}

// editableInvoice locates an invoice whose line items may change.
func (e *Engine) editableInvoice(invoices []models.Invoice, invoiceID string) (int, error) {
	idx := indexOf(invoices, invoiceID)
	if idx < 0 {
		return -1, ErrInvoiceNotFound
	}
	if invoices[idx].OverallStatus == models.StatusFinalized {
		return -1, ErrInvoiceFinalized
	}
	return idx, nil
}
