package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the overall settlement status of an invoice.
type InvoiceStatus string

const (
	StatusOpen      InvoiceStatus = "open"
	StatusClosed    InvoiceStatus = "closed"
	StatusPaid      InvoiceStatus = "paid"
	StatusFinalized InvoiceStatus = "finalized"
	// StatusOverdue is a read-time view over an open invoice past its due date.
	StatusOverdue InvoiceStatus = "overdue"
)

// FeeStatus tracks payment of the invoiced delivery fees.
type FeeStatus string

const (
	FeePending FeeStatus = "pending"
	FeePaid    FeeStatus = "paid"
	// FeeOverdue is a read-time view over a pending fee past the due date.
	FeeOverdue FeeStatus = "overdue"
)

// PassThroughStatus tracks the repasse of pass-through money to the client.
type PassThroughStatus string

const (
	PassThroughPending PassThroughStatus = "pending"
	PassThroughSettled PassThroughStatus = "settled"
)

// HistoryAction names an entry of the invoice history log.
type HistoryAction string

const (
	ActionCreated            HistoryAction = "created"
	ActionItemsAdded         HistoryAction = "items_added"
	ActionItemAdded          HistoryAction = "item_added"
	ActionItemUpdated        HistoryAction = "item_updated"
	ActionItemDeleted        HistoryAction = "item_deleted"
	ActionFeePayment         HistoryAction = "fee_payment"
	ActionPassThroughPayment HistoryAction = "passthrough_payment"
	ActionFinalized          HistoryAction = "finalized"
	ActionClosed             HistoryAction = "closed"
)

// HistoryEntry is one append-only record of the invoice history log.
type HistoryEntry struct {
	ID        string        `json:"id"`
	Action    HistoryAction `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Details   string        `json:"details,omitempty"`
}

// BilledKind tags a BilledAmount.
type BilledKind string

const (
	BilledRaw      BilledKind = "raw"
	BilledOverride BilledKind = "override"
)

// BilledAmount is the amount of a line item that is actually invoiced.
// Raw means "whatever the raw amounts add up to"; Override carries an
// explicit value computed by reconciliation, which may be zero.
// The zero value is Raw.
type BilledAmount struct {
	Kind  BilledKind
	Value decimal.Decimal
}

// Raw returns a BilledAmount that resolves to the derived amount.
func Raw() BilledAmount {
	return BilledAmount{Kind: BilledRaw}
}

// Override returns a BilledAmount fixed at v.
func Override(v decimal.Decimal) BilledAmount {
	return BilledAmount{Kind: BilledOverride, Value: v}
}

// IsOverride reports whether the amount carries an explicit value.
func (b BilledAmount) IsOverride() bool {
	return b.Kind == BilledOverride
}

// Resolve returns the billed value, using derived for Raw amounts.
func (b BilledAmount) Resolve(derived decimal.Decimal) decimal.Decimal {
	if b.IsOverride() {
		return b.Value
	}
	return derived
}

type billedAmountJSON struct {
	Kind  BilledKind       `json:"kind"`
	Value *decimal.Decimal `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b BilledAmount) MarshalJSON() ([]byte, error) {
	if !b.IsOverride() {
		return json.Marshal(billedAmountJSON{Kind: BilledRaw})
	}
	v := b.Value
	return json.Marshal(billedAmountJSON{Kind: BilledOverride, Value: &v})
}

// UnmarshalJSON implements json.Unmarshaler. Besides the tagged object form
// it accepts null (Raw) and a bare number or numeric string (Override), as
// written by older records that stored the billed amount as an optional field.
func (b *BilledAmount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = Raw()
		return nil
	}

	if trimmed[0] != '{' {
		var v decimal.Decimal
		if err := v.UnmarshalJSON(trimmed); err != nil {
			return fmt.Errorf("billed amount: %w", err)
		}
		*b = Override(v)
		return nil
	}

	var aux billedAmountJSON
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return fmt.Errorf("billed amount: %w", err)
	}
	switch aux.Kind {
	case BilledOverride:
		v := decimal.Zero
		if aux.Value != nil {
			v = *aux.Value
		}
		*b = Override(v)
	case BilledRaw, "":
		*b = Raw()
	default:
		return fmt.Errorf("billed amount: unknown kind %q", aux.Kind)
	}
	return nil
}

// LineItemSource records where a line item came from.
type LineItemSource string

const (
	SourceDelivery LineItemSource = "delivery"
	SourceManual   LineItemSource = "manual"
)

// LineExtraFee is an extra fee as it was applied to a line item.
type LineExtraFee struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// InvoiceLineItem is one billed delivery leg or a manual entry.
type InvoiceLineItem struct {
	ID                string          `json:"id"`
	Source            LineItemSource  `json:"source,omitempty"`
	DeliveryID        string          `json:"deliveryId,omitempty"`
	DeliveryCode      string          `json:"deliveryCode,omitempty"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	DriverID          string          `json:"driverId,omitempty"`
	DriverName        string          `json:"driverName,omitempty"`
	FeeAmount         decimal.Decimal `json:"feeAmount"`
	ExtraFees         []LineExtraFee  `json:"extraFees,omitempty"`
	PassThroughAmount decimal.Decimal `json:"passThroughAmount"`
	FeeBilled         BilledAmount    `json:"feeBilled"`
	PassThroughBilled BilledAmount    `json:"passThroughBilled"`
}

// ExtrasTotal sums the line item's extra fees.
func (li InvoiceLineItem) ExtrasTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range li.ExtraFees {
		total = total.Add(e.Value)
	}
	return total
}

// GrossFee is the raw fee plus extras.
func (li InvoiceLineItem) GrossFee() decimal.Decimal {
	return li.FeeAmount.Add(li.ExtrasTotal())
}

// BilledFee is the fee amount that counts toward the invoice total.
func (li InvoiceLineItem) BilledFee() decimal.Decimal {
	return li.FeeBilled.Resolve(li.GrossFee())
}

// BilledPassThrough is the pass-through amount that counts toward the invoice total.
func (li InvoiceLineItem) BilledPassThrough() decimal.Decimal {
	return li.PassThroughBilled.Resolve(li.PassThroughAmount)
}

// Clone returns a deep copy of the line item.
func (li InvoiceLineItem) Clone() InvoiceLineItem {
	out := li
	if li.ExtraFees != nil {
		out.ExtraFees = append([]LineExtraFee(nil), li.ExtraFees...)
	}
	return out
}

// Invoice aggregates a client's delivery line items for a billing period.
type Invoice struct {
	ID                string            `json:"id"`
	Number            string            `json:"number"`
	ClientID          string            `json:"clientId"`
	ClientName        string            `json:"clientName"`
	BillingType       string            `json:"billingType"`
	LineItems         []InvoiceLineItem `json:"lineItems"`
	EmissionDate      time.Time         `json:"emissionDate"`
	DueDate           time.Time         `json:"dueDate"`
	PeriodStart       *time.Time        `json:"periodStart,omitempty"`
	PeriodEnd         *time.Time        `json:"periodEnd,omitempty"`
	FeeTotal          decimal.Decimal   `json:"feeTotal"`
	PassThroughTotal  decimal.Decimal   `json:"passThroughTotal"`
	DeliveryCount     int               `json:"deliveryCount"`
	FeeStatus         FeeStatus         `json:"feeStatus"`
	PassThroughStatus PassThroughStatus `json:"passThroughStatus"`
	OverallStatus     InvoiceStatus     `json:"overallStatus"`
	Notes             string            `json:"notes,omitempty"`
	History           []HistoryEntry    `json:"history"`
}

// IsOpen reports whether the invoice still accepts new delivery line items.
func (inv Invoice) IsOpen() bool {
	return inv.OverallStatus == StatusOpen || inv.OverallStatus == StatusOverdue
}

// HasLineItem reports whether a line item with the given id is on the invoice.
func (inv Invoice) HasLineItem(id string) bool {
	return inv.LineItemIndex(id) >= 0
}

// LineItemIndex returns the index of the line item with the given id, or -1.
func (inv Invoice) LineItemIndex(id string) int {
	for i, li := range inv.LineItems {
		if li.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the invoice.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.LineItems != nil {
		out.LineItems = make([]InvoiceLineItem, len(inv.LineItems))
		for i, li := range inv.LineItems {
			out.LineItems[i] = li.Clone()
		}
	}
	if inv.History != nil {
		out.History = append([]HistoryEntry(nil), inv.History...)
	}
	if inv.PeriodStart != nil {
		t := *inv.PeriodStart
		out.PeriodStart = &t
	}
	if inv.PeriodEnd != nil {
		t := *inv.PeriodEnd
		out.PeriodEnd = &t
	}
	return out
}

// CloneInvoices deep-copies a collection of invoices.
func CloneInvoices(invoices []Invoice) []Invoice {
	if invoices == nil {
		return nil
	}
	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.Clone()
	}
	return out
}
