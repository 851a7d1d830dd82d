package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"courier/pkg/models"
)

// PaymentDetails describes a payment or settlement registered against an
// invoice. A zero Date means now.
type PaymentDetails struct {
	Date      time.Time       `json:"date"`
	Method    string          `json:"method,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

func (p PaymentDetails) describe(kind string) string {
	parts := []string{fmt.Sprintf("%s %s", kind, models.FormatBRL(p.Amount))}
	if p.Method != "" {
		parts = append(parts, "via "+p.Method)
	}
	if p.Reference != "" {
		parts = append(parts, "ref "+p.Reference)
	}
	if p.Notes != "" {
		parts = append(parts, p.Notes)
	}
	return strings.Join(parts, ", ")
}

func (e *Engine) at(p PaymentDetails) time.Time {
	if p.Date.IsZero() {
		return e.clock.Now()
	}
	return p.Date
}

// RegisterFeePayment marks the client's fee as paid. When the pass-through is
// already settled, or there is nothing to settle, the invoice is finalized.
func (e *Engine) RegisterFeePayment(invoices []models.Invoice, invoiceID string, p PaymentDetails) ([]models.Invoice, *models.Invoice, error) {
	const op = "RegisterFeePayment"

	idx := indexOf(invoices, invoiceID)
	if idx < 0 {
		return invoices, nil, opError(op, invoiceID, ErrInvoiceNotFound)
	}
	if invoices[idx].FeeStatus == models.FeePaid {
		return invoices, nil, opError(op, invoiceID, ErrFeeAlreadyPaid)
	}

	at := e.at(p)
	updated := invoices[idx].Clone()
	updated.FeeStatus = models.FeePaid

	entries := []models.HistoryEntry{e.historyEntry(models.ActionFeePayment, at, p.describe("fee payment"))}
	if updated.PassThroughStatus == models.PassThroughSettled || updated.PassThroughTotal.IsZero() {
		updated.OverallStatus = models.StatusFinalized
		entries = append(entries, e.historyEntry(models.ActionFinalized, at, "fee paid and pass-through settled"))
	} else {
		updated.OverallStatus = models.StatusPaid
	}
	updated.History = appendHistory(updated.History, entries...)

	e.log.Info().
		Str("invoice_id", updated.ID).
		Str("number", updated.Number).
		Str("amount", p.Amount.StringFixed(2)).
		Str("status", string(updated.OverallStatus)).
		Msg("Fee payment registered")

	return replaceAt(invoices, idx, updated), &updated, nil
}

// RegisterPassThroughSettlement marks the pass-through as handed over to the
// client. When the fee is already paid the invoice is finalized.
func (e *Engine) RegisterPassThroughSettlement(invoices []models.Invoice, invoiceID string, p PaymentDetails) ([]models.Invoice, *models.Invoice, error) {
	const op = "RegisterPassThroughSettlement"

	idx := indexOf(invoices, invoiceID)
	if idx < 0 {
		return invoices, nil, opError(op, invoiceID, ErrInvoiceNotFound)
	}
	if invoices[idx].PassThroughStatus == models.PassThroughSettled {
		return invoices, nil, opError(op, invoiceID, ErrPassThroughAlreadySettled)
	}

	at := e.at(p)
	updated := invoices[idx].Clone()
	updated.PassThroughStatus = models.PassThroughSettled

	entries := []models.HistoryEntry{e.historyEntry(models.ActionPassThroughPayment, at, p.describe("pass-through settlement"))}
	if updated.FeeStatus == models.FeePaid {
		updated.OverallStatus = models.StatusFinalized
		entries = append(entries, e.historyEntry(models.ActionFinalized, at, "fee paid and pass-through settled"))
	}
	updated.History = appendHistory(updated.History, entries...)

	e.log.Info().
		Str("invoice_id", updated.ID).
		Str("number", updated.Number).
		Str("amount", p.Amount.StringFixed(2)).
		Str("status", string(updated.OverallStatus)).
		Msg("Pass-through settlement registered")

	return replaceAt(invoices, idx, updated), &updated, nil
}

// finalizeIfSettled finalizes a Paid invoice once line-item edits leave no
// pass-through to settle.
func (e *Engine) finalizeIfSettled(inv models.Invoice, at time.Time) models.Invoice {
	if inv.OverallStatus != models.StatusPaid || !inv.PassThroughTotal.IsZero() {
		return inv
	}
	inv.OverallStatus = models.StatusFinalized
	inv.History = appendHistory(inv.History, e.historyEntry(models.ActionFinalized, at, "fee paid, no pass-through left to settle"))

	e.log.Info().
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Msg("Invoice finalized after line item change")
	return inv
}
