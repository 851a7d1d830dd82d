// Package store persists the invoice collection.
//
// Every backend stores the whole collection as one JSON document, the same
// shape the back-office has always written. Decoding is tolerant: records
// that cannot be read are skipped with a warning instead of failing the load.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"courier/internal/invoice"
	"courier/internal/logger"
	"courier/pkg/models"
)

// EncodeInvoices renders the collection as a JSON array.
func EncodeInvoices(invoices []models.Invoice) ([]byte, error) {
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	data, err := json.Marshal(invoices)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoices: %w", err)
	}
	return data, nil
}

// DecodeInvoices reads a JSON array of invoices. Unreadable elements are
// skipped, missing statuses get their initial values and totals are derived
// again from the line items.
func DecodeInvoices(data []byte) ([]models.Invoice, error) {
	log := logger.WithComponent("store")

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.Invoice{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode invoice collection: %w", err)
	}

	invoices := make([]models.Invoice, 0, len(raw))
	for i, msg := range raw {
		var inv models.Invoice
		if err := json.Unmarshal(msg, &inv); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping unreadable invoice record")
			continue
		}
		if inv.ID == "" {
			log.Warn().Int("index", i).Msg("Skipping invoice record without id")
			continue
		}
		invoices = append(invoices, normalize(inv))
	}
	return invoices, nil
}

func normalize(inv models.Invoice) models.Invoice {
	if inv.FeeStatus == "" {
		inv.FeeStatus = models.FeePending
	}
	// Overdue is derived on read and never kept.
	if inv.FeeStatus == models.FeeOverdue {
		inv.FeeStatus = models.FeePending
	}
	if inv.PassThroughStatus == "" {
		inv.PassThroughStatus = models.PassThroughPending
	}
	if inv.OverallStatus == "" || inv.OverallStatus == models.StatusOverdue {
		inv.OverallStatus = models.StatusOpen
	}
	if inv.LineItems == nil {
		inv.LineItems = []models.InvoiceLineItem{}
	}
	return invoice.Recompute(inv)
}
