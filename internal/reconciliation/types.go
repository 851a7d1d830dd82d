package reconciliation

import (
	"github.com/shopspring/decimal"

	"courier/pkg/models"
)

// Result is the outcome of reconciling a single route.
type Result struct {
	RouteID string

	// Extras are the catalog extra fees applied to the route.
	Extras []models.LineExtraFee

	// OriginalFee is base fee plus extras; OriginalPassThrough is valorExtra.
	OriginalFee         decimal.Decimal
	OriginalPassThrough decimal.Decimal

	// FeeBilled and PassThroughBilled are Raw when the route has no
	// reconciliation record, otherwise an Override with the invoiced part.
	FeeBilled         models.BilledAmount
	PassThroughBilled models.BilledAmount
}

// InvoicedFee is the part of the fee that goes on the invoice.
func (r Result) InvoicedFee() decimal.Decimal {
	return r.FeeBilled.Resolve(r.OriginalFee)
}

// InvoicedPassThrough is the part of the pass-through that goes on the invoice.
func (r Result) InvoicedPassThrough() decimal.Decimal {
	return r.PassThroughBilled.Resolve(r.OriginalPassThrough)
}

// ResolvedOutsideFee is the part of the fee settled instantly at collection.
func (r Result) ResolvedOutsideFee() decimal.Decimal {
	return r.OriginalFee.Sub(r.InvoicedFee())
}

// ResolvedOutsidePassThrough is the part of the pass-through settled instantly.
func (r Result) ResolvedOutsidePassThrough() decimal.Decimal {
	return r.OriginalPassThrough.Sub(r.InvoicedPassThrough())
}
