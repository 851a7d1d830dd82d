// Package reconciliation matches the money collected for each delivery route
// against the billing rules of the payment methods used, and decides how much
// of a route's fee and pass-through amount is invoiced.
package reconciliation

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"courier/internal/logger"
	"courier/pkg/models"
)

// Engine reconciles routes against a billing rule registry and an
// extra-fee catalog.
type Engine struct {
	registry *Registry
	catalog  *Catalog
	log      zerolog.Logger
}

// NewEngine creates a reconciliation engine. Nil arguments behave as empty
// registries.
func NewEngine(registry *Registry, catalog *Catalog) *Engine {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Engine{
		registry: registry,
		catalog:  catalog,
		log:      logger.WithComponent("reconciliation"),
	}
}

// Registry returns the billing rule registry the engine reads from.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Extras resolves a route's extra-fee ids against the catalog. Unknown ids
// are logged and skipped.
func (e *Engine) Extras(route models.Route) []models.LineExtraFee {
	if len(route.ExtraFeeIDs) == 0 {
		return nil
	}
	extras := make([]models.LineExtraFee, 0, len(route.ExtraFeeIDs))
	for _, id := range route.ExtraFeeIDs {
		fee, ok := e.catalog.Lookup(id)
		if !ok {
			e.log.Warn().
				Str("route_id", route.ID).
				Str("extra_fee_id", id).
				Msg("Unknown extra fee on route, skipping")
			continue
		}
		extras = append(extras, models.LineExtraFee{Name: fee.Name, Value: fee.Value})
	}
	return extras
}

// OriginalFee is the route's base fee plus its catalog extras.
func (e *Engine) OriginalFee(route models.Route) decimal.Decimal {
	return originalFee(route, e.Extras(route))
}

func originalFee(route models.Route, extras []models.LineExtraFee) decimal.Decimal {
	total := route.BaseFee
	for _, x := range extras {
		total = total.Add(x.Value)
	}
	return total
}

// ReconcileRoute computes the invoiced amounts for a route. A nil rec means
// the route was never reconciled and is invoiced in full.
//
// With a record, the billed fee is the sum of the fee allocations made with
// GenerateFeeDebit methods, and the billed pass-through is the sum of the
// pass-through allocations made with GenerateRepasseCredit methods. Every
// other allocation was resolved outside the invoice.
func (e *Engine) ReconcileRoute(route models.Route, rec *models.Reconciliation) Result {
	extras := e.Extras(route)
	result := Result{
		RouteID:             route.ID,
		Extras:              extras,
		OriginalFee:         originalFee(route, extras),
		OriginalPassThrough: route.PassThrough(),
		FeeBilled:           models.Raw(),
		PassThroughBilled:   models.Raw(),
	}
	if rec == nil {
		return result
	}

	result.FeeBilled = models.Override(e.sumWithAction(rec.Fee, models.ActionGenerateFeeDebit))
	result.PassThroughBilled = models.Override(e.sumWithAction(rec.PassThrough, models.ActionGenerateRepasseCredit))

	e.log.Debug().
		Str("route_id", route.ID).
		Str("original_fee", result.OriginalFee.StringFixed(2)).
		Str("fee_billed", result.InvoicedFee().StringFixed(2)).
		Str("original_pass_through", result.OriginalPassThrough.StringFixed(2)).
		Str("pass_through_billed", result.InvoicedPassThrough().StringFixed(2)).
		Msg("Route reconciled")

	return result
}

func (e *Engine) sumWithAction(allocations []models.PaymentAllocation, action models.BillingAction) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		if e.registry.ActionFor(a.PaymentMethodID) == action {
			total = total.Add(a.Amount)
		}
	}
	return total
}
