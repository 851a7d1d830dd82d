package reconciliation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"courier/pkg/models"
)

// Validate checks a reconciliation submission for a route before it is
// accepted. The fee allocations must add up to the route's original fee and
// the pass-through allocations to its valorExtra, each within
// models.MoneyTolerance; every nonzero allocation must reference a known
// payment method. All failures are returned together as ValidationErrors.
func (e *Engine) Validate(route models.Route, rec models.Reconciliation) error {
	var errs ValidationErrors

	expectedFee := e.OriginalFee(route)
	errs = append(errs, e.validateAllocations("fee", rec.Fee, expectedFee)...)
	errs = append(errs, e.validateAllocations("passThrough", rec.PassThrough, route.PassThrough())...)

	if len(errs) > 0 {
		e.log.Warn().
			Str("route_id", route.ID).
			Int("errors", len(errs)).
			Msg("Reconciliation rejected")
	}
	return errs.OrNil()
}

func (e *Engine) validateAllocations(field string, allocations []models.PaymentAllocation, expected decimal.Decimal) ValidationErrors {
	var errs ValidationErrors

	for i, a := range allocations {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if a.Amount.IsNegative() {
			errs = append(errs, NewValidationError(prefix+".amount", a.Amount.StringFixed(2), "amount must not be negative"))
			continue
		}
		if !a.Amount.IsPositive() {
			continue
		}
		if a.PaymentMethodID == "" {
			errs = append(errs, NewValidationError(prefix+".paymentMethodId", "", "payment method is required for a nonzero amount"))
			continue
		}
		if _, ok := e.registry.Lookup(a.PaymentMethodID); !ok {
			errs = append(errs, NewValidationError(prefix+".paymentMethodId", a.PaymentMethodID, "unknown payment method"))
		}
	}

	total := models.SumAllocations(allocations)
	if !models.WithinTolerance(total, expected) {
		errs = append(errs, NewValidationError(field, total.StringFixed(2),
			fmt.Sprintf("allocations must add up to %s", expected.StringFixed(2))))
	}

	return errs
}

// ValidateDelivery validates every reconciliation record of a delivery.
// Records for route ids the delivery does not have are rejected. Field names
// are prefixed with "routes[<routeID>].".
func (e *Engine) ValidateDelivery(delivery models.DeliveryRequest, recs models.Reconciliations) error {
	var errs ValidationErrors

	routes := make(map[string]models.Route, len(delivery.Routes))
	for _, r := range delivery.Routes {
		routes[r.ID] = r
	}

	for _, r := range delivery.Routes {
		rec, ok := recs[r.ID]
		if !ok {
			continue
		}
		if err := e.Validate(r, rec); err != nil {
			if ve, ok := err.(ValidationErrors); ok {
				errs = append(errs, ve.WithPrefix(fmt.Sprintf("routes[%s].", r.ID))...)
			}
		}
	}

	// Sorted for a stable error order.
	var unknown []string
	for id := range recs {
		if _, ok := routes[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		errs = append(errs, NewValidationError(fmt.Sprintf("routes[%s]", id), id, "route does not belong to the delivery"))
	}

	return errs.OrNil()
}
