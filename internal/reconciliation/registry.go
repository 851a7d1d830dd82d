package reconciliation

import (
	"courier/pkg/models"
)

// Registry is the read-only billing rule registry: the ordered list of
// payment methods and the billing action each one carries.
type Registry struct {
	methods []models.PaymentMethod
	byID    map[string]models.PaymentMethod
}

// NewRegistry builds a registry from the settings' payment methods. Later
// duplicates of an id are ignored.
func NewRegistry(methods []models.PaymentMethod) *Registry {
	r := &Registry{
		byID: make(map[string]models.PaymentMethod, len(methods)),
	}
	for _, m := range methods {
		if m.ID == "" {
			continue
		}
		if _, dup := r.byID[m.ID]; dup {
			continue
		}
		r.methods = append(r.methods, m)
		r.byID[m.ID] = m
	}
	return r
}

// Lookup returns the payment method with the given id.
func (r *Registry) Lookup(id string) (models.PaymentMethod, bool) {
	if r == nil {
		return models.PaymentMethod{}, false
	}
	m, ok := r.byID[id]
	return m, ok
}

// ActionFor returns the billing action for a payment method id. Unknown ids
// and a nil registry resolve to ActionNone.
func (r *Registry) ActionFor(id string) models.BillingAction {
	m, ok := r.Lookup(id)
	if !ok || !m.BillingAction.IsValid() {
		return models.ActionNone
	}
	return m.BillingAction
}

// Methods returns the payment methods in registry order.
func (r *Registry) Methods() []models.PaymentMethod {
	if r == nil {
		return nil
	}
	return append([]models.PaymentMethod(nil), r.methods...)
}

// Catalog indexes the extra-fee catalog by id.
type Catalog struct {
	byID map[string]models.ExtraFee
}

// NewCatalog builds a catalog from the configured extra fees.
func NewCatalog(fees []models.ExtraFee) *Catalog {
	c := &Catalog{byID: make(map[string]models.ExtraFee, len(fees))}
	for _, f := range fees {
		if f.ID != "" {
			c.byID[f.ID] = f
		}
	}
	return c
}

// Lookup returns the extra fee with the given id.
func (c *Catalog) Lookup(id string) (models.ExtraFee, bool) {
	if c == nil {
		return models.ExtraFee{}, false
	}
	f, ok := c.byID[id]
	return f, ok
}
