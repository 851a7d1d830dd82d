package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courier/internal/clock"
	"courier/internal/duedate"
	"courier/internal/logger"
	"courier/internal/reconciliation"
	"courier/pkg/models"
)

// Engine computes new invoice collections from the current one. Every
// operation takes the collection by value and returns a new one; inputs are
// never modified, so a caller can install the result atomically.
type Engine struct {
	clock    clock.Clock
	dueDates *duedate.Calculator
	ids      func() string
	log      zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used for emission dates, due dates and history.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithIDGenerator sets the generator for invoice, line item and history ids.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.ids = fn
		}
	}
}

// NewEngine creates an aggregation engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		clock: clock.System{},
		ids:   uuid.NewString,
		log:   logger.WithComponent("invoice-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dueDates = duedate.NewCalculator(e.clock)
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// DeliveryCompletion carries a completed delivery and the collaborator data
// needed to bill it.
type DeliveryCompletion struct {
	Delivery models.DeliveryRequest

	// Client is the delivery's client. When nil, the invoice is opened with
	// default billing configuration and the client id as its name.
	Client *models.Client

	// Reconciliations holds the collected payments per route id. Routes
	// without a record are invoiced in full.
	Reconciliations models.Reconciliations

	// Rules holds the billing rule registry and the extra-fee catalog.
	Rules *reconciliation.Engine
}

func (c DeliveryCompletion) rules() *reconciliation.Engine {
	if c.Rules == nil {
		return reconciliation.NewEngine(nil, nil)
	}
	return c.Rules
}

// AddDelivery attaches a completed delivery to the client's open invoice,
// creating one when the client has none. Line items already on the invoice
// are not added again. Reconciliations are validated before anything is
// computed; a delivery without a client id is logged and skipped.
func (e *Engine) AddDelivery(invoices []models.Invoice, c DeliveryCompletion) ([]models.Invoice, *models.Invoice, error) {
	const op = "AddDelivery"
	d := c.Delivery

	if d.ClientID == "" {
		e.log.Warn().
			Str("delivery_id", d.ID).
			Str("delivery_code", d.Code).
			Msg("Delivery has no client id, skipping invoice aggregation")
		return invoices, nil, nil
	}

	rules := c.rules()
	if err := rules.ValidateDelivery(d, c.Reconciliations); err != nil {
		return invoices, nil, opError(op, "", err)
	}

	items := e.deliveryLineItems(d, c.Reconciliations, rules)
	if len(items) == 0 {
		e.log.Warn().
			Str("delivery_id", d.ID).
			Msg("Delivery has no routes, nothing to invoice")
		return invoices, nil, nil
	}

	now := e.clock.Now()

	if idx := findOpenInvoice(invoices, d.ClientID); idx >= 0 {
		updated := invoices[idx].Clone()
		fresh := newLineItems(updated, items)
		if len(fresh) == 0 {
			e.log.Debug().
				Str("invoice_id", updated.ID).
				Str("delivery_id", d.ID).
				Msg("Delivery already on invoice")
			return invoices, &updated, nil
		}

		updated.LineItems = append(updated.LineItems, fresh...)
		updated.History = appendHistory(updated.History,
			e.historyEntry(models.ActionItemsAdded, now, fmt.Sprintf("delivery %s: %d item(s)", deliveryLabel(d), len(fresh))))
		updated = Recompute(updated)

		return replaceAt(invoices, idx, updated), &updated, nil
	}

	client := c.Client
	if client == nil || client.ID != d.ClientID {
		if client != nil {
			e.log.Warn().
				Str("delivery_client_id", d.ClientID).
				Str("client_id", client.ID).
				Msg("Client record does not match delivery, using defaults")
		}
		client = &models.Client{ID: d.ClientID, Name: d.ClientID}
	}

	inv := models.Invoice{
		ID:                e.ids(),
		Number:            NextNumber(invoices, now.Year()),
		ClientID:          client.ID,
		ClientName:        client.Name,
		BillingType:       BillingTypeLabel(client),
		LineItems:         newLineItems(models.Invoice{}, items),
		EmissionDate:      now,
		DueDate:           e.dueDates.DueDate(client),
		FeeStatus:         models.FeePending,
		PassThroughStatus: models.PassThroughPending,
		OverallStatus:     models.StatusOpen,
	}
	inv.History = appendHistory(nil,
		e.historyEntry(models.ActionCreated, now, fmt.Sprintf("opened for delivery %s", deliveryLabel(d))))
	inv = Recompute(inv)

	return appendInvoice(invoices, inv), &inv, nil
}

// ManualInvoiceRequest selects completed deliveries to bill over an explicit
// period, outside the automatic open-invoice flow.
type ManualInvoiceRequest struct {
	Client          models.Client            `json:"client"`
	PeriodStart     time.Time                `json:"periodStart" validate:"required"`
	PeriodEnd       time.Time                `json:"periodEnd" validate:"required,gtefield=PeriodStart"`
	DueDate         time.Time                `json:"dueDate" validate:"required"`
	Deliveries      []models.DeliveryRequest `json:"deliveries" validate:"required,min=1"`
	Reconciliations models.Reconciliations   `json:"reconciliations,omitempty"`
	Notes           string                   `json:"notes,omitempty" validate:"max=2000"`

	Rules *reconciliation.Engine `json:"-" validate:"-"`
}

// CreateManualInvoice creates a new invoice for the selected deliveries. Only
// completed deliveries of the client inside the period are billed, and line
// items already present on any invoice are skipped so nothing is billed twice.
// The new invoice never merges with the client's open invoice and is created
// Closed, so automatic aggregation never appends to it.
func (e *Engine) CreateManualInvoice(invoices []models.Invoice, req ManualInvoiceRequest) ([]models.Invoice, *models.Invoice, error) {
	const op = "CreateManualInvoice"

	errs := validateInput(req)
	if req.Client.ID == "" {
		errs = append(errs, reconciliation.NewValidationError("client.id", "", "This field is required"))
	}
	if err := errs.OrNil(); err != nil {
		return invoices, nil, opError(op, "", err)
	}

	rules := reconciliation.NewEngine(nil, nil)
	if req.Rules != nil {
		rules = req.Rules
	}

	invoiced := invoicedLineItemIDs(invoices)
	from := clock.StartOfDay(req.PeriodStart)
	until := clock.StartOfDay(req.PeriodEnd).AddDate(0, 0, 1)

	var items []models.InvoiceLineItem
	for _, d := range req.Deliveries {
		if !eligibleForPeriod(d, req.Client.ID, from, until) {
			e.log.Debug().
				Str("delivery_id", d.ID).
				Msg("Delivery outside manual invoice selection, skipping")
			continue
		}
		if err := rules.ValidateDelivery(d, reconciliationsFor(d, req.Reconciliations)); err != nil {
			return invoices, nil, opError(op, "", err)
		}
		for _, li := range e.deliveryLineItems(d, req.Reconciliations, rules) {
			if invoiced[li.ID] {
				e.log.Debug().
					Str("line_item_id", li.ID).
					Str("delivery_id", d.ID).
					Msg("Route already invoiced, skipping")
				continue
			}
			invoiced[li.ID] = true
			items = append(items, li)
		}
	}

	if len(items) == 0 {
		return invoices, nil, opError(op, "", ErrNoBillableDeliveries)
	}

	now := e.clock.Now()
	start, end := from, clock.StartOfDay(req.PeriodEnd)
	name := req.Client.Name
	if name == "" {
		name = req.Client.ID
	}

	inv := models.Invoice{
		ID:                e.ids(),
		Number:            NextNumber(invoices, now.Year()),
		ClientID:          req.Client.ID,
		ClientName:        name,
		BillingType:       ManualBillingType,
		LineItems:         items,
		EmissionDate:      now,
		DueDate:           clock.StartOfDay(req.DueDate),
		PeriodStart:       &start,
		PeriodEnd:         &end,
		FeeStatus:         models.FeePending,
		PassThroughStatus: models.PassThroughPending,
		OverallStatus:     models.StatusClosed,
		Notes:             req.Notes,
	}
	// Manual invoices start Closed: the client's open invoice stays the only
	// one accepting deliveries.
	inv.History = appendHistory(nil,
		e.historyEntry(models.ActionCreated, now,
			fmt.Sprintf("manual invoice for %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))),
		e.historyEntry(models.ActionClosed, now, "manual invoice does not accept deliveries"))
	inv = Recompute(inv)

	return appendInvoice(invoices, inv), &inv, nil
}

// CloseInvoice stops an open invoice from accepting new deliveries. The next
// completed delivery of the client opens a new invoice.
func (e *Engine) CloseInvoice(invoices []models.Invoice, invoiceID string) ([]models.Invoice, *models.Invoice, error) {
	const op = "CloseInvoice"

	idx := indexOf(invoices, invoiceID)
	if idx < 0 {
		return invoices, nil, opError(op, invoiceID, ErrInvoiceNotFound)
	}
	if !invoices[idx].IsOpen() {
		return invoices, nil, opError(op, invoiceID, ErrInvoiceNotOpen)
	}

	updated := invoices[idx].Clone()
	updated.OverallStatus = models.StatusClosed
	updated.History = appendHistory(updated.History, e.historyEntry(models.ActionClosed, e.clock.Now(), ""))

	return replaceAt(invoices, idx, updated), &updated, nil
}

// DeleteInvoice removes an invoice unconditionally.
func (e *Engine) DeleteInvoice(invoices []models.Invoice, invoiceID string) ([]models.Invoice, error) {
	const op = "DeleteInvoice"

	idx := indexOf(invoices, invoiceID)
	if idx < 0 {
		return invoices, opError(op, invoiceID, ErrInvoiceNotFound)
	}
	if invoices[idx].OverallStatus == models.StatusFinalized {
		e.log.Warn().
			Str("invoice_id", invoiceID).
			Str("number", invoices[idx].Number).
			Msg("Deleting finalized invoice")
	}

	next := make([]models.Invoice, 0, len(invoices)-1)
	next = append(next, invoices[:idx]...)
	next = append(next, invoices[idx+1:]...)
	return next, nil
}

func eligibleForPeriod(d models.DeliveryRequest, clientID string, from, until time.Time) bool {
	if d.ClientID != clientID || !d.IsCompleted() {
		return false
	}
	at := *d.CompletedAt
	return !at.Before(from) && at.Before(until)
}

// reconciliationsFor keeps only the records that belong to d's routes, since
// a manual request carries records for every selected delivery.
func reconciliationsFor(d models.DeliveryRequest, recs models.Reconciliations) models.Reconciliations {
	if len(recs) == 0 {
		return nil
	}
	out := make(models.Reconciliations, len(d.Routes))
	for _, r := range d.Routes {
		if rec, ok := recs[r.ID]; ok {
			out[r.ID] = rec
		}
	}
	return out
}

func deliveryLabel(d models.DeliveryRequest) string {
	if d.Code != "" {
		return d.Code
	}
	return d.ID
}

func findOpenInvoice(invoices []models.Invoice, clientID string) int {
	for i, inv := range invoices {
		if inv.ClientID == clientID && inv.IsOpen() {
			return i
		}
	}
	return -1
}

func indexOf(invoices []models.Invoice, id string) int {
	for i, inv := range invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

func invoicedLineItemIDs(invoices []models.Invoice) map[string]bool {
	ids := make(map[string]bool)
	for _, inv := range invoices {
		for _, li := range inv.LineItems {
			ids[li.ID] = true
		}
	}
	return ids
}

// replaceAt returns a copy of invoices with position idx replaced.
func replaceAt(invoices []models.Invoice, idx int, inv models.Invoice) []models.Invoice {
	next := make([]models.Invoice, len(invoices))
	copy(next, invoices)
	next[idx] = inv
	return next
}

// appendInvoice returns a copy of invoices with inv added at the end.
func appendInvoice(invoices []models.Invoice, inv models.Invoice) []models.Invoice {
	next := make([]models.Invoice, len(invoices), len(invoices)+1)
	copy(next, invoices)
	return append(next, inv)
}
