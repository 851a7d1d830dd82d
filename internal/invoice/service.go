// Package invoice aggregates completed deliveries into client invoices and
// tracks their settlement.
//
// The Engine is pure: each operation takes the current invoice collection and
// returns a new one without touching its input. The Service owns the shared
// collection, serializes mutations, installs each result and hands a snapshot
// to its Repository.
//
// Invoice lifecycle:
//   - Open: accepts new deliveries of its client
//   - Closed: no longer accepts deliveries, fee still pending
//   - Paid: fee paid, pass-through still owed to the client
//   - Finalized: fee paid and pass-through settled (or never owed)
//
// Overdue is derived when reading, from the due date and the current time.
package invoice

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"courier/internal/logger"
	"courier/pkg/models"
)

// Repository persists the complete invoice collection.
type Repository interface {
	// Load returns the stored collection, or an empty one if nothing is stored.
	Load(ctx context.Context) ([]models.Invoice, error)

	// Save replaces the stored collection. The slice is owned by the callee.
	Save(ctx context.Context, invoices []models.Invoice) error
}

// Service holds the invoice collection and applies engine operations to it.
// Mutations are serialized, so two completions for the same client can never
// open two invoices.
type Service struct {
	mu       sync.Mutex
	engine   *Engine
	repo     Repository
	invoices []models.Invoice
	log      zerolog.Logger
}

// NewService loads the stored collection and returns a ready service.
func NewService(ctx context.Context, repo Repository, engine *Engine) (*Service, error) {
	const op = "NewService"

	if engine == nil {
		engine = NewEngine()
	}
	invoices, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load invoices: %w", op, err)
	}

	s := &Service{
		engine:   engine,
		repo:     repo,
		invoices: invoices,
		log:      logger.WithComponent("invoice-service"),
	}
	s.log.Debug().Int("invoices", len(invoices)).Msg("Invoice collection loaded")
	return s, nil
}

// List returns every invoice as it reads now.
func (s *Service) List() []models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.engine.Now()
	out := make([]models.Invoice, len(s.invoices))
	for i, inv := range s.invoices {
		out[i] = View(inv.Clone(), now)
	}
	return out
}

// ListByClient returns the client's invoices as they read now.
func (s *Service) ListByClient(clientID string) []models.Invoice {
	var out []models.Invoice
	for _, inv := range s.List() {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	return out
}

// Get returns one invoice as it reads now.
func (s *Service) Get(id string) (models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.invoices, id)
	if idx < 0 {
		return models.Invoice{}, opError("Get", id, ErrInvoiceNotFound)
	}
	return View(s.invoices[idx].Clone(), s.engine.Now()), nil
}

// OpenInvoiceFor returns the client's invoice that is accepting deliveries.
func (s *Service) OpenInvoiceFor(clientID string) (models.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findOpenInvoice(s.invoices, clientID)
	if idx < 0 {
		return models.Invoice{}, false
	}
	return View(s.invoices[idx].Clone(), s.engine.Now()), true
}

// CompleteDelivery bills a completed delivery on the client's open invoice.
// It returns nil without error when the delivery was skipped.
func (s *Service) CompleteDelivery(ctx context.Context, c DeliveryCompletion) (*models.Invoice, error) {
	return s.apply(ctx, "CompleteDelivery", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.AddDelivery(invoices, c)
	})
}

// CreateManualInvoice bills selected deliveries over an explicit period.
func (s *Service) CreateManualInvoice(ctx context.Context, req ManualInvoiceRequest) (*models.Invoice, error) {
	return s.apply(ctx, "CreateManualInvoice", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.CreateManualInvoice(invoices, req)
	})
}

// CloseInvoice stops an open invoice from accepting deliveries.
func (s *Service) CloseInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return s.apply(ctx, "CloseInvoice", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.CloseInvoice(invoices, id)
	})
}

// DeleteInvoice removes an invoice.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	_, err := s.apply(ctx, "DeleteInvoice", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		next, err := s.engine.DeleteInvoice(invoices, id)
		return next, nil, err
	})
	return err
}

// AddManualLineItem adds an operator-entered line item.
func (s *Service) AddManualLineItem(ctx context.Context, invoiceID string, in ManualLineItem) (*models.Invoice, error) {
	return s.apply(ctx, "AddManualLineItem", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.AddManualLineItem(invoices, invoiceID, in)
	})
}

// UpdateManualLineItem replaces a line item with operator-entered values.
func (s *Service) UpdateManualLineItem(ctx context.Context, invoiceID, itemID string, in ManualLineItem) (*models.Invoice, error) {
	return s.apply(ctx, "UpdateManualLineItem", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.UpdateManualLineItem(invoices, invoiceID, itemID, in)
	})
}

// DeleteManualLineItem removes a line item.
func (s *Service) DeleteManualLineItem(ctx context.Context, invoiceID, itemID string) (*models.Invoice, error) {
	return s.apply(ctx, "DeleteManualLineItem", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.DeleteManualLineItem(invoices, invoiceID, itemID)
	})
}

// RegisterFeePayment records the client's fee payment.
func (s *Service) RegisterFeePayment(ctx context.Context, id string, p PaymentDetails) (*models.Invoice, error) {
	return s.apply(ctx, "RegisterFeePayment", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.RegisterFeePayment(invoices, id, p)
	})
}

// RegisterPassThroughSettlement records the repasse to the client.
func (s *Service) RegisterPassThroughSettlement(ctx context.Context, id string, p PaymentDetails) (*models.Invoice, error) {
	return s.apply(ctx, "RegisterPassThroughSettlement", func(invoices []models.Invoice) ([]models.Invoice, *models.Invoice, error) {
		return s.engine.RegisterPassThroughSettlement(invoices, id, p)
	})
}

type operation func([]models.Invoice) ([]models.Invoice, *models.Invoice, error)

// apply runs fn against the current collection and installs its result. The
// computed invoice is returned even when saving fails; save errors are logged.
func (s *Service) apply(ctx context.Context, op string, fn operation) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, inv, err := fn(s.invoices)
	if err != nil {
		return nil, err
	}
	s.invoices = next

	if err := s.repo.Save(ctx, models.CloneInvoices(next)); err != nil {
		s.log.Error().Err(err).Str("op", op).Int("invoices", len(next)).Msg("Failed to save invoices")
	}

	if inv == nil {
		s.log.Info().Str("op", op).Int("invoices", len(next)).Msg("Invoice collection updated")
		return nil, nil
	}
	s.log.Info().
		Str("op", op).
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("status", string(inv.OverallStatus)).
		Msg("Invoice updated")
	out := View(inv.Clone(), s.engine.Now())
	return &out, nil
}
