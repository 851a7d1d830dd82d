package store

import (
	"context"
	"sync"

	"courier/pkg/models"
)

// Memory keeps the collection in process. It is used by tests and by the
// CLI's dry-run mode.
type Memory struct {
	mu       sync.RWMutex
	invoices []models.Invoice
	saves    int
}

// NewMemory returns a store seeded with invoices.
func NewMemory(invoices ...models.Invoice) *Memory {
	return &Memory{invoices: models.CloneInvoices(invoices)}
}

// Load implements invoice.Repository.
func (m *Memory) Load(ctx context.Context) ([]models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CloneInvoices(m.invoices), nil
}

// Save implements invoice.Repository.
func (m *Memory) Save(ctx context.Context, invoices []models.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = models.CloneInvoices(invoices)
	m.saves++
	return nil
}

// Saves returns how many times the collection was saved.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
