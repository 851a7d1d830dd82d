package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"courier/internal/logger"
	"courier/pkg/models"
)

// ErrClosed is returned by Save after Close.
var ErrClosed = errors.New("store is closed")

// Backend is the storage an Async writer forwards to.
type Backend interface {
	Load(ctx context.Context) ([]models.Invoice, error)
	Save(ctx context.Context, invoices []models.Invoice) error
}

// Async makes saving fire-and-forget. Save records the snapshot and returns at
// once; a background writer persists the most recent snapshot, so snapshots
// superseded before they are written are dropped.
type Async struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.Mutex
	pending []models.Invoice
	saved   bool
	dirty   bool
	closed  bool
	lastErr error

	wake      chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsync starts a background writer for backend.
func NewAsync(backend Backend) *Async {
	a := &Async{
		backend:  backend,
		log:      logger.WithComponent("store-async"),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}

	a.wg.Add(1)
	go a.writeLoop()

	return a
}

// Load implements invoice.Repository. Once anything was saved the latest
// snapshot is returned, whether or not it has reached the backend.
func (a *Async) Load(ctx context.Context) ([]models.Invoice, error) {
	a.mu.Lock()
	if a.saved {
		out := models.CloneInvoices(a.pending)
		a.mu.Unlock()
		return out, nil
	}
	a.mu.Unlock()
	return a.backend.Load(ctx)
}

// Save implements invoice.Repository.
func (a *Async) Save(ctx context.Context, invoices []models.Invoice) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	a.pending = invoices
	a.saved = true
	a.dirty = true

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Err returns the error of the most recent failed write, if any.
func (a *Async) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Close writes any pending snapshot and stops the writer.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		close(a.stopChan)
		a.wg.Wait()
	})
	return a.Err()
}

func (a *Async) writeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.wake:
			a.flush()
		case <-a.stopChan:
			a.flush()
			return
		}
	}
}

func (a *Async) flush() {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	snapshot := a.pending
	a.dirty = false
	a.mu.Unlock()

	err := a.backend.Save(context.Background(), snapshot)

	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()

	if err != nil {
		a.log.Error().Err(err).Int("invoices", len(snapshot)).Msg("Failed to persist invoices")
		return
	}
	a.log.Debug().Int("invoices", len(snapshot)).Msg("Invoices persisted")
}
