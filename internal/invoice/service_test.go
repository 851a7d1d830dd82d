package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/clock"
	"courier/internal/invoice"
	"courier/internal/reconciliation"
	"courier/internal/store"
	"courier/pkg/models"
)

var serviceNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

type failingRepo struct {
	saves int
}

func (r *failingRepo) Load(ctx context.Context) ([]models.Invoice, error) {
	return nil, nil
}

func (r *failingRepo) Save(ctx context.Context, invoices []models.Invoice) error {
	r.saves++
	return errors.New("disk full")
}

func newService(t *testing.T, repo invoice.Repository) (*invoice.Service, *clock.Fixed) {
	t.Helper()
	c := clock.NewFixed(serviceNow)
	svc, err := invoice.NewService(context.Background(), repo, invoice.NewEngine(invoice.WithClock(c)))
	require.NoError(t, err)
	return svc, c
}

func delivery(id string, fee string) invoice.DeliveryCompletion {
	at := serviceNow
	return invoice.DeliveryCompletion{
		Delivery: models.DeliveryRequest{
			ID:          id,
			ClientID:    "c1",
			Code:        "D-" + id,
			CompletedAt: &at,
			Routes: []models.Route{
				{ID: "route-" + id, Neighborhood: "Centro", BaseFee: decimal.RequireFromString(fee)},
			},
		},
		Client: &models.Client{ID: "c1", Name: "Padaria Central"},
		Rules:  reconciliation.NewEngine(nil, nil),
	}
}

func TestService_CompleteDeliverySaves(t *testing.T) {
	repo := store.NewMemory()
	svc, _ := newService(t, repo)

	inv, err := svc.CompleteDelivery(context.Background(), delivery("d1", "20.00"))
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 1, repo.Saves())

	stored, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, inv.ID, stored[0].ID)

	got, err := svc.Get(inv.ID)
	require.NoError(t, err)
	assert.True(t, got.FeeTotal.Equal(decimal.RequireFromString("20.00")))

	open, ok := svc.OpenInvoiceFor("c1")
	assert.True(t, ok)
	assert.Equal(t, inv.ID, open.ID)
	assert.Len(t, svc.ListByClient("c1"), 1)
	assert.Empty(t, svc.ListByClient("c2"))
}

func TestService_SaveFailureKeepsResult(t *testing.T) {
	repo := &failingRepo{}
	svc, _ := newService(t, repo)

	inv, err := svc.CompleteDelivery(context.Background(), delivery("d1", "20.00"))
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, svc.List(), 1, "the in-memory collection is updated")
}

func TestService_ErrorsLeaveCollection(t *testing.T) {
	repo := store.NewMemory()
	svc, _ := newService(t, repo)

	_, err := svc.RegisterFeePayment(context.Background(), "missing", invoice.PaymentDetails{})
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
	_, err = svc.Get("missing")
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
	assert.Equal(t, 0, repo.Saves())
}

func TestService_ReadsAreOverdueViews(t *testing.T) {
	repo := store.NewMemory()
	svc, c := newService(t, repo)

	inv, err := svc.CompleteDelivery(context.Background(), delivery("d1", "20.00"))
	require.NoError(t, err)

	c.Set(inv.DueDate.AddDate(0, 0, 2))
	got, err := svc.Get(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, got.OverallStatus)

	stored, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stored[0].OverallStatus)
}

func TestService_ConcurrentCompletionsShareOneInvoice(t *testing.T) {
	repo := store.NewMemory()
	svc, _ := newService(t, repo)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CompleteDelivery(context.Background(), delivery(fmt.Sprintf("d%d", i), "10.00"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	invoices := svc.List()
	require.Len(t, invoices, 1)
	assert.Len(t, invoices[0].LineItems, n)
	assert.Equal(t, n, invoices[0].DeliveryCount)
	assert.True(t, invoices[0].FeeTotal.Equal(decimal.NewFromInt(10*n)))
	assert.Equal(t, n, repo.Saves())
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, store.NewMemory())

	inv, err := svc.CompleteDelivery(ctx, delivery("d1", "20.00"))
	require.NoError(t, err)

	inv, err = svc.AddManualLineItem(ctx, inv.ID, invoice.ManualLineItem{
		Date:        serviceNow,
		Description: "Waiting time",
		FeeAmount:   decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	assert.True(t, inv.FeeTotal.Equal(decimal.RequireFromString("25.00")))

	inv, err = svc.CloseInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, inv.OverallStatus)

	inv, err = svc.RegisterFeePayment(ctx, inv.ID, invoice.PaymentDetails{Amount: inv.FeeTotal})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, inv.OverallStatus)

	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))
	assert.Empty(t, svc.List())
}
