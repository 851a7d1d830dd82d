package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/reconciliation"
	"courier/pkg/models"
)

func invoiceWithDelivery(t *testing.T, e *Engine) ([]models.Invoice, string) {
	t.Helper()
	recs := models.Reconciliations{
		"r1": {
			Fee:         []models.PaymentAllocation{{Amount: money("20.00"), PaymentMethodID: "cash"}},
			PassThrough: []models.PaymentAllocation{{Amount: money("50.00"), PaymentMethodID: "repasse"}},
		},
	}
	invoices, inv, err := e.AddDelivery(nil, completion(
		completedDelivery("d1", "c1", testNow, simpleRoute("r1", "20.00", "50.00")), weeklyClient(), recs))
	require.NoError(t, err)
	return invoices, inv.ID
}

func TestAddManualLineItem(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)
	require.True(t, invoices[0].FeeTotal.IsZero())

	got, inv, err := e.AddManualLineItem(invoices, id, ManualLineItem{
		Date:              testNow,
		Description:       "Extra trip",
		FeeAmount:         money("15.00"),
		ExtraFees:         []models.LineExtraFee{{Name: "Rain", Value: money("5.00")}},
		PassThroughAmount: money("10.00"),
	})
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 2)
	added := inv.LineItems[1]
	assert.Equal(t, models.SourceManual, added.Source)
	assert.NotEmpty(t, added.ID)
	assert.False(t, added.FeeBilled.IsOverride(), "manual items bill their raw amounts")

	assert.True(t, money("20.00").Equal(inv.FeeTotal), "15 fee + 5 extras")
	assert.True(t, money("60.00").Equal(inv.PassThroughTotal))
	assert.Equal(t, 2, inv.DeliveryCount)
	assert.Equal(t, models.ActionItemAdded, inv.History[len(inv.History)-1].Action)

	assert.Len(t, invoices[0].LineItems, 1, "input is not modified")
	assert.Len(t, got[0].LineItems, 2)
}

func TestUpdateManualLineItem(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)

	got, inv, err := e.UpdateManualLineItem(invoices, id, "r1", ManualLineItem{
		Date:              testNow,
		Description:       "Corrected delivery",
		FeeAmount:         money("18.00"),
		PassThroughAmount: money("50.00"),
	})
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 1)
	li := inv.LineItems[0]
	assert.Equal(t, "r1", li.ID)
	assert.Equal(t, "d1", li.DeliveryID, "delivery reference is kept")
	assert.Equal(t, models.SourceManual, li.Source)
	assert.True(t, money("18.00").Equal(inv.FeeTotal))
	assert.True(t, money("50.00").Equal(inv.PassThroughTotal))
	assert.Equal(t, models.ActionItemUpdated, inv.History[len(inv.History)-1].Action)

	assert.Equal(t, "Delivery D-d1 - Centro", invoices[0].LineItems[0].Description)
	assert.Equal(t, "Corrected delivery", got[0].LineItems[0].Description)
}

func TestDeleteManualLineItem(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)

	_, inv, err := e.DeleteManualLineItem(invoices, id, "r1")
	require.NoError(t, err)

	assert.Empty(t, inv.LineItems)
	assert.Equal(t, 0, inv.DeliveryCount)
	assert.True(t, inv.FeeTotal.IsZero())
	assert.True(t, inv.PassThroughTotal.IsZero())
	assert.Equal(t, models.ActionItemDeleted, inv.History[len(inv.History)-1].Action)
	assert.Len(t, invoices[0].LineItems, 1)
}

func TestManualLineItem_NotFound(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)
	item := ManualLineItem{Date: testNow, Description: "x"}

	tests := []struct {
		name string
		run  func() ([]models.Invoice, *models.Invoice, error)
		want error
	}{
		{"add to missing invoice", func() ([]models.Invoice, *models.Invoice, error) {
			return e.AddManualLineItem(invoices, "missing", item)
		}, ErrInvoiceNotFound},
		{"update missing item", func() ([]models.Invoice, *models.Invoice, error) {
			return e.UpdateManualLineItem(invoices, id, "missing", item)
		}, ErrLineItemNotFound},
		{"delete missing item", func() ([]models.Invoice, *models.Invoice, error) {
			return e.DeleteManualLineItem(invoices, id, "missing")
		}, ErrLineItemNotFound},
		{"delete from missing invoice", func() ([]models.Invoice, *models.Invoice, error) {
			return e.DeleteManualLineItem(invoices, "missing", "r1")
		}, ErrInvoiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, inv, err := tt.run()
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, inv)
			assert.Equal(t, invoices, got, "collection is returned unchanged")
		})
	}
}

func TestManualLineItem_FinalizedInvoiceIsProtected(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)

	invoices, _, err := e.RegisterFeePayment(invoices, id, PaymentDetails{Amount: decimal.Zero})
	require.NoError(t, err)
	invoices, inv, err := e.RegisterPassThroughSettlement(invoices, id, PaymentDetails{Amount: money("50.00")})
	require.NoError(t, err)
	require.Equal(t, models.StatusFinalized, inv.OverallStatus)

	item := ManualLineItem{Date: testNow, Description: "late extra", FeeAmount: money("5.00")}

	_, _, err = e.AddManualLineItem(invoices, id, item)
	assert.ErrorIs(t, err, ErrInvoiceFinalized)
	_, _, err = e.UpdateManualLineItem(invoices, id, "r1", item)
	assert.ErrorIs(t, err, ErrInvoiceFinalized)
	_, _, err = e.DeleteManualLineItem(invoices, id, "r1")
	assert.ErrorIs(t, err, ErrInvoiceFinalized)

	remaining, err := e.DeleteInvoice(invoices, id)
	require.NoError(t, err, "finalized invoices can still be deleted")
	assert.Empty(t, remaining)
}

func TestManualLineItem_Validation(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)

	got, inv, err := e.AddManualLineItem(invoices, id, ManualLineItem{
		FeeAmount: money("-1.00"),
	})
	require.Error(t, err)
	assert.Nil(t, inv)
	assert.Equal(t, invoices, got)

	var verrs reconciliation.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.Fields()
	assert.Equal(t, "This field is required", fields["date"])
	assert.Equal(t, "This field is required", fields["description"])
	assert.Equal(t, "Must be greater than or equal to 0", fields["feeAmount"])
	assert.NotContains(t, fields, "passThroughAmount")
}

func TestCreateManualInvoice(t *testing.T) {
	e, _ := newTestEngine()
	client := weeklyClient()
	may := func(day int) time.Time { return time.Date(2024, time.May, day, 14, 0, 0, 0, time.UTC) }

	// r1 is already billed on the client's open invoice.
	invoices, open, err := e.AddDelivery(nil, completion(
		completedDelivery("d1", "c1", may(2), simpleRoute("r1", "20.00", "")), client, nil))
	require.NoError(t, err)

	notCompleted := completedDelivery("d5", "c1", may(6), simpleRoute("r5", "9.00", ""))
	notCompleted.CompletedAt = nil

	req := ManualInvoiceRequest{
		Client:      *client,
		PeriodStart: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2024, time.June, 5, 12, 0, 0, 0, time.UTC),
		Deliveries: []models.DeliveryRequest{
			completedDelivery("d1", "c1", may(2), simpleRoute("r1", "20.00", "")),
			completedDelivery("d2", "c1", may(3), simpleRoute("r2", "12.00", "30.00")),
			completedDelivery("d3", "c1", may(10), simpleRoute("r3", "8.00", "")),
			completedDelivery("d4", "c1", may(11), simpleRoute("r4", "7.00", "")),
			completedDelivery("d6", "c2", may(4), simpleRoute("r6", "6.00", "")),
			notCompleted,
		},
		Reconciliations: models.Reconciliations{
			"r2": {
				Fee:         []models.PaymentAllocation{{Amount: money("12.00"), PaymentMethodID: "pix"}},
				PassThrough: []models.PaymentAllocation{{Amount: money("30.00"), PaymentMethodID: "cash"}},
			},
		},
		Notes: "May, first ten days",
		Rules: testRules(),
	}

	got, inv, err := e.CreateManualInvoice(invoices, req)
	require.NoError(t, err)

	require.Len(t, got, 2, "manual invoices never merge with the open invoice")
	assert.NotEqual(t, open.ID, inv.ID)
	assert.Equal(t, "INV-2024-0002", inv.Number)
	assert.Equal(t, ManualBillingType, inv.BillingType)
	assert.Equal(t, "May, first ten days", inv.Notes)
	assert.Equal(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), inv.DueDate)
	require.NotNil(t, inv.PeriodStart)
	require.NotNil(t, inv.PeriodEnd)
	assert.Equal(t, 10, inv.PeriodEnd.Day())

	ids := make([]string, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		ids = append(ids, li.ID)
	}
	assert.Equal(t, []string{"r2", "r3"}, ids, "already invoiced, out of range, other client and incomplete deliveries are skipped")
	assert.True(t, money("20.00").Equal(inv.FeeTotal))
	assert.True(t, inv.PassThroughTotal.IsZero())
	assert.Equal(t, models.StatusClosed, inv.OverallStatus)
	assert.Equal(t, []models.HistoryAction{models.ActionCreated, models.ActionClosed}, actions(inv))
	assert.Equal(t, 1, openInvoices(got, "c1"), "the automatic invoice stays the only open one")

	t.Run("nothing billable", func(t *testing.T) {
		again, inv2, err := e.CreateManualInvoice(got, req)
		assert.ErrorIs(t, err, ErrNoBillableDeliveries)
		assert.Nil(t, inv2)
		assert.Len(t, again, 2)
	})

	t.Run("invalid request", func(t *testing.T) {
		bad := req
		bad.Client = models.Client{}
		bad.PeriodEnd = req.PeriodStart.AddDate(0, 0, -1)
		bad.Deliveries = nil

		_, _, err := e.CreateManualInvoice(invoices, bad)
		var verrs reconciliation.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		fields := verrs.Fields()
		assert.Contains(t, fields, "periodEnd")
		assert.Contains(t, fields, "deliveries")
		assert.Contains(t, fields, "client.id")
	})

	t.Run("invalid reconciliation", func(t *testing.T) {
		bad := req
		bad.Reconciliations = models.Reconciliations{
			"r2": {Fee: []models.PaymentAllocation{{Amount: money("1.00"), PaymentMethodID: "pix"}}},
		}
		_, _, err := e.CreateManualInvoice(invoices, bad)
		assert.ErrorIs(t, err, reconciliation.ErrInvalidReconciliation)
	})
}

func TestCreateManualInvoice_KeepsOneOpenInvoice(t *testing.T) {
	e, c := newTestEngine()
	client := weeklyClient()

	invoices, auto, err := e.AddDelivery(nil, completion(
		completedDelivery("d1", "c1", testNow, simpleRoute("r1", "20.00", "")), client, nil))
	require.NoError(t, err)

	invoices, manual, err := e.CreateManualInvoice(invoices, ManualInvoiceRequest{
		Client:      *client,
		PeriodStart: testNow.AddDate(0, 0, -7),
		PeriodEnd:   testNow,
		DueDate:     testNow.AddDate(0, 0, 10),
		Deliveries:  []models.DeliveryRequest{completedDelivery("d2", "c1", testNow, simpleRoute("r2", "8.00", ""))},
		Rules:       testRules(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, openInvoices(invoices, "c1"))

	c.Advance(time.Hour)
	invoices, inv, err := e.AddDelivery(invoices, completion(
		completedDelivery("d3", "c1", c.Now(), simpleRoute("r3", "10.00", "")), client, nil))
	require.NoError(t, err)
	assert.Equal(t, auto.ID, inv.ID, "deliveries keep landing on the automatic invoice")

	invoices, _, err = e.CloseInvoice(invoices, auto.ID)
	require.NoError(t, err)

	invoices, inv, err = e.AddDelivery(invoices, completion(
		completedDelivery("d4", "c1", c.Now(), simpleRoute("r4", "10.00", "")), client, nil))
	require.NoError(t, err)
	assert.NotEqual(t, manual.ID, inv.ID, "a closed manual invoice never receives deliveries")
	assert.NotEqual(t, auto.ID, inv.ID)
	assert.Len(t, invoices, 3)
	assert.Equal(t, 1, openInvoices(invoices, "c1"))
}

func TestLineItemEdits_FinalizePaidInvoice(t *testing.T) {
	e, _ := newTestEngine()
	invoices, id := invoiceWithDelivery(t, e)

	invoices, _, err := e.AddManualLineItem(invoices, id, ManualLineItem{
		Date:        testNow,
		Description: "Waiting time",
		FeeAmount:   money("5.00"),
	})
	require.NoError(t, err)

	invoices, inv, err := e.RegisterFeePayment(invoices, id, PaymentDetails{Amount: money("5.00")})
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, inv.OverallStatus)

	_, inv, err = e.DeleteManualLineItem(invoices, id, "r1")
	require.NoError(t, err)
	assert.True(t, inv.PassThroughTotal.IsZero())
	assert.Equal(t, models.StatusFinalized, inv.OverallStatus)
	assert.Equal(t, models.ActionFinalized, inv.History[len(inv.History)-1].Action)

	t.Run("pass-through left to settle", func(t *testing.T) {
		_, inv, err := e.UpdateManualLineItem(invoices, id, "r1", ManualLineItem{
			Date:              testNow,
			Description:       "Delivery D-d1 - Centro",
			PassThroughAmount: money("40.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, inv.OverallStatus)
	})
}
