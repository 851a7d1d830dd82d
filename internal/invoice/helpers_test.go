package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/clock"
	"courier/internal/reconciliation"
	"courier/pkg/models"
)

// Wednesday, 15 May 2024.
var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestEngine() (*Engine, *clock.Fixed) {
	c := clock.NewFixed(testNow)
	return NewEngine(WithClock(c), WithIDGenerator(sequentialIDs())), c
}

func testRules() *reconciliation.Engine {
	return reconciliation.NewEngine(
		reconciliation.NewRegistry([]models.PaymentMethod{
			{ID: "pix", Name: "Pix", BillingAction: models.ActionGenerateFeeDebit},
			{ID: "cash", Name: "Cash", BillingAction: models.ActionNone},
			{ID: "repasse", Name: "Client account", BillingAction: models.ActionGenerateRepasseCredit},
		}),
		reconciliation.NewCatalog([]models.ExtraFee{
			{ID: "rain", Name: "Rain", Value: money("5.00")},
		}),
	)
}

func weeklyClient() *models.Client {
	return &models.Client{
		ID:       "c1",
		Name:     "Padaria Central",
		Modality: models.ModalityInvoiced,
		BillingConfig: &models.BillingConfig{
			AutoClose: true,
			Frequency: models.FrequencyWeekly,
			Weekday:   "friday",
		},
	}
}

func completedDelivery(id, clientID string, at time.Time, routes ...models.Route) models.DeliveryRequest {
	return models.DeliveryRequest{
		ID:          id,
		ClientID:    clientID,
		Code:        "D-" + id,
		Routes:      routes,
		CompletedAt: &at,
		DriverID:    "drv-1",
		DriverName:  "Ana",
	}
}

func simpleRoute(id, fee, passThrough string) models.Route {
	r := models.Route{ID: id, Neighborhood: "Centro", BaseFee: money(fee)}
	if passThrough != "" {
		r.PassThroughAmount = moneyPtr(passThrough)
	}
	return r
}

func completion(d models.DeliveryRequest, client *models.Client, recs models.Reconciliations) DeliveryCompletion {
	return DeliveryCompletion{Delivery: d, Client: client, Reconciliations: recs, Rules: testRules()}
}

func openInvoices(invoices []models.Invoice, clientID string) int {
	n := 0
	for _, inv := range invoices {
		if inv.ClientID == clientID && inv.IsOpen() {
			n++
		}
	}
	return n
}
