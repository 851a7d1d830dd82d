package invoice_test

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/clock"
	"courier/internal/invoice"
	"courier/internal/reconciliation"
	"courier/internal/store"
	"courier/pkg/models"
)

func ExampleService_CompleteDelivery() {
	ctx := context.Background()
	now := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

	svc, err := invoice.NewService(ctx, store.NewMemory(), invoice.NewEngine(invoice.WithClock(clock.NewFixed(now))))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	rules := reconciliation.NewEngine(
		reconciliation.NewRegistry([]models.PaymentMethod{
			{ID: "pix", Name: "Pix", BillingAction: models.ActionGenerateFeeDebit},
			{ID: "cash", Name: "Cash", BillingAction: models.ActionNone},
		}),
		nil,
	)
	passThrough := decimal.RequireFromString("30.00")

	inv, err := svc.CompleteDelivery(ctx, invoice.DeliveryCompletion{
		Delivery: models.DeliveryRequest{
			ID:          "d1",
			ClientID:    "c1",
			Code:        "1042",
			CompletedAt: &now,
			Routes: []models.Route{{
				ID:                "r1",
				Neighborhood:      "Centro",
				BaseFee:           decimal.RequireFromString("12.00"),
				PassThroughAmount: &passThrough,
			}},
		},
		Client: &models.Client{
			ID:   "c1",
			Name: "Padaria Central",
			BillingConfig: &models.BillingConfig{
				AutoClose: true,
				Frequency: models.FrequencyWeekly,
				Weekday:   "friday",
			},
		},
		Reconciliations: models.Reconciliations{
			"r1": {
				Fee:         []models.PaymentAllocation{{PaymentMethodID: "pix", Amount: decimal.RequireFromString("12.00")}},
				PassThrough: []models.PaymentAllocation{{PaymentMethodID: "cash", Amount: decimal.RequireFromString("30.00")}},
			},
		},
		Rules: rules,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(inv.Number, inv.ClientName)
	fmt.Println("due", inv.DueDate.Format("2006-01-02"))
	fmt.Println("fee", models.FormatBRL(inv.FeeTotal))
	fmt.Println("pass-through", models.FormatBRL(inv.PassThroughTotal))
	// Output:
	// INV-2024-0001 Padaria Central
	// due 2024-05-17
	// fee R$ 12,00
	// pass-through R$ 0,00
}
