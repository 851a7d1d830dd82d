package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"courier/pkg/models"
)

// Recompute derives an invoice's aggregate totals from its line items. It is
// a pure fold: calling it twice yields the same totals.
func Recompute(inv models.Invoice) models.Invoice {
	fee, passThrough := decimal.Zero, decimal.Zero
	for _, li := range inv.LineItems {
		fee = fee.Add(li.BilledFee())
		passThrough = passThrough.Add(li.BilledPassThrough())
	}
	inv.FeeTotal = fee
	inv.PassThroughTotal = passThrough
	inv.DeliveryCount = len(inv.LineItems)
	return inv
}

const numberPrefix = "INV-"

// NextNumber returns the next sequential invoice number for year, formatted
// as INV-<year>-<4-digit sequence>.
func NextNumber(invoices []models.Invoice, year int) string {
	prefix := fmt.Sprintf("%s%d-", numberPrefix, year)
	highest := 0
	for _, inv := range invoices {
		rest, ok := strings.CutPrefix(inv.Number, prefix)
		if !ok {
			continue
		}
		if seq, err := strconv.Atoi(rest); err == nil && seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1)
}

// BillingTypeLabel names the billing arrangement an automatic invoice was
// opened under.
func BillingTypeLabel(client *models.Client) string {
	if client == nil || client.BillingConfig == nil || !client.BillingConfig.AutoClose {
		return "Manual close"
	}
	switch client.BillingConfig.Frequency {
	case models.FrequencyDaily:
		return "Daily"
	case models.FrequencyWeekly:
		return "Weekly"
	case models.FrequencyMonthly:
		return "Monthly"
	case models.FrequencyPerDelivery:
		return "Per delivery"
	default:
		return "Manual close"
	}
}

// ManualBillingType labels invoices created over an explicit date range.
const ManualBillingType = "Manual"
