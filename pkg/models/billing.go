package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BillingAction decides whether money collected with a payment method ends
// up on the invoice or is resolved outside it.
type BillingAction string

const (
	// ActionGenerateFeeDebit puts collected fee money on the invoice as a debit.
	ActionGenerateFeeDebit BillingAction = "GenerateFeeDebit"
	// ActionGenerateRepasseCredit puts collected pass-through money on the
	// invoice as a credit owed to the client.
	ActionGenerateRepasseCredit BillingAction = "GenerateRepasseCredit"
	// ActionNone resolves the money instantly, outside the invoice.
	ActionNone BillingAction = "None"
)

// IsValid reports whether a is a known billing action.
func (a BillingAction) IsValid() bool {
	switch a {
	case ActionGenerateFeeDebit, ActionGenerateRepasseCredit, ActionNone:
		return true
	}
	return false
}

// PaymentMethod is an entry of the billing rule registry.
type PaymentMethod struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	BillingAction BillingAction `json:"billingAction"`
}

// PaymentAllocation is an amount collected with a given payment method.
type PaymentAllocation struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID string          `json:"paymentMethodId"`
}

// UnmarshalJSON accepts the amount in Brazilian notation.
func (a *PaymentAllocation) UnmarshalJSON(data []byte) error {
	type plain PaymentAllocation
	var raw struct {
		plain
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = PaymentAllocation(raw.plain)
	a.Amount = decodeMoney(raw.Amount)
	return nil
}

// Reconciliation maps the money actually collected for a route back to the
// route's fee and pass-through amount.
type Reconciliation struct {
	Fee         []PaymentAllocation `json:"fee"`
	PassThrough []PaymentAllocation `json:"passThrough"`
}

// Reconciliations holds reconciliation records keyed by route id.
type Reconciliations map[string]Reconciliation

// SumAllocations totals the amounts of a list of allocations.
func SumAllocations(allocations []PaymentAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}
