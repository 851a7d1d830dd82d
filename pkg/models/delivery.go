package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ExtraFee is an entry of the extra-fee catalog (e.g. "night shift", "rain").
type ExtraFee struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// UnmarshalJSON accepts the value in Brazilian notation.
func (f *ExtraFee) UnmarshalJSON(data []byte) error {
	type plain ExtraFee
	var raw struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = ExtraFee(raw.plain)
	f.Value = decodeMoney(raw.Value)
	return nil
}

// Route is a single leg of a delivery request.
type Route struct {
	ID                string           `json:"id"`
	Neighborhood      string           `json:"neighborhood"`
	BaseFee           decimal.Decimal  `json:"baseFee"`
	ExtraFeeIDs       []string         `json:"extraFeeIds,omitempty"`
	PassThroughAmount *decimal.Decimal `json:"valorExtra,omitempty"`
	PaymentMethodIDs  []string         `json:"paymentMethodIds,omitempty"`
}

// UnmarshalJSON accepts the base fee and valorExtra in Brazilian notation.
// An absent or null valorExtra stays nil.
func (r *Route) UnmarshalJSON(data []byte) error {
	type plain Route
	var raw struct {
		plain
		BaseFee           json.RawMessage `json:"baseFee"`
		PassThroughAmount json.RawMessage `json:"valorExtra"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Route(raw.plain)
	r.BaseFee = decodeMoney(raw.BaseFee)
	r.PassThroughAmount = nil
	if p := bytes.TrimSpace(raw.PassThroughAmount); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		amount := decodeMoney(p)
		r.PassThroughAmount = &amount
	}
	return nil
}

// PassThrough returns the pass-through amount, zero when absent.
func (r Route) PassThrough() decimal.Decimal {
	if r.PassThroughAmount == nil {
		return decimal.Zero
	}
	return *r.PassThroughAmount
}

// DeliveryRequest is a client's request fulfilled by a driver.
type DeliveryRequest struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"clientId"`
	Code        string     `json:"code"`
	Routes      []Route    `json:"routes"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DriverID    string     `json:"driverId,omitempty"`
	DriverName  string     `json:"driverName,omitempty"`
}

// IsCompleted reports whether the delivery has a completion timestamp.
func (d DeliveryRequest) IsCompleted() bool {
	return d.CompletedAt != nil && !d.CompletedAt.IsZero()
}
