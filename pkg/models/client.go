package models

import (
	"strconv"
	"strings"
	"time"
)

// BillingModality describes how a client pays for deliveries.
type BillingModality string

const (
	ModalityPrepaid  BillingModality = "prepaid"
	ModalityInvoiced BillingModality = "invoiced"
)

// BillingFrequency is how often a client's open invoice is due.
type BillingFrequency string

const (
	FrequencyDaily       BillingFrequency = "daily"
	FrequencyWeekly      BillingFrequency = "weekly"
	FrequencyMonthly     BillingFrequency = "monthly"
	FrequencyPerDelivery BillingFrequency = "per-delivery"
)

// BillingConfig is the per-client invoicing configuration. Optional fields
// left nil fall back to the due-date calculator defaults.
type BillingConfig struct {
	AutoClose     bool             `json:"autoClose"`
	Frequency     BillingFrequency `json:"frequency"`
	Weekday       string           `json:"weekday,omitempty"`
	MonthDay      *int             `json:"monthDay,omitempty"`
	DeliveryCount *int             `json:"deliveryCount,omitempty"`
}

// Client is a store that requests deliveries. Read-only to the invoicing core.
type Client struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Modality      BillingModality `json:"billingModality"`
	BillingConfig *BillingConfig  `json:"billingConfig,omitempty"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"domingo":   time.Sunday,
	"segunda":   time.Monday,
	"terca":     time.Tuesday,
	"terça":     time.Tuesday,
	"quarta":    time.Wednesday,
	"quinta":    time.Thursday,
	"sexta":     time.Friday,
	"sabado":    time.Saturday,
	"sábado":    time.Saturday,
}

// ParseWeekday accepts English or Portuguese weekday names and the numbers
// 0 (Sunday) to 6 (Saturday).
func ParseWeekday(s string) (time.Weekday, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, false
	}
	if wd, ok := weekdayNames[key]; ok {
		return wd, true
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), true
	}
	return 0, false
}
