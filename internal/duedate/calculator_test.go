package duedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"courier/internal/clock"
	"courier/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func autoClose(freq models.BillingFrequency) *models.Client {
	return &models.Client{
		ID:            "c1",
		BillingConfig: &models.BillingConfig{AutoClose: true, Frequency: freq},
	}
}

func TestCompute(t *testing.T) {
	// Wednesday afternoon
	now := time.Date(2024, time.May, 15, 16, 30, 0, 0, time.UTC)

	weekly := autoClose(models.FrequencyWeekly)
	weekly.BillingConfig.Weekday = "friday"

	weeklyToday := autoClose(models.FrequencyWeekly)
	weeklyToday.BillingConfig.Weekday = "wednesday"

	monthly := autoClose(models.FrequencyMonthly)
	monthly.BillingConfig.MonthDay = intPtr(20)

	monthlyPast := autoClose(models.FrequencyMonthly)
	monthlyPast.BillingConfig.MonthDay = intPtr(10)

	tests := []struct {
		name   string
		client *models.Client
		want   time.Time
	}{
		{"no client", nil, date(2024, time.May, 30)},
		{"no billing config", &models.Client{ID: "c1"}, date(2024, time.May, 30)},
		{"auto close disabled", &models.Client{ID: "c1", BillingConfig: &models.BillingConfig{Frequency: models.FrequencyDaily}}, date(2024, time.May, 30)},
		{"daily", autoClose(models.FrequencyDaily), date(2024, time.May, 16)},
		{"weekly upcoming friday", weekly, date(2024, time.May, 17)},
		{"weekly on the anchor day rolls a week", weeklyToday, date(2024, time.May, 22)},
		{"weekly default weekday", autoClose(models.FrequencyWeekly), date(2024, time.May, 17)},
		{"monthly later this month", monthly, date(2024, time.May, 20)},
		{"monthly rolls to next month", monthlyPast, date(2024, time.June, 10)},
		{"monthly default anchor", autoClose(models.FrequencyMonthly), date(2024, time.May, 28)},
		{"per delivery", autoClose(models.FrequencyPerDelivery), date(2024, time.May, 22)},
		{"unknown frequency", autoClose("fortnightly"), date(2024, time.May, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.client, now))
		})
	}
}

func TestCompute_MonthlyAnchorBeforeToday(t *testing.T) {
	// Day 30 of a 31-day month, anchored to the 28th.
	client := autoClose(models.FrequencyMonthly)
	client.BillingConfig.MonthDay = intPtr(28)

	got := Compute(client, time.Date(2024, time.January, 30, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, date(2024, time.February, 28), got)
}

func TestCompute_MonthlyAnchorClampsToMonthEnd(t *testing.T) {
	client := autoClose(models.FrequencyMonthly)
	client.BillingConfig.MonthDay = intPtr(31)

	assert.Equal(t, date(2024, time.April, 30), Compute(client, date(2024, time.April, 2)))
	assert.Equal(t, date(2024, time.February, 29), Compute(client, date(2024, time.February, 1)))
}

func TestCompute_AnchorOnToday(t *testing.T) {
	client := autoClose(models.FrequencyMonthly)
	client.BillingConfig.MonthDay = intPtr(15)

	assert.Equal(t, date(2024, time.May, 15), Compute(client, time.Date(2024, time.May, 15, 23, 0, 0, 0, time.UTC)))
}

func TestCalculator_UsesClock(t *testing.T) {
	c := clock.NewFixed(time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC))
	calc := NewCalculator(c)

	assert.Equal(t, date(2024, time.May, 16), calc.DueDate(autoClose(models.FrequencyDaily)))

	c.Advance(24 * time.Hour)
	assert.Equal(t, date(2024, time.May, 17), calc.DueDate(autoClose(models.FrequencyDaily)))
}
