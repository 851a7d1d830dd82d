package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	start := time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now())

	c.Advance(2 * time.Hour)
	assert.Equal(t, start.Add(2*time.Hour), c.Now())

	c.Set(start.AddDate(0, 1, 0))
	assert.Equal(t, time.June, c.Now().Month())
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	got := StartOfDay(time.Date(2024, time.May, 15, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, loc), got)
}
