package billing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestMonthPeriod(t *testing.T) {
	tests := []struct {
		year    int
		month   time.Month
		wantEnd int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.December, 31},
		{2024, time.April, 30},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			p := MonthPeriod(tt.year, tt.month)
			assert.Equal(t, civil.Date{Year: tt.year, Month: tt.month, Day: 1}, p.From)
			assert.Equal(t, civil.Date{Year: tt.year, Month: tt.month, Day: tt.wantEnd}, p.To)
			assert.NoError(t, p.Validate())
		})
	}
}

func TestPeriod(t *testing.T) {
	p := Period{From: civil.Date{Year: 2024, Month: 3, Day: 1}, To: civil.Date{Year: 2024, Month: 3, Day: 10}}
	assert.True(t, p.Contains(p.From))
	assert.True(t, p.Contains(p.To))
	assert.False(t, p.Contains(p.To.AddDays(1)))

	assert.Error(t, Period{From: p.To, To: p.From}.Validate())
	assert.Error(t, Period{To: p.To}.Validate())
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 13.5, roundCents(3*4.5))
	assert.Equal(t, 0.3, roundCents(0.1+0.2))
}
