package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestPriorityFor_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		spend *float64
		want  Priority
	}{
		{"absent", nil, PriorityUnknown},
		{"zero", f64(0), PriorityLow},
		{"just below medium", f64(199_999.99), PriorityLow},
		{"exactly medium", f64(200_000), PriorityMedium},
		{"mid range", f64(350_000), PriorityMedium},
		{"just below high", f64(499_999.99), PriorityMedium},
		{"exactly high", f64(500_000), PriorityHigh},
		{"large", f64(2_500_000), PriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PriorityFor(tt.spend))
		})
	}
}

func TestPriorityFor_Monotonic(t *testing.T) {
	t.Parallel()

	prev := PriorityFor(f64(0)).Rank()
	for spend := 0.0; spend <= 1_000_000; spend += 12_500 {
		rank := PriorityFor(f64(spend)).Rank()
		assert.GreaterOrEqual(t, rank, prev, "tier dropped at %.0f", spend)
		prev = rank
	}
	assert.Greater(t, PriorityLow.Rank(), PriorityUnknown.Rank())
}

func TestFinancialFigures_PriorityUsesTotalStaffing(t *testing.T) {
	t.Parallel()

	f := &FinancialFigures{
		AgencySupplyCosts:  f64(900_000),
		TotalStaffingCosts: f64(150_000),
	}
	assert.Equal(t, PriorityLow, f.Priority())

	var missing *FinancialFigures
	assert.Equal(t, PriorityUnknown, missing.Priority())
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityHigh, ParsePriority(" high "))
	assert.Equal(t, PriorityMedium, ParsePriority("MEDIUM"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityUnknown, ParsePriority("urgent"))
}

func TestFinancialFigures_Derived(t *testing.T) {
	t.Parallel()

	f := &FinancialFigures{
		TotalPupils:        f64(400),
		AgencySupplyCosts:  f64(20_000),
		TeachingStaffCosts: f64(1_200_000),
	}

	v, ok := f.AgencyPerPupil()
	assert.True(t, ok)
	assert.InDelta(t, 50.0, v, 0.001)

	v, ok = f.TeachingPerPupil()
	assert.True(t, ok)
	assert.InDelta(t, 3000.0, v, 0.001)

	_, ok = f.StaffingPerPupil()
	assert.False(t, ok)

	assert.True(t, f.HasAgencySpend())
	assert.False(t, f.HasFinancialData())

	f.TotalPupils = f64(0)
	_, ok = f.AgencyPerPupil()
	assert.False(t, ok, "zero pupils yields no ratio")

	assert.False(t, (&FinancialFigures{AgencySupplyCosts: f64(0)}).HasAgencySpend())
}

func TestFinancialFigures_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, (&FinancialFigures{}).IsEmpty())
	assert.False(t, (&FinancialFigures{ConsultancyCosts: f64(1)}).IsEmpty())
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "£1,250,000", FormatGBP(1_250_000))
	assert.Equal(t, "No data", (&FinancialFigures{}).TotalStaffingFormatted())
	assert.Equal(t, "£0", (&FinancialFigures{}).AgencySpendFormatted())

	f := &FinancialFigures{AgencySupplyCosts: f64(12_345), TotalPupils: f64(100)}
	assert.Equal(t, "£12,345", f.AgencySpendFormatted())
	assert.Equal(t, "£123 per pupil", f.AgencyPerPupilFormatted())
}

func TestFinancialSummary(t *testing.T) {
	t.Parallel()

	f := &FinancialFigures{
		TotalPupils:         f64(500),
		TotalStaffingCosts:  f64(1_000_000),
		AgencySupplyCosts:   f64(25_000),
		SupplyTeachingCosts: f64(0),
	}
	summary := f.FinancialSummary()
	assert.Contains(t, summary, "Total Pupils: 500")
	assert.Contains(t, summary, "Total Staffing Costs: £1,000,000 (KEY METRIC)")
	assert.Contains(t, summary, "£2,000 per pupil on staffing")
	assert.Contains(t, summary, "£50 per pupil on agency staff")
	assert.NotContains(t, summary, "Supply Teaching")

	assert.Equal(t, "No financial data available", (&FinancialFigures{}).FinancialSummary())
}
