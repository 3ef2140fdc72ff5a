package loader

import (
	"strings"

	"github.com/sells-group/school-intel/internal/model"
)

// Filter narrows a school listing. Zero-valued fields match everything.
type Filter struct {
	Name        string         // case-insensitive substring of the school name
	Priority    model.Priority // exact tier
	Authority   string         // case-insensitive local authority
	MinStaffing *float64       // total staffing cost strictly above
	MinAgency   *float64       // agency supply cost strictly above
	Limit       int
}

func (f Filter) match(s *model.School) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Priority != "" && s.Priority() != f.Priority {
		return false
	}
	if f.Authority != "" && !strings.EqualFold(s.LAName, f.Authority) {
		return false
	}
	if f.MinStaffing != nil && !above(s.Financial, func(ff *model.FinancialFigures) *float64 { return ff.TotalStaffingCosts }, *f.MinStaffing) {
		return false
	}
	if f.MinAgency != nil && !above(s.Financial, func(ff *model.FinancialFigures) *float64 { return ff.AgencySupplyCosts }, *f.MinAgency) {
		return false
	}
	return true
}

func above(f *model.FinancialFigures, field func(*model.FinancialFigures) *float64, minSpend float64) bool {
	if f == nil {
		return false
	}
	v := field(f)
	return v != nil && *v > minSpend
}

// Filter returns the schools matching every set field of f, in URN order.
func (l *Loader) Filter(f Filter) []*model.School {
	return truncate(l.filter(f.match), f.Limit)
}
