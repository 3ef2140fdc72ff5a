package model

// Priority is the sales-priority tier derived from total staffing spend.
type Priority string

const (
	PriorityHigh    Priority = "HIGH"
	PriorityMedium  Priority = "MEDIUM"
	PriorityLow     Priority = "LOW"
	PriorityUnknown Priority = "UNKNOWN"
)

// Tier thresholds on total teaching and support staff costs (GBP per year).
const (
	HighPriorityThreshold   = 500_000.0
	MediumPriorityThreshold = 200_000.0
)

// Rank orders tiers so that HIGH > MEDIUM > LOW > UNKNOWN.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority maps a case-insensitive tier label to a Priority.
// Unrecognised labels map to PriorityUnknown.
func ParsePriority(s string) Priority {
	switch Priority(upper(s)) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityUnknown
	}
}

// PriorityFor returns the tier for a total staffing figure. A nil figure is UNKNOWN.
func PriorityFor(totalStaffing *float64) Priority {
	if totalStaffing == nil {
		return PriorityUnknown
	}
	switch spend := *totalStaffing; {
	case spend >= HighPriorityThreshold:
		return PriorityHigh
	case spend >= MediumPriorityThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// FinancialFigures holds annual spending totals from the financial benchmarking feed.
// All monetary fields are totals in GBP; per-pupil values are derived, never stored.
type FinancialFigures struct {
	TotalExpenditure     *float64 `json:"total_expenditure,omitempty"`
	TotalPupils          *float64 `json:"total_pupils,omitempty"`
	TeachingStaffCosts   *float64 `json:"teaching_staff_costs,omitempty"`
	SupplyTeachingCosts  *float64 `json:"supply_teaching_costs,omitempty"`
	AgencySupplyCosts    *float64 `json:"agency_supply_costs,omitempty"`
	EducationalSupport   *float64 `json:"educational_support_costs,omitempty"`
	ConsultancyCosts     *float64 `json:"educational_consultancy_costs,omitempty"`
	TotalStaffingCosts   *float64 `json:"total_teaching_support_costs,omitempty"`
	StaffingPerPupilText string   `json:"total_teaching_support_spend_per_pupil,omitempty"`
	ComparisonText       string   `json:"comparison_to_other_schools,omitempty"`
}

// Priority derives the sales tier from total staffing costs, not agency spend.
func (f *FinancialFigures) Priority() Priority {
	if f == nil {
		return PriorityUnknown
	}
	return PriorityFor(f.TotalStaffingCosts)
}

// HasFinancialData reports whether the headline totals are known.
func (f *FinancialFigures) HasFinancialData() bool {
	return f != nil && (f.TotalStaffingCosts != nil || f.TotalExpenditure != nil)
}

// HasAgencySpend reports whether agency supply costs are present and positive.
func (f *FinancialFigures) HasAgencySpend() bool {
	return f != nil && f.AgencySupplyCosts != nil && *f.AgencySupplyCosts > 0
}

// IsEmpty reports whether no monetary or pupil figure is present.
func (f *FinancialFigures) IsEmpty() bool {
	if f == nil {
		return true
	}
	for _, v := range f.values() {
		if v != nil {
			return false
		}
	}
	return f.StaffingPerPupilText == "" && f.ComparisonText == ""
}

func (f *FinancialFigures) values() []*float64 {
	return []*float64{
		f.TotalExpenditure, f.TotalPupils, f.TeachingStaffCosts, f.SupplyTeachingCosts,
		f.AgencySupplyCosts, f.EducationalSupport, f.ConsultancyCosts, f.TotalStaffingCosts,
	}
}

// PerPupil divides a total by the pupil count. It returns false when either
// value is missing or the pupil count is not positive.
func PerPupil(total, pupils *float64) (float64, bool) {
	if total == nil || pupils == nil || *pupils <= 0 {
		return 0, false
	}
	return *total / *pupils, true
}

// AgencyPerPupil is agency supply spend per pupil.
func (f *FinancialFigures) AgencyPerPupil() (float64, bool) {
	if f == nil {
		return 0, false
	}
	return PerPupil(f.AgencySupplyCosts, f.TotalPupils)
}

// TeachingPerPupil is teaching staff spend per pupil.
func (f *FinancialFigures) TeachingPerPupil() (float64, bool) {
	if f == nil {
		return 0, false
	}
	return PerPupil(f.TeachingStaffCosts, f.TotalPupils)
}

// StaffingPerPupil is total staffing spend per pupil.
func (f *FinancialFigures) StaffingPerPupil() (float64, bool) {
	if f == nil {
		return 0, false
	}
	return PerPupil(f.TotalStaffingCosts, f.TotalPupils)
}
