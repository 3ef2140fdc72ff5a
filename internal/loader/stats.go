package loader

import (
	"time"

	"github.com/sells-group/school-intel/internal/model"
)

// Stats summarizes the loaded index.
type Stats struct {
	TotalSchools       int       `json:"total_schools"`
	WithContacts       int       `json:"with_contacts"`
	WithPhone          int       `json:"with_phone"`
	WithFinancialData  int       `json:"with_financial_data"`
	WithAgencySpend    int       `json:"with_agency_spend"`
	TotalStaffingSpend float64   `json:"total_staffing_spend"`
	TotalAgencySpend   float64   `json:"total_agency_spend"`
	HighPriority       int       `json:"high_priority"`
	MediumPriority     int       `json:"medium_priority"`
	LowPriority        int       `json:"low_priority"`
	UnknownPriority    int       `json:"unknown_priority"`
	Authorities        int       `json:"boroughs"`
	DataSource         string    `json:"data_source"`
	LoadedAt           time.Time `json:"loaded_at"`
}

// Stats computes summary statistics over the current index.
func (l *Loader) Stats() Stats {
	idx := l.current()
	st := Stats{
		TotalSchools: len(idx.schools),
		Authorities:  len(idx.authorities),
		DataSource:   idx.provenance,
		LoadedAt:     idx.loadedAt,
	}

	for _, s := range idx.schools {
		if s.Headteacher != nil {
			st.WithContacts++
		}
		if s.Phone != "" {
			st.WithPhone++
		}
		if f := s.Financial; f != nil {
			if f.TotalStaffingCosts != nil {
				st.TotalStaffingSpend += *f.TotalStaffingCosts
				if *f.TotalStaffingCosts != 0 {
					st.WithFinancialData++
				}
			}
			if f.AgencySupplyCosts != nil {
				st.TotalAgencySpend += *f.AgencySupplyCosts
			}
			if f.HasAgencySpend() {
				st.WithAgencySpend++
			}
		}

		switch s.Priority() {
		case model.PriorityHigh:
			st.HighPriority++
		case model.PriorityMedium:
			st.MediumPriority++
		case model.PriorityLow:
			st.LowPriority++
		default:
			st.UnknownPriority++
		}
	}
	return st
}
