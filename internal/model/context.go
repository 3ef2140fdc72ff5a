package model

import (
	"fmt"
	"strings"
)

// FinancialSummary renders the figures as plain text for an LLM prompt.
func (f *FinancialFigures) FinancialSummary() string {
	if f == nil {
		return "No financial data available"
	}

	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	positive := func(v *float64) bool { return v != nil && *v > 0 }

	if positive(f.TotalPupils) {
		add("Total Pupils: %d", int(*f.TotalPupils))
	}
	if positive(f.TotalExpenditure) {
		add("Total Expenditure: %s", FormatGBP(*f.TotalExpenditure))
	}
	if positive(f.TotalStaffingCosts) {
		add("Total Staffing Costs: %s (KEY METRIC)", FormatGBP(*f.TotalStaffingCosts))
		if v, ok := f.StaffingPerPupil(); ok {
			add("  -> %s per pupil on staffing", FormatGBP(v))
		}
	}
	if positive(f.TeachingStaffCosts) {
		add("Teaching Staff Costs (E01): %s", FormatGBP(*f.TeachingStaffCosts))
	}
	if positive(f.SupplyTeachingCosts) {
		add("Supply Teaching Costs (E02): %s", FormatGBP(*f.SupplyTeachingCosts))
	}
	if positive(f.AgencySupplyCosts) {
		add("Agency Supply Costs (E26): %s", FormatGBP(*f.AgencySupplyCosts))
		if v, ok := f.AgencyPerPupil(); ok {
			add("  -> %s per pupil on agency staff", FormatGBP(v))
		}
	}
	if positive(f.EducationalSupport) {
		add("Educational Support Costs (E03): %s", FormatGBP(*f.EducationalSupport))
	}
	if positive(f.ConsultancyCosts) {
		add("Educational Consultancy (E27): %s", FormatGBP(*f.ConsultancyCosts))
	}

	if len(lines) == 0 {
		return "No financial data available"
	}
	return strings.Join(lines, "\n")
}

// LLMContext renders the school as the text block sent to the generators.
func (s *School) LLMContext() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("SCHOOL: %s", s.Name)
	line("URN: %s", s.URN)
	line("Type: %s (%s)", orDefault(s.Type, "Unknown"), orDefault(s.Phase, "Unknown phase"))
	line("Local Authority: %s", orDefault(s.LAName, "Unknown"))
	if s.PupilCount != nil && *s.PupilCount > 0 {
		line("Pupil Count: %d", *s.PupilCount)
	} else {
		line("Pupil Count: Unknown")
	}

	if s.Headteacher != nil {
		line("\nHEADTEACHER: %s", s.Headteacher.FullName)
		if s.Phone != "" {
			line("School Phone: %s", s.Phone)
		}
		if s.Website != "" {
			line("Website: %s", s.Website)
		}
	}
	if addr := s.FullAddress(); addr != "" {
		line("Address: %s", addr)
	}

	if s.Financial != nil {
		line("\nFINANCIAL DATA (from Government Benchmarking Tool):")
		line("%s", s.Financial.FinancialSummary())
		switch s.Financial.Priority() {
		case PriorityHigh:
			line("\nSALES PRIORITY: HIGH - Large staffing budget")
		case PriorityMedium:
			line("\nSALES PRIORITY: MEDIUM - Mid-size staffing budget")
		}
	}

	if s.Inspection != nil {
		line("\nOFSTED RATING: %s", orDefault(s.Inspection.Rating, "Unknown"))
		if s.Inspection.Date != "" {
			line("Inspection Date: %s", s.Inspection.Date)
		}
		if len(s.Inspection.Improvements) > 0 {
			line("Areas for improvement:")
			for _, area := range s.Inspection.Improvements {
				line("  - %s", area)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
