package model

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbp = message.NewPrinter(language.BritishEnglish)

// FormatGBP renders an amount as whole pounds with thousands separators, e.g. "£1,250,000".
func FormatGBP(v float64) string {
	return gbp.Sprintf("£%.0f", v)
}

// TotalStaffingFormatted renders total staffing spend, or "No data" when absent or zero.
func (f *FinancialFigures) TotalStaffingFormatted() string {
	if f == nil || f.TotalStaffingCosts == nil || *f.TotalStaffingCosts == 0 {
		return "No data"
	}
	return FormatGBP(*f.TotalStaffingCosts)
}

// AgencySpendFormatted renders agency spend, or "£0" when absent or zero.
func (f *FinancialFigures) AgencySpendFormatted() string {
	if f == nil || f.AgencySupplyCosts == nil || *f.AgencySupplyCosts == 0 {
		return "£0"
	}
	return FormatGBP(*f.AgencySupplyCosts)
}

// AgencyPerPupilFormatted renders agency spend per pupil, e.g. "£42 per pupil".
func (f *FinancialFigures) AgencyPerPupilFormatted() string {
	v, ok := f.AgencyPerPupil()
	if !ok || v == 0 {
		return "£0 per pupil"
	}
	return FormatGBP(v) + " per pupil"
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
