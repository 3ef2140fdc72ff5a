package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sells-group/school-intel/internal/intel"
	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
)

// tierColor returns the colour used for a priority tier.
func tierColor(p model.Priority) *color.Color {
	switch p {
	case model.PriorityHigh:
		return color.New(color.FgRed, color.Bold)
	case model.PriorityMedium:
		return color.New(color.FgYellow)
	case model.PriorityLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}

// formatSchoolList writes a table of schools to out. The coloured priority
// column comes last so escape codes do not skew the alignment.
func formatSchoolList(out io.Writer, schools []*model.School) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "URN\tSCHOOL\tAUTHORITY\tSTAFFING\tAGENCY\tPRIORITY")
	_, _ = fmt.Fprintln(w, "---\t------\t---------\t--------\t------\t--------")

	for _, s := range schools {
		p := s.Priority()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.URN,
			truncateName(s.Name, 40),
			s.LAName,
			s.Financial.TotalStaffingFormatted(),
			s.Financial.AgencySpendFormatted(),
			tierColor(p).Sprint(p),
		)
	}
	_ = w.Flush()
}

// formatStats writes index statistics to out.
func formatStats(out io.Writer, st loader.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Schools:\t%d\n", st.TotalSchools)
	_, _ = fmt.Fprintf(w, "With head teacher:\t%d\n", st.WithContacts)
	_, _ = fmt.Fprintf(w, "With phone:\t%d\n", st.WithPhone)
	_, _ = fmt.Fprintf(w, "With financial data:\t%d\n", st.WithFinancialData)
	_, _ = fmt.Fprintf(w, "With agency spend:\t%d\n", st.WithAgencySpend)
	_, _ = fmt.Fprintf(w, "Total staffing spend:\t%s\n", model.FormatGBP(st.TotalStaffingSpend))
	_, _ = fmt.Fprintf(w, "Total agency spend:\t%s\n", model.FormatGBP(st.TotalAgencySpend))
	_, _ = fmt.Fprintf(w, "  %s:\t%d\n", tierColor(model.PriorityHigh).Sprint(model.PriorityHigh), st.HighPriority)
	_, _ = fmt.Fprintf(w, "  %s:\t%d\n", tierColor(model.PriorityMedium).Sprint(model.PriorityMedium), st.MediumPriority)
	_, _ = fmt.Fprintf(w, "  %s:\t%d\n", tierColor(model.PriorityLow).Sprint(model.PriorityLow), st.LowPriority)
	_, _ = fmt.Fprintf(w, "  %s:\t%d\n", tierColor(model.PriorityUnknown).Sprint(model.PriorityUnknown), st.UnknownPriority)
	_, _ = fmt.Fprintf(w, "Local authorities:\t%d\n", st.Authorities)
	_, _ = fmt.Fprintf(w, "Data source:\t%s\n", st.DataSource)
	if !st.LoadedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Loaded at:\t%s\n", st.LoadedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

// formatTalkingPoints writes the generated points for one school to out.
func formatTalkingPoints(out io.Writer, res *intel.Result) {
	s := res.School
	p := s.Priority()
	_, _ = fmt.Fprintf(out, "%s (URN %s) %s\n", s.Name, s.URN, tierColor(p).Sprint(p))

	origin := "generated"
	if res.FromCache {
		origin = "cached"
	}
	_, _ = fmt.Fprintf(out, "%d talking points (%s, run %s)\n", len(s.TalkingPoints), origin, truncateID(res.RunID))

	if in := s.Inspection; in != nil {
		_, _ = fmt.Fprintf(out, "Inspection: %s", orDash(in.Rating))
		if in.Date != "" {
			_, _ = fmt.Fprintf(out, " (%s)", in.Date)
		}
		_, _ = fmt.Fprintln(out)
	}

	for i, tp := range s.TalkingPoints {
		marker := color.New(color.FgCyan).Sprint("[finance]")
		if tp.FromInspection() {
			marker = color.New(color.FgMagenta).Sprint("[ofsted]")
		}
		_, _ = fmt.Fprintf(out, "\n%d. %s %s (%.2f)\n   %s\n", i+1, tp.Topic, marker, tp.Relevance, tp.Detail)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

// truncateID returns the first 8 characters of a run id for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
