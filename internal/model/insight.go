package model

import "strings"

// DefaultRelevance is assigned to talking points generated without a score.
const DefaultRelevance = 0.8

// TalkingPoint is a single sales conversation starter.
type TalkingPoint struct {
	Topic     string  `json:"topic"`
	Detail    string  `json:"detail"`
	Source    string  `json:"source,omitempty"`
	Relevance float64 `json:"relevance_score"`
}

// FromInspection reports whether the point came from an inspection report.
// Inspection points carry the report URL as their source.
func (tp TalkingPoint) FromInspection() bool {
	return strings.HasPrefix(tp.Source, "http")
}

// ClampRelevance bounds a relevance score to [0,1].
func ClampRelevance(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// InspectionRecord summarises the latest inspection of a school.
type InspectionRecord struct {
	Rating       string   `json:"rating,omitempty"`
	Date         string   `json:"inspection_date,omitempty"`
	ReportURL    string   `json:"report_url,omitempty"`
	Improvements []string `json:"areas_for_improvement,omitempty"`
	Strengths    []string `json:"key_strengths,omitempty"`
}

// MaxInspectionImprovements bounds improvement areas taken from a generated analysis.
const MaxInspectionImprovements = 5

// FinancialInsight is the result of the financial talking-point generator.
type FinancialInsight struct {
	TalkingPoints []TalkingPoint `json:"conversation_starters"`
	Summary       string         `json:"summary,omitempty"`
	Priority      Priority       `json:"sales_priority"`
}

// Improvement is one area for improvement found in an inspection report.
type Improvement struct {
	Area        string `json:"area,omitempty"`
	Description string `json:"description"`
}

// InspectionInsight is the result of the inspection analyzer. A non-empty
// Error means the analysis failed and the other fields must be ignored.
type InspectionInsight struct {
	Rating         string         `json:"rating,omitempty"`
	InspectionDate string         `json:"inspection_date,omitempty"`
	ReportURL      string         `json:"report_url,omitempty"`
	Improvements   []Improvement  `json:"improvements,omitempty"`
	Strengths      []string       `json:"strengths,omitempty"`
	TalkingPoints  []TalkingPoint `json:"conversation_starters,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Record converts a successful analysis into an InspectionRecord, keeping at
// most MaxInspectionImprovements improvement areas.
func (in InspectionInsight) Record() *InspectionRecord {
	rec := &InspectionRecord{
		Rating:    in.Rating,
		Date:      in.InspectionDate,
		ReportURL: in.ReportURL,
		Strengths: append([]string(nil), in.Strengths...),
	}
	for i, imp := range in.Improvements {
		if i == MaxInspectionImprovements {
			break
		}
		rec.Improvements = append(rec.Improvements, imp.Description)
	}
	return rec
}
