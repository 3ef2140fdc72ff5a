package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Provenance tags record which source(s) produced a school record.
const (
	ProvenanceCSV      = "csv_merged"
	ProvenancePostgres = "postgres_merged"
)

// School is a merged school record: directory details, finances, inspection
// data and generated talking points.
type School struct {
	URN        string `json:"urn"`
	Name       string `json:"school_name"`
	LAName     string `json:"la_name,omitempty"`
	Type       string `json:"school_type,omitempty"`
	Phase      string `json:"phase,omitempty"`
	PupilCount *int   `json:"pupil_count,omitempty"`

	Address1 string `json:"address_1,omitempty"`
	Address2 string `json:"address_2,omitempty"`
	Address3 string `json:"address_3,omitempty"`
	Town     string `json:"town,omitempty"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode,omitempty"`

	TrustCode string `json:"trust_code,omitempty"`
	TrustName string `json:"trust_name,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`

	Headteacher   *Contact          `json:"headteacher,omitempty"`
	Financial     *FinancialFigures `json:"financial,omitempty"`
	Inspection    *InspectionRecord `json:"ofsted,omitempty"`
	TalkingPoints []TalkingPoint    `json:"conversation_starters"`

	DataSource  string    `json:"data_source"`
	LastUpdated time.Time `json:"last_updated"`
}

// Validate checks the invariants a loaded record must satisfy.
func (s *School) Validate() error {
	if strings.TrimSpace(s.URN) == "" {
		return eris.New("school: urn is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return eris.Errorf("school %s: name is required", s.URN)
	}
	if s.PupilCount != nil && *s.PupilCount < 0 {
		return eris.Errorf("school %s: negative pupil count %d", s.URN, *s.PupilCount)
	}
	if s.Headteacher != nil {
		if err := s.Headteacher.Validate(); err != nil {
			return eris.Wrapf(err, "school %s", s.URN)
		}
	}
	return nil
}

// Priority returns the sales tier; schools without financial figures are UNKNOWN.
func (s *School) Priority() Priority {
	return s.Financial.Priority()
}

// HasContactDetails reports whether a head teacher is known.
func (s *School) HasContactDetails() bool {
	return s.Headteacher != nil
}

// FullAddress joins the non-empty address parts with ", ".
func (s *School) FullAddress() string {
	var parts []string
	for _, p := range []string{s.Address1, s.Address2, s.Address3, s.Town, s.County, s.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Clone returns a copy that can be decorated with talking points and
// inspection data without touching the shared record.
func (s *School) Clone() *School {
	c := *s
	if s.PupilCount != nil {
		n := *s.PupilCount
		c.PupilCount = &n
	}
	if s.Headteacher != nil {
		h := *s.Headteacher
		c.Headteacher = &h
	}
	if s.Financial != nil {
		f := *s.Financial
		c.Financial = &f
	}
	if s.Inspection != nil {
		in := *s.Inspection
		in.Improvements = append([]string(nil), s.Inspection.Improvements...)
		in.Strengths = append([]string(nil), s.Inspection.Strengths...)
		c.Inspection = &in
	}
	c.TalkingPoints = append([]TalkingPoint(nil), s.TalkingPoints...)
	return &c
}
