package loader

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/fetcher"
	"github.com/sells-group/school-intel/internal/model"
)

// RowError reports a merged row that could not be turned into a School.
type RowError struct {
	URN string
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("loader: row %s: %v", e.URN, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// indexRows keys rows by normalized URN. Rows without an identifier are
// dropped; a later row replaces an earlier one with the same URN. When
// requireSuccess is set, rows whose status column is present and not
// "success" are dropped as well.
func indexRows(rows []fetcher.Row, cols Columns, requireSuccess bool) (map[string]fetcher.Row, int) {
	out := make(map[string]fetcher.Row, len(rows))
	skipped := 0
	for _, row := range rows {
		if requireSuccess {
			if status := cols.Get(row, FieldStatus); status != "" && status != statusSuccess {
				skipped++
				continue
			}
		}
		urn, ok := NormalizeURN(cols.Get(row, FieldURN))
		if !ok {
			skipped++
			continue
		}
		out[urn] = row
	}
	return out, skipped
}

// Merge combines the contact and financial feeds into one School per URN,
// ordered by URN. Contact fields override financial fields of the same name;
// the financial figures are always taken from the financial row itself.
// Rows that fail conversion are logged and skipped.
func Merge(contactRows, financialRows []fetcher.Row, cols Columns, provenance string, now time.Time) []*model.School {
	log := zap.L().With(zap.String("component", "loader"))

	contacts, skippedContacts := indexRows(contactRows, cols, false)
	financials, skippedFinancials := indexRows(financialRows, cols, true)
	if skippedContacts+skippedFinancials > 0 {
		log.Debug("skipped feed rows",
			zap.Int("contact", skippedContacts),
			zap.Int("financial", skippedFinancials),
		)
	}

	urns := make([]string, 0, len(contacts)+len(financials))
	for urn := range contacts {
		urns = append(urns, urn)
	}
	for urn := range financials {
		if _, ok := contacts[urn]; !ok {
			urns = append(urns, urn)
		}
	}
	sort.Strings(urns)

	schools := make([]*model.School, 0, len(urns))
	for _, urn := range urns {
		contact := contacts[urn]
		fin := financials[urn]

		merged := make(fetcher.Row, len(contact)+len(fin))
		for k, v := range fin {
			merged[k] = v
		}
		for k, v := range contact {
			merged[k] = v
		}

		school, err := buildSchool(urn, merged, fin, cols, provenance, now)
		if err != nil {
			log.Warn("skipping row", zap.String("urn", urn), zap.Error(err))
			continue
		}
		schools = append(schools, school)
	}
	return schools
}

func buildSchool(urn string, row, fin fetcher.Row, cols Columns, provenance string, now time.Time) (*model.School, error) {
	name := cols.Get(row, FieldName)
	if name == "" {
		name = "School " + urn
	}

	phone := model.NormalizePhone(cols.Get(row, FieldPhone))

	s := &model.School{
		URN:         urn,
		Name:        name,
		LAName:      cols.Get(row, FieldLAName),
		Type:        cols.Get(row, FieldType),
		Phase:       cols.Get(row, FieldPhase),
		PupilCount:  ParseInt(cols.Get(row, FieldPupilCount)),
		Address1:    cols.Get(row, FieldAddress1),
		Address2:    cols.Get(row, FieldAddress2),
		Address3:    cols.Get(row, FieldAddress3),
		Town:        cols.Get(row, FieldTown),
		County:      cols.Get(row, FieldCounty),
		Postcode:    cols.Get(row, FieldPostcode),
		TrustCode:   cols.Get(row, FieldTrustCode),
		TrustName:   cols.Get(row, FieldTrustName),
		Phone:       phone,
		Website:     cols.Get(row, FieldWebsite),
		Headteacher: buildHeadteacher(row, cols, phone),
		DataSource:  provenance,
		LastUpdated: now,
	}

	if fin == nil {
		fin = row
	}
	if figures := buildFinancial(fin, row, cols); !figures.IsEmpty() {
		s.Financial = figures
	}

	if err := s.Validate(); err != nil {
		return nil, &RowError{URN: urn, Err: err}
	}
	return s, nil
}

// buildHeadteacher returns a contact only when a full name is derivable:
// either the full-name column or both first and last names.
func buildHeadteacher(row fetcher.Row, cols Columns, phone string) *model.Contact {
	title := cols.Get(row, FieldHeadTitle)
	first := cols.Get(row, FieldHeadFirst)
	last := cols.Get(row, FieldHeadLast)
	full := cols.Get(row, FieldHeadFull)

	if full == "" && (first == "" || last == "") {
		return nil
	}
	if full == "" {
		full = strings.TrimSpace(title + " " + first + " " + last)
	}

	c := model.NewContact(full, model.RoleHeadteacher, phone, 1.0)
	c.Title = title
	c.FirstName = first
	c.LastName = last
	return &c
}

func buildFinancial(fin, merged fetcher.Row, cols Columns) *model.FinancialFigures {
	pupils := cols.Get(fin, FieldTotalPupils)
	if pupils == "" {
		pupils = cols.Get(merged, FieldPupilCount)
	}
	return &model.FinancialFigures{
		TotalExpenditure:    ParseFloat(cols.Get(fin, FieldTotalExpenditure)),
		TotalPupils:         ParseFloat(pupils),
		TotalStaffingCosts:  ParseFloat(cols.Get(fin, FieldTotalStaffing)),
		TeachingStaffCosts:  ParseFloat(cols.Get(fin, FieldTeachingStaff)),
		SupplyTeachingCosts: ParseFloat(cols.Get(fin, FieldSupplyTeaching)),
		AgencySupplyCosts:   ParseFloat(cols.Get(fin, FieldAgencySupply)),
		EducationalSupport:  ParseFloat(cols.Get(fin, FieldEducationSupport)),
		ConsultancyCosts:    ParseFloat(cols.Get(fin, FieldConsultancy)),
	}
}
