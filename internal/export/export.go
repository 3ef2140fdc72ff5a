// Package export writes schools and their talking points to an Excel workbook.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/school-intel/internal/model"
)

// Sheet names.
const (
	SchoolsSheet = "Schools"
	PointsSheet  = "Talking Points"
)

const moneyFormat = "#,##0"

var schoolHeader = []string{
	"URN", "School", "Local Authority", "Type", "Phase", "Pupils",
	"Headteacher", "Phone", "Website", "Address", "Priority",
	"Total Staffing", "Agency Supply", "Agency Per Pupil", "Data Source",
}

var pointHeader = []string{"URN", "School", "#", "Topic", "Detail", "Source", "Relevance"}

// PointLookup returns the talking points known for a school, if any.
type PointLookup func(urn string) []model.TalkingPoint

// Workbook builds the export workbook. points may be nil, leaving the
// Talking Points sheet with only its header.
func Workbook(schools []*model.School, points PointLookup) (*xlsx.File, error) {
	f := xlsx.NewFile()

	ss, err := f.AddSheet(SchoolsSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add schools sheet")
	}
	ps, err := f.AddSheet(PointsSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add talking points sheet")
	}

	addStrings(ss.AddRow(), schoolHeader...)
	addStrings(ps.AddRow(), pointHeader...)

	for _, s := range schools {
		addSchool(ss.AddRow(), s)

		if points == nil {
			continue
		}
		for i, p := range points(s.URN) {
			row := ps.AddRow()
			addStrings(row, s.URN, s.Name)
			row.AddCell().SetInt(i + 1)
			addStrings(row, p.Topic, p.Detail, p.Source)
			row.AddCell().SetFloatWithFormat(p.Relevance, "0.00")
		}
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, schools []*model.School, points PointLookup) error {
	f, err := Workbook(schools, points)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// WriteFile saves the workbook at path.
func WriteFile(path string, schools []*model.School, points PointLookup) error {
	f, err := Workbook(schools, points)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addSchool(row *xlsx.Row, s *model.School) {
	pupils := ""
	if s.PupilCount != nil {
		pupils = strconv.Itoa(*s.PupilCount)
	}
	head := ""
	if s.Headteacher != nil {
		head = s.Headteacher.FullName
	}

	addStrings(row, s.URN, s.Name, s.LAName, s.Type, s.Phase, pupils,
		head, s.Phone, s.Website, s.FullAddress(), string(s.Priority()))

	var staffing, agency *float64
	if s.Financial != nil {
		staffing = s.Financial.TotalStaffingCosts
		agency = s.Financial.AgencySupplyCosts
	}
	addMoney(row, staffing)
	addMoney(row, agency)

	perPupil := ""
	if _, ok := s.Financial.AgencyPerPupil(); ok {
		perPupil = s.Financial.AgencyPerPupilFormatted()
	}
	addStrings(row, perPupil, s.DataSource)
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addMoney(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v == nil {
		return
	}
	cell.SetFloatWithFormat(*v, moneyFormat)
}
