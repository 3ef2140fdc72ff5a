package loader

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/school-intel/internal/fetcher"
)

// Field names a logical school attribute that feeds may spell differently.
type Field string

// Logical fields resolved from feed rows.
const (
	FieldURN        Field = "urn"
	FieldName       Field = "school_name"
	FieldLAName     Field = "la_name"
	FieldType       Field = "school_type"
	FieldPhase      Field = "phase"
	FieldPupilCount Field = "pupil_count"
	FieldPhone      Field = "phone"
	FieldWebsite    Field = "website"
	FieldHeadTitle  Field = "head_title"
	FieldHeadFirst  Field = "head_first_name"
	FieldHeadLast   Field = "head_last_name"
	FieldHeadFull   Field = "headteacher"
	FieldAddress1   Field = "address_1"
	FieldAddress2   Field = "address_2"
	FieldAddress3   Field = "address_3"
	FieldTown       Field = "town"
	FieldCounty     Field = "county"
	FieldPostcode   Field = "postcode"
	FieldTrustCode  Field = "trust_code"
	FieldTrustName  Field = "trust_name"
	FieldStatus     Field = "status"

	FieldTotalPupils      Field = "total_pupils"
	FieldTotalExpenditure Field = "total_expenditure"
	FieldTotalStaffing    Field = "total_teaching_support_costs"
	FieldTeachingStaff    Field = "teaching_staff_costs"
	FieldSupplyTeaching   Field = "supply_teaching_costs"
	FieldAgencySupply     Field = "agency_supply_costs"
	FieldEducationSupport Field = "educational_support_costs"
	FieldConsultancy      Field = "educational_consultancy_costs"
)

// statusSuccess marks a financial row that was fetched without error.
const statusSuccess = "success"

// Columns maps each logical field to its candidate column names, tried in order.
type Columns map[Field][]string

// DefaultColumns returns the synonym table for the directory and
// benchmarking feed layouts.
func DefaultColumns() Columns {
	return Columns{
		FieldURN:        {"urn", "URN"},
		FieldName:       {"school_name", "SchoolName", "school_name_gias"},
		FieldLAName:     {"la_name", "LAName", "la_name_gias"},
		FieldType:       {"school_type", "SchoolType"},
		FieldPhase:      {"phase", "Phase"},
		FieldPupilCount: {"pupil_count", "TotalPupils"},
		FieldPhone:      {"phone"},
		FieldWebsite:    {"website"},
		FieldHeadTitle:  {"head_title"},
		FieldHeadFirst:  {"head_first_name"},
		FieldHeadLast:   {"head_last_name"},
		FieldHeadFull:   {"headteacher"},
		FieldAddress1:   {"address_1"},
		FieldAddress2:   {"address_2"},
		FieldAddress3:   {"address_3"},
		FieldTown:       {"town"},
		FieldCounty:     {"county"},
		FieldPostcode:   {"postcode"},
		FieldTrustCode:  {"trust_code"},
		FieldTrustName:  {"trust_name"},
		FieldStatus:     {"status"},

		FieldTotalPupils:      {"TotalPupils", "pupil_count"},
		FieldTotalExpenditure: {"TotalExpenditure", "total_expenditure"},
		FieldTotalStaffing:    {"TotalTeachingSupportStaffCosts", "total_teaching_support_costs"},
		FieldTeachingStaff:    {"TeachingStaffCosts", "teaching_staff_costs"},
		FieldSupplyTeaching:   {"SupplyTeachingStaffCosts", "supply_teaching_costs"},
		FieldAgencySupply:     {"AgencySupplyTeachingStaffCosts", "agency_supply_costs"},
		FieldEducationSupport: {"EducationSupportStaffCosts", "educational_support_costs"},
		FieldConsultancy:      {"EducationalConsultancyCosts", "educational_consultancy_costs"},
	}
}

// LoadColumns returns the default synonym table with any fields listed in
// the YAML file at path replaced. An empty path returns the defaults.
//
//	school_name: [establishment_name, SchoolName]
//	la_name: [local_authority]
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()
	if path == "" {
		return cols, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read columns file %s", path)
	}

	var override map[string][]string
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "loader: parse columns file %s", path)
	}

	for name, candidates := range override {
		f := Field(strings.TrimSpace(name))
		if _, ok := cols[f]; !ok {
			return nil, eris.Errorf("loader: columns file: unknown field %q", name)
		}
		if len(candidates) == 0 {
			return nil, eris.Errorf("loader: columns file: field %q has no candidates", name)
		}
		cols[f] = candidates
	}
	return cols, nil
}

// Get returns the first candidate column for f holding a usable value,
// trimmed, or "" when none does.
func (c Columns) Get(row fetcher.Row, f Field) string {
	for _, col := range c[f] {
		if v, ok := row[col]; ok && !missing(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
