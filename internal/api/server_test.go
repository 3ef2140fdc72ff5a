package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/export"
	"github.com/sells-group/school-intel/internal/intel"
	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const contactCSV = "urn,school_name,la_name,phase,pupil_count,headteacher\n" +
	"100,Oak Primary,Camden,Primary,420,Jane Smith\n" +
	"200,Elm Secondary,Hackney,Secondary,900,\n" +
	"300,Ash Academy,Camden,Primary,310,\n"

const financialCSV = "URN,status,TotalPupils,TotalTeachingSupportStaffCosts,AgencySupplyTeachingStaffCosts\n" +
	"100,success,420,550000,42000\n" +
	"200,success,900,250000,0\n" +
	"300,success,310,150000,9000\n"

type fakeIntel struct {
	calls      []string
	result     *intel.Result
	err        error
	cleared    string
	refreshErr error
}

func (f *fakeIntel) TalkingPointsForURN(_ context.Context, urn string, force bool, count int, withInspection bool) (*intel.Result, error) {
	f.calls = append(f.calls, urn)
	if f.err != nil {
		return nil, f.err
	}
	f.result.FromCache = !force
	if withInspection {
		f.result.School.Inspection = &model.InspectionRecord{Rating: "Good"}
	}
	f.result.School.TalkingPoints = f.result.School.TalkingPoints[:min(count, len(f.result.School.TalkingPoints))]
	return f.result, nil
}

func (f *fakeIntel) ClearCache(_ context.Context, name string) int {
	f.cleared = name
	if name == "" {
		return 3
	}
	return 1
}

func (f *fakeIntel) Refresh(context.Context) (int, error) {
	if f.refreshErr != nil {
		return 0, f.refreshErr
	}
	return 3, nil
}

func newTestLoader(t *testing.T) *loader.Loader {
	t.Helper()
	dir := t.TempDir()
	contacts := filepath.Join(dir, "contacts.csv")
	financial := filepath.Join(dir, "financial.csv")
	require.NoError(t, os.WriteFile(contacts, []byte(contactCSV), 0o644))
	require.NoError(t, os.WriteFile(financial, []byte(financialCSV), 0o644))

	l := loader.New(&loader.FileSource{ContactPath: contacts, FinancialPath: financial}, nil)
	require.NoError(t, l.Load(context.Background()))
	return l
}

func newTestServer(t *testing.T, svc *fakeIntel, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(newTestLoader(t), svc, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type schoolList struct {
	Count   int            `json:"count"`
	Schools []model.School `json:"schools"`
}

func urns(schools []model.School) []string {
	out := make([]string, len(schools))
	for i, s := range schools {
		out[i] = s.URN
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListSchools_Filters(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"100", "200", "300"}},
		{"search", "?q=oak", []string{"100"}},
		{"priority", "?priority=medium", []string{"200"}},
		{"authority", "?authority=camden", []string{"100", "300"}},
		{"min staffing", "?min_staffing=200000", []string{"100", "200"}},
		{"min agency", "?min_agency=1", []string{"100", "300"}},
		{"combined", "?authority=Camden&min_agency=10000", []string{"100"}},
		{"limit", "?limit=2", []string{"100", "200"}},
		{"no match", "?q=zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got schoolList
			assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/schools"+tt.query, &got))
			assert.Equal(t, tt.want, urns(got.Schools))
			assert.Equal(t, len(tt.want), got.Count)
		})
	}
}

func TestListSchools_BadParams(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})
	for _, q := range []string{"?priority=urgent", "?min_staffing=lots", "?min_agency=x", "?limit=-3"} {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/schools"+q, &body), q)
		assert.NotEmpty(t, body["error"])
	}
}

func TestNamesAndLookups(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})

	var names []string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/schools/names", &names))
	assert.Equal(t, []string{"Ash Academy", "Elm Secondary", "Oak Primary"}, names)

	var school model.School
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/schools/100.0", &school))
	assert.Equal(t, "Oak Primary", school.Name)
	require.NotNil(t, school.Headteacher)
	assert.Equal(t, "Jane Smith", school.Headteacher.FullName)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/schools/by-name?name=Elm+Secondary", &school))
	assert.Equal(t, "200", school.URN)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/schools/999", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/schools/by-name?name=Nowhere", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/schools/by-name", nil))
}

func TestStatsTopPriorityAuthorities(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})

	var stats loader.Stats
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stats", &stats))
	assert.Equal(t, 3, stats.TotalSchools)
	assert.Equal(t, 1, stats.HighPriority)

	var top struct {
		Metric  string         `json:"metric"`
		Schools []model.School `json:"schools"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/top?metric=agency&limit=5", &top))
	assert.Equal(t, "agency", top.Metric)
	assert.Equal(t, []string{"100", "300"}, urns(top.Schools))

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/top?limit=1", &top))
	assert.Equal(t, "total", top.Metric)
	assert.Equal(t, []string{"100"}, urns(top.Schools))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/top?limit=-1", nil))

	var priority []model.School
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/priority?limit=2", &priority))
	assert.Equal(t, []string{"100", "200"}, urns(priority))

	var las []string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/authorities", &las))
	assert.Equal(t, []string{"Camden", "Hackney"}, las)
}

func TestTalkingPoints(t *testing.T) {
	svc := &fakeIntel{result: &intel.Result{
		RunID: "run-1",
		School: &model.School{URN: "100", Name: "Oak Primary", TalkingPoints: []model.TalkingPoint{
			{Topic: "A"}, {Topic: "B"}, {Topic: "C"},
		}},
	}}
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/schools/100/talking-points?count=2&inspection=true&force=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		RunID     string       `json:"run_id"`
		FromCache bool         `json:"from_cache"`
		School    model.School `json:"school"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.False(t, got.FromCache)
	assert.Len(t, got.School.TalkingPoints, 2)
	require.NotNil(t, got.School.Inspection)
	assert.Equal(t, []string{"100"}, svc.calls)
}

func TestTalkingPoints_Errors(t *testing.T) {
	svc := &fakeIntel{err: eris.Wrap(intel.ErrSchoolNotFound, "intel: urn")}
	srv := newTestServer(t, svc)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/schools/999/talking-points")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.err = context.Canceled
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/schools/100/talking-points")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/schools/100/talking-points?count=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearCacheAndRefresh(t *testing.T) {
	svc := &fakeIntel{}
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodDelete, srv.URL+"/api/cache?school=Oak+Primary")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cleared":1}`, string(body))
	assert.Equal(t, "Oak Primary", svc.cleared)

	_, body = do(t, http.MethodDelete, srv.URL+"/api/cache")
	assert.JSONEq(t, `{"cleared":3}`, string(body))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/refresh")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"schools":3}`, string(body))

	svc.refreshErr = errors.New("source gone")
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/refresh")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestExport(t *testing.T) {
	points := func(_ context.Context, urn string) []model.TalkingPoint {
		if urn == "100" {
			return []model.TalkingPoint{{Topic: "Staffing", Detail: "d", Relevance: 0.8}}
		}
		return nil
	}
	srv := newTestServer(t, &fakeIntel{}, WithExport(points))

	resp, body := do(t, http.MethodGet, srv.URL+"/api/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "schools.xlsx")

	f, err := xlsx.OpenBinary(body)
	require.NoError(t, err)
	assert.Len(t, f.Sheet[export.SchoolsSheet].Rows, 4)
	assert.Len(t, f.Sheet[export.PointsSheet].Rows, 2)
}

func TestExport_DisabledByDefault(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{})
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/export")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeIntel{}, WithAllowedOrigins([]string{"https://crm.example.org"}))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://crm.example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://crm.example.org", resp.Header.Get("Access-Control-Allow-Origin"))
}
