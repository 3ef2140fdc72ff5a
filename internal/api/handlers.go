package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/export"
	"github.com/sells-group/school-intel/internal/intel"
	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
)

const (
	defaultTopLimit      = 10
	defaultPriorityLimit = 10
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, eris.Errorf("%s must be a number", key)
	}
	return v, true, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// listSchools returns schools matching every supplied filter:
// q, priority, authority, min_staffing, min_agency and limit.
func (s *Server) listSchools(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := s.schools.Filter(f)
	if out == nil {
		out = []*model.School{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "schools": out})
}

func parseFilter(r *http.Request) (loader.Filter, error) {
	q := r.URL.Query()
	f := loader.Filter{
		Name:      strings.TrimSpace(q.Get("q")),
		Authority: strings.TrimSpace(q.Get("authority")),
	}

	if p := strings.TrimSpace(q.Get("priority")); p != "" {
		f.Priority = model.ParsePriority(p)
		if f.Priority == model.PriorityUnknown && !strings.EqualFold(p, string(model.PriorityUnknown)) {
			return f, eris.New("priority must be HIGH, MEDIUM, LOW or UNKNOWN")
		}
	}

	if v, ok, err := queryFloat(r, "min_staffing"); err != nil {
		return f, err
	} else if ok {
		f.MinStaffing = &v
	}
	if v, ok, err := queryFloat(r, "min_agency"); err != nil {
		return f, err
	} else if ok {
		f.MinAgency = &v
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	return f, nil
}

func (s *Server) listNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schools.Names())
}

func (s *Server) schoolByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	school, ok := s.schools.ByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "school not found")
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (s *Server) schoolByURN(w http.ResponseWriter, r *http.Request) {
	school, ok := s.schools.ByURN(chi.URLParam(r, "urn"))
	if !ok {
		writeError(w, http.StatusNotFound, "school not found")
		return
	}
	writeJSON(w, http.StatusOK, school)
}

// talkingPoints generates or fetches cached points. Query parameters:
// count, force and inspection.
func (s *Server) talkingPoints(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.intel.TalkingPointsForURN(r.Context(), chi.URLParam(r, "urn"),
		queryBool(r, "force"), count, queryBool(r, "inspection"))
	if err != nil {
		if eris.Is(err, intel.ErrSchoolNotFound) {
			writeError(w, http.StatusNotFound, "school not found")
			return
		}
		zap.L().Warn("api: talking points failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "talking point generation was interrupted")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schools.Stats())
}

func (s *Server) topSpenders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultTopLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metric := loader.ParseSpendMetric(r.URL.Query().Get("metric"))
	out := s.schools.TopSpenders(limit, metric)
	if out == nil {
		out = []*model.School{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": metric, "schools": out})
}

func (s *Server) highPriority(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPriorityLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := s.schools.HighPriority(limit)
	if out == nil {
		out = []*model.School{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) authorities(w http.ResponseWriter, r *http.Request) {
	out := s.schools.Authorities()
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

// clearCache removes cached points for ?school=<name>, or all without it.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	n := s.intel.ClearCache(r.Context(), r.URL.Query().Get("school"))
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.intel.Refresh(r.Context())
	if err != nil {
		zap.L().Error("api: refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"schools": n})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schools.xlsx"`)

	err := export.Write(w, s.schools.Schools(), func(urn string) []model.TalkingPoint {
		return s.points(ctx, urn)
	})
	if err != nil {
		zap.L().Error("api: export failed", zap.Error(err))
	}
}
