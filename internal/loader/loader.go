// Package loader merges the directory and financial feeds into an in-memory
// school index and answers read queries against it.
package loader

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/school-intel/internal/fetcher"
	"github.com/sells-group/school-intel/internal/model"
)

// SpendMetric selects the figure TopSpenders ranks by.
type SpendMetric string

const (
	MetricTotal  SpendMetric = "total"
	MetricAgency SpendMetric = "agency"
)

// ParseSpendMetric maps "agency" to MetricAgency and anything else to MetricTotal.
func ParseSpendMetric(s string) SpendMetric {
	if strings.EqualFold(strings.TrimSpace(s), string(MetricAgency)) {
		return MetricAgency
	}
	return MetricTotal
}

// index is an immutable snapshot of loaded schools. It is replaced
// wholesale on refresh and never modified once published.
type index struct {
	schools     []*model.School
	byName      map[string]*model.School
	byURN       map[string]*model.School
	authorities []string
	provenance  string
	loadedAt    time.Time
}

func newIndex(schools []*model.School, provenance string, loadedAt time.Time) *index {
	idx := &index{
		schools:    schools,
		byName:     make(map[string]*model.School, len(schools)),
		byURN:      make(map[string]*model.School, len(schools)),
		provenance: provenance,
		loadedAt:   loadedAt,
	}
	seen := make(map[string]bool)
	for _, s := range schools {
		idx.byName[s.Name] = s
		idx.byURN[s.URN] = s
		if s.LAName != "" && !seen[s.LAName] {
			seen[s.LAName] = true
			idx.authorities = append(idx.authorities, s.LAName)
		}
	}
	sort.Strings(idx.authorities)
	return idx
}

var emptyIndex = newIndex(nil, "", time.Time{})

// Loader owns the school index. Schools it returns are shared and must be
// treated as read-only; use School.Clone before modifying one.
type Loader struct {
	source Source
	cols   Columns
	now    func() time.Time

	reload sync.Mutex
	idx    atomic.Pointer[index]
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock overrides the time source used for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// New creates a Loader reading from source. Nothing is read until Load.
func New(source Source, cols Columns, opts ...Option) *Loader {
	if cols == nil {
		cols = DefaultColumns()
	}
	l := &Loader{source: source, cols: cols, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load builds the index on first use. Later calls are no-ops.
func (l *Loader) Load(ctx context.Context) error {
	if l.idx.Load() != nil {
		return nil
	}
	l.reload.Lock()
	defer l.reload.Unlock()
	if l.idx.Load() != nil {
		return nil
	}
	_, err := l.rebuild(ctx)
	return err
}

// Refresh rebuilds the index from the source and swaps it in atomically.
// Readers see either the old index or the new one, never a partial build.
func (l *Loader) Refresh(ctx context.Context) (int, error) {
	l.reload.Lock()
	defer l.reload.Unlock()
	return l.rebuild(ctx)
}

func (l *Loader) rebuild(ctx context.Context) (int, error) {
	log := zap.L().With(zap.String("component", "loader"))

	var contactRows, financialRows []fetcher.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contactRows = l.readFeed(gctx, "contact", l.source.ContactRows)
		return gctx.Err()
	})
	g.Go(func() error {
		financialRows = l.readFeed(gctx, "financial", l.source.FinancialRows)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return 0, eris.Wrap(err, "loader: refresh")
	}

	now := l.now()
	schools := Merge(contactRows, financialRows, l.cols, l.source.Provenance(), now)
	l.idx.Store(newIndex(schools, l.source.Provenance(), now))

	log.Info("loaded schools",
		zap.Int("contact_rows", len(contactRows)),
		zap.Int("financial_rows", len(financialRows)),
		zap.Int("count", len(schools)),
	)
	return len(schools), nil
}

// readFeed returns the rows of one feed, or nil when the feed cannot be
// read. A missing feed never aborts a load.
func (l *Loader) readFeed(ctx context.Context, feed string, read func(context.Context) ([]fetcher.Row, error)) []fetcher.Row {
	rows, err := read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Warn("feed unavailable, continuing without it",
				zap.String("feed", feed),
				zap.Bool("missing", eris.Is(err, ErrSourceUnavailable)),
				zap.Error(err),
			)
		}
		return nil
	}
	return rows
}

func (l *Loader) current() *index {
	if idx := l.idx.Load(); idx != nil {
		return idx
	}
	return emptyIndex
}

// Schools returns every loaded school ordered by URN.
func (l *Loader) Schools() []*model.School {
	return append([]*model.School(nil), l.current().schools...)
}

// Count returns the number of loaded schools.
func (l *Loader) Count() int {
	return len(l.current().schools)
}

// Names returns all school names, sorted.
func (l *Loader) Names() []string {
	idx := l.current()
	names := make([]string, 0, len(idx.schools))
	for _, s := range idx.schools {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// ByName looks a school up by exact name. When names collide the
// last-loaded school wins.
func (l *Loader) ByName(name string) (*model.School, bool) {
	s, ok := l.current().byName[name]
	return s, ok
}

// ByURN looks a school up by identifier, normalizing it first so "123.0"
// finds "123".
func (l *Loader) ByURN(raw string) (*model.School, bool) {
	urn, ok := NormalizeURN(raw)
	if !ok {
		return nil, false
	}
	s, ok := l.current().byURN[urn]
	return s, ok
}

// Search returns schools whose name contains q, ignoring case.
func (l *Loader) Search(q string) []*model.School {
	return l.Filter(Filter{Name: q})
}

// ByPriority returns schools in the given tier.
func (l *Loader) ByPriority(p model.Priority) []*model.School {
	return l.filter(func(s *model.School) bool { return s.Priority() == p })
}

// ByAuthority returns schools in a local authority, ignoring case.
func (l *Loader) ByAuthority(la string) []*model.School {
	if la == "" {
		return nil
	}
	return l.Filter(Filter{Authority: la})
}

// WithStaffingSpend returns schools whose total staffing cost exceeds minSpend.
func (l *Loader) WithStaffingSpend(minSpend float64) []*model.School {
	return l.Filter(Filter{MinStaffing: &minSpend})
}

// WithAgencySpend returns schools whose agency supply cost exceeds minSpend.
func (l *Loader) WithAgencySpend(minSpend float64) []*model.School {
	return l.Filter(Filter{MinAgency: &minSpend})
}

// TopSpenders returns up to limit schools with a non-zero figure for the
// metric, highest first.
func (l *Loader) TopSpenders(limit int, metric SpendMetric) []*model.School {
	value := func(s *model.School) float64 {
		if s.Financial == nil {
			return 0
		}
		v := s.Financial.TotalStaffingCosts
		if metric == MetricAgency {
			v = s.Financial.AgencySupplyCosts
		}
		if v == nil {
			return 0
		}
		return *v
	}

	out := l.filter(func(s *model.School) bool { return value(s) != 0 })
	sort.SliceStable(out, func(i, j int) bool { return value(out[i]) > value(out[j]) })
	return truncate(out, limit)
}

// HighPriority returns up to limit schools ordered HIGH, MEDIUM, LOW,
// UNKNOWN, keeping URN order within a tier. A limit <= 0 returns all.
func (l *Loader) HighPriority(limit int) []*model.School {
	out := l.filter(func(*model.School) bool { return true })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority().Rank() > out[j].Priority().Rank()
	})
	return truncate(out, limit)
}

// Authorities returns the sorted, distinct local-authority names.
func (l *Loader) Authorities() []string {
	return append([]string(nil), l.current().authorities...)
}

// Provenance returns the source tag of the current index.
func (l *Loader) Provenance() string {
	return l.current().provenance
}

func (l *Loader) filter(keep func(*model.School) bool) []*model.School {
	var out []*model.School
	for _, s := range l.current().schools {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func truncate(schools []*model.School, limit int) []*model.School {
	if limit > 0 && len(schools) > limit {
		return schools[:limit]
	}
	return schools
}
