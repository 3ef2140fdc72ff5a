// Package intel orchestrates talking-point generation: cache lookup, the
// inspection and financial generators, balancing and deduplication.
package intel

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/school-intel/internal/cache"
	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/model"
)

// ErrSchoolNotFound is returned when a name or URN matches no loaded school.
var ErrSchoolNotFound = eris.New("intel: school not found")

// Defaults applied when no option overrides them.
const (
	DefaultTalkingPoints   = 5
	DefaultTimeout         = 30 * time.Second
	DefaultWarmConcurrency = 3
)

// Directory is the read side of the school index.
type Directory interface {
	ByName(name string) (*model.School, bool)
	ByURN(urn string) (*model.School, bool)
	HighPriority(limit int) []*model.School
	Refresh(ctx context.Context) (int, error)
}

// FinancialGenerator writes talking points from a school's figures.
type FinancialGenerator interface {
	Generate(ctx context.Context, school *model.School, count int) (*model.FinancialInsight, error)
}

// InspectionAnalyzer writes talking points from the latest inspection
// report. Failure is signalled through InspectionInsight.Error.
type InspectionAnalyzer interface {
	Analyze(ctx context.Context, name, urn string) model.InspectionInsight
}

// Service produces talking points for schools. A nil generator marks that
// capability unavailable.
type Service struct {
	dir        Directory
	cache      cache.Cache
	financial  FinancialGenerator
	inspection InspectionAnalyzer
	features   config.FeaturesConfig

	defaultCount    int
	timeout         time.Duration
	warmConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithFinancial sets the financial generator.
func WithFinancial(g FinancialGenerator) Option {
	return func(s *Service) { s.financial = g }
}

// WithInspection sets the inspection analyzer.
func WithInspection(a InspectionAnalyzer) Option {
	return func(s *Service) { s.inspection = a }
}

// WithFeatures sets the feature flags.
func WithFeatures(f config.FeaturesConfig) Option {
	return func(s *Service) { s.features = f }
}

// WithDefaultCount sets how many points are produced when a caller asks for zero.
func WithDefaultCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultCount = n
		}
	}
}

// WithTimeout bounds each generator call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithWarmConcurrency bounds parallel generation in Warm.
func WithWarmConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.warmConcurrency = n
		}
	}
}

// New creates a Service. A nil cache behaves as a disabled cache.
func New(dir Directory, c cache.Cache, opts ...Option) *Service {
	if c == nil {
		c = cache.Disabled{}
	}
	s := &Service{
		dir:   dir,
		cache: c,
		features: config.FeaturesConfig{
			ConversationStarters: true,
			InspectionAnalysis:   true,
		},
		defaultCount:    DefaultTalkingPoints,
		timeout:         DefaultTimeout,
		warmConcurrency: DefaultWarmConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FinancialAvailable reports whether financial generation can run.
func (s *Service) FinancialAvailable() bool {
	return s.financial != nil && s.features.ConversationStarters
}

// InspectionAvailable reports whether inspection analysis can run.
func (s *Service) InspectionAvailable() bool {
	return s.inspection != nil && s.features.InspectionAnalysis
}

// ClearCache removes cached points for the named school, or for every
// school when name is empty. An unknown name removes nothing.
func (s *Service) ClearCache(ctx context.Context, name string) int {
	if name == "" {
		return s.cache.Clear(ctx, "")
	}
	school, ok := s.dir.ByName(name)
	if !ok {
		return 0
	}
	return s.cache.Clear(ctx, school.URN)
}

// Refresh reloads the school index from its source.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	n, err := s.dir.Refresh(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "intel: refresh")
	}
	return n, nil
}
