package intel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/model"
)

// inspectionShare is the fraction of requested points that should come
// from the inspection report.
const inspectionShare = 0.6

// minFinancial is the fewest financial points ever requested.
const minFinancial = 2

// Result is a school decorated with talking points for one request.
type Result struct {
	RunID     string        `json:"run_id"`
	School    *model.School `json:"school"`
	FromCache bool          `json:"from_cache"`
	Duration  time.Duration `json:"-"`
}

// TalkingPoints returns cached or freshly generated points from the
// financial generator only.
func (s *Service) TalkingPoints(ctx context.Context, name string, force bool, count int) (*Result, error) {
	return s.run(ctx, name, force, count, false)
}

// TalkingPointsWithInspection blends inspection-report points with
// financial points, interleaved two inspection to one financial.
func (s *Service) TalkingPointsWithInspection(ctx context.Context, name string, force bool, count int) (*Result, error) {
	return s.run(ctx, name, force, count, true)
}

func (s *Service) run(ctx context.Context, name string, force bool, count int, withInspection bool) (*Result, error) {
	shared, ok := s.dir.ByName(name)
	if !ok {
		return nil, eris.Wrapf(ErrSchoolNotFound, "intel: %q", name)
	}
	return s.generate(ctx, shared, force, count, withInspection)
}

// generate works on a clone so the shared index is never mutated.
func (s *Service) generate(ctx context.Context, shared *model.School, force bool, count int, withInspection bool) (*Result, error) {
	start := time.Now()
	if count <= 0 {
		count = s.defaultCount
	}

	school := shared.Clone()
	res := &Result{RunID: uuid.NewString(), School: school}
	log := zap.L().With(
		zap.String("run_id", res.RunID),
		zap.String("school", school.Name),
		zap.String("urn", school.URN),
	)

	if !withInspection && !s.features.ConversationStarters {
		log.Debug("intel: conversation starters disabled")
		return res, nil
	}

	if !force {
		if cached, hit := s.cache.Get(ctx, school.URN); hit {
			school.TalkingPoints = cached
			res.FromCache = true
			res.Duration = time.Since(start)
			log.Debug("intel: using cached talking points", zap.Int("count", len(school.TalkingPoints)))
			return res, nil
		}
	}

	var points []model.TalkingPoint
	if withInspection {
		points = s.blended(ctx, log, school, count)
	} else {
		fin, err := s.financialPoints(ctx, school, count)
		if err != nil && ctx.Err() == nil {
			// Nothing is cached so the next request retries.
			log.Warn("intel: financial generation failed", zap.Error(err))
			res.Duration = time.Since(start)
			return res, nil
		}
		points = truncate(fin, count)
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "intel: generate")
	}

	school.TalkingPoints = points
	if len(points) == 0 {
		// A previous good entry outlives a failed regeneration.
		log.Warn("intel: no talking points generated")
	} else if !s.cache.Set(ctx, school.URN, points) {
		log.Debug("intel: talking points not cached")
	}

	res.Duration = time.Since(start)
	log.Info("intel: generated talking points",
		zap.Int("count", len(points)),
		zap.Bool("inspection", withInspection),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

// blended runs the inspection analyzer then the financial generator and
// merges their output. Generator failures only reduce the result.
func (s *Service) blended(ctx context.Context, log *zap.Logger, school *model.School, count int) []model.TalkingPoint {
	var all []model.TalkingPoint

	if s.InspectionAvailable() {
		ictx, cancel := context.WithTimeout(ctx, s.timeout)
		in := s.inspection.Analyze(ictx, school.Name, school.URN)
		cancel()

		if in.Error != "" {
			log.Warn("intel: inspection analysis failed", zap.String("error", in.Error))
		} else {
			school.Inspection = in.Record()
			all = append(all, in.TalkingPoints...)
			log.Debug("intel: inspection talking points", zap.Int("count", len(in.TalkingPoints)))
		}
	}

	if s.features.ConversationStarters {
		need := financialNeeded(count, len(all))
		fin, err := s.financialPoints(ctx, school, need)
		if err != nil {
			log.Warn("intel: financial generation failed", zap.Int("requested", need), zap.Error(err))
		}
		all = append(all, fin...)
	}

	return truncate(dedupe(interleave(all, count)), count)
}

func (s *Service) financialPoints(ctx context.Context, school *model.School, count int) ([]model.TalkingPoint, error) {
	if s.financial == nil {
		return nil, eris.New("intel: financial generator unavailable")
	}
	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.financial.Generate(fctx, school, count)
	if err != nil {
		return nil, err
	}
	return out.TalkingPoints, nil
}

// financialNeeded returns how many financial points to request given how
// many inspection points were obtained. Short of the inspection target the
// financial side makes up the difference; never fewer than minFinancial.
func financialNeeded(total, inspection int) int {
	target := int(float64(total) * inspectionShare)
	need := total - target
	if inspection < target {
		need = total - inspection
	}
	return max(minFinancial, need)
}

// interleave orders up to n points, taking an inspection point at positions
// where i%3 < 2 and a financial point otherwise, falling back to whichever
// pool still has points.
func interleave(points []model.TalkingPoint, n int) []model.TalkingPoint {
	var insp, fin []model.TalkingPoint
	for _, p := range points {
		if p.FromInspection() {
			insp = append(insp, p)
		} else {
			fin = append(fin, p)
		}
	}

	out := make([]model.TalkingPoint, 0, n)
	var i, f int
	for pos := 0; pos < n; pos++ {
		switch {
		case pos%3 < 2 && i < len(insp):
			out = append(out, insp[i])
			i++
		case f < len(fin):
			out = append(out, fin[f])
			f++
		case i < len(insp):
			out = append(out, insp[i])
			i++
		}
	}
	return out
}

// dedupe keeps the first point for each exact topic.
func dedupe(points []model.TalkingPoint) []model.TalkingPoint {
	seen := make(map[string]bool, len(points))
	out := make([]model.TalkingPoint, 0, len(points))
	for _, p := range points {
		if seen[p.Topic] {
			continue
		}
		seen[p.Topic] = true
		out = append(out, p)
	}
	return out
}

func truncate(points []model.TalkingPoint, n int) []model.TalkingPoint {
	if n > 0 && len(points) > n {
		return points[:n]
	}
	return points
}

// TalkingPointsForURN is TalkingPoints or TalkingPointsWithInspection for a
// school looked up by identifier.
func (s *Service) TalkingPointsForURN(ctx context.Context, urn string, force bool, count int, withInspection bool) (*Result, error) {
	shared, ok := s.dir.ByURN(urn)
	if !ok {
		return nil, eris.Wrapf(ErrSchoolNotFound, "intel: urn %q", urn)
	}
	return s.generate(ctx, shared, force, count, withInspection)
}
