package intel

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WarmReport summarises a Warm run.
type WarmReport struct {
	Schools   int `json:"schools"`
	Generated int `json:"generated"`
	Cached    int `json:"cached"`
	Empty     int `json:"empty"`
}

// Warm generates talking points for up to limit of the highest-priority
// schools, skipping those already cached. At most warmConcurrency schools
// are generated at once. It stops early only when ctx is cancelled.
func (s *Service) Warm(ctx context.Context, limit, count int, withInspection bool) (*WarmReport, error) {
	schools := s.dir.HighPriority(limit)
	report := &WarmReport{Schools: len(schools)}

	var generated, cached, empty atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.warmConcurrency)

	for _, school := range schools {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, hit := s.cache.Get(gctx, school.URN); hit {
				cached.Add(1)
				return nil
			}
			res, err := s.generate(gctx, school, true, count, withInspection)
			if err != nil {
				return err
			}
			if len(res.School.TalkingPoints) == 0 {
				empty.Add(1)
				return nil
			}
			generated.Add(1)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	report.Generated = int(generated.Load())
	report.Cached = int(cached.Load())
	report.Empty = int(empty.Load())

	zap.L().Info("intel: warm complete",
		zap.Int("schools", report.Schools),
		zap.Int("generated", report.Generated),
		zap.Int("cached", report.Cached),
		zap.Int("empty", report.Empty),
	)
	if err != nil {
		return report, eris.Wrap(err, "intel: warm")
	}
	return report, nil
}
