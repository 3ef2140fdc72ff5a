package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/cache"
	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/db"
	"github.com/sells-group/school-intel/internal/insight"
	"github.com/sells-group/school-intel/internal/intel"
	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
	anthropicpkg "github.com/sells-group/school-intel/pkg/anthropic"
	"github.com/sells-group/school-intel/pkg/jina"
	"github.com/sells-group/school-intel/pkg/perplexity"
)

// appEnv holds the loaded school index, the talking-point cache and the
// service that generates points, shared by every command.
type appEnv struct {
	Loader *loader.Loader
	Cache  cache.Cache
	Intel  *intel.Service
	pool   db.Pool // postgres source only
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// cachedPoints returns the fresh cached points for urn without generating.
func (e *appEnv) cachedPoints(ctx context.Context, urn string) []model.TalkingPoint {
	pts, _ := e.Cache.Get(ctx, urn)
	return pts
}

// initEnv validates the config for mode, loads the school index and wires
// the talking-point service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cols, err := loader.LoadColumns(cfg.Data.ColumnsFile)
	if err != nil {
		return nil, err
	}

	env := &appEnv{}
	src, err := initSource(ctx, env)
	if err != nil {
		return nil, err
	}

	env.Loader = loader.New(src, cols)
	if err := env.Loader.Load(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load schools")
	}
	zap.L().Info("school index ready",
		zap.Int("schools", env.Loader.Count()),
		zap.String("source", env.Loader.Provenance()),
	)

	env.Cache, err = cache.Open(cfg.Cache)
	if err != nil {
		env.Close()
		return nil, err
	}

	opts := []intel.Option{
		intel.WithFeatures(cfg.Features),
		intel.WithDefaultCount(cfg.Intel.MaxStarters),
		intel.WithTimeout(cfg.Intel.GenerationTimeout()),
		intel.WithWarmConcurrency(cfg.Intel.WarmConcurrency),
	}
	opts = append(opts, initGenerators(cfg)...)
	env.Intel = intel.New(env.Loader, env.Cache, opts...)

	return env, nil
}

// initSource builds the feed source named by data.source. A postgres pool
// is recorded on env so Close releases it.
func initSource(ctx context.Context, env *appEnv) (loader.Source, error) {
	switch cfg.Data.Source {
	case config.SourcePostgres:
		pool, err := db.Connect(ctx, cfg.Data.Postgres.URL)
		if err != nil {
			return nil, eris.Wrap(err, "connect postgres source")
		}
		env.pool = pool
		return loader.NewPostgresSource(pool, cfg.Data.Postgres.ContactTable, cfg.Data.Postgres.FinancialTable), nil
	default:
		return &loader.FileSource{
			ContactPath:   cfg.Data.ContactPath,
			FinancialPath: cfg.Data.FinancialPath,
		}, nil
	}
}

// initGenerators returns the generator options the configured keys allow.
// Without an Anthropic key the service serves cached points only.
func initGenerators(c *config.Config) []intel.Option {
	if c.Anthropic.Key == "" {
		zap.L().Warn("SCHOOLINTEL_ANTHROPIC_KEY not set, talking point generation disabled")
		return nil
	}

	anthropicClient := anthropicpkg.NewClient(c.Anthropic.Key)
	limiter := insight.NewLimiter(c.Anthropic.RequestsPerMinute)

	opts := []intel.Option{
		intel.WithFinancial(insight.NewFinancialWriter(anthropicClient, c.Anthropic, limiter)),
	}
	if !c.Features.InspectionAnalysis {
		return opts
	}

	var jinaOpts []jina.Option
	if c.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(c.Jina.BaseURL))
	}
	if c.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(c.Jina.Key, jinaOpts...)

	var perplexityClient perplexity.Client
	if c.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	} else {
		zap.L().Debug("SCHOOLINTEL_PERPLEXITY_KEY not set, report lookup uses jina search only")
	}

	finder := insight.NewReportFinder(jinaClient, perplexityClient)
	opts = append(opts, intel.WithInspection(insight.NewInspectionAnalyst(finder, anthropicClient, c.Anthropic, limiter)))
	return opts
}
