package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/model"
)

// FileCache keeps one JSON file per school in a directory. Concurrent
// writers to the same key race; the last rename wins.
type FileCache struct {
	dir string
	options
}

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, opts ...Option) (*FileCache, error) {
	if dir == "" {
		return nil, eris.New("cache: file driver requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	return &FileCache{dir: dir, options: buildOptions(opts)}, nil
}

func (c *FileCache) path(urn string) string {
	return filepath.Join(c.dir, Key(urn)+".json")
}

// Get implements Cache.
func (c *FileCache) Get(_ context.Context, urn string) ([]model.TalkingPoint, bool) {
	data, err := os.ReadFile(c.path(urn))
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Debug("cache: read failed", zap.String("urn", urn), zap.Error(err))
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		zap.L().Debug("cache: malformed entry", zap.String("urn", urn), zap.Error(err))
		return nil, false
	}
	if e.CachedAt.IsZero() || !c.fresh(e.CachedAt.Time) || len(e.TalkingPoints) == 0 {
		return nil, false
	}
	return e.TalkingPoints, true
}

// Set implements Cache.
func (c *FileCache) Set(_ context.Context, urn string, points []model.TalkingPoint) bool {
	data, err := json.MarshalIndent(Entry{URN: urn, CachedAt: Timestamp{c.now().UTC()}, TalkingPoints: points}, "", "  ")
	if err != nil {
		zap.L().Warn("cache: marshal failed", zap.String("urn", urn), zap.Error(err))
		return false
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		zap.L().Warn("cache: write failed", zap.String("urn", urn), zap.Error(err))
		return false
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		zap.L().Warn("cache: write failed", zap.String("urn", urn), zap.NamedError("write", werr), zap.NamedError("close", cerr))
		return false
	}
	if err := os.Rename(tmp.Name(), c.path(urn)); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		zap.L().Warn("cache: write failed", zap.String("urn", urn), zap.Error(err))
		return false
	}
	return true
}

// Clear implements Cache.
func (c *FileCache) Clear(_ context.Context, urn string) int {
	if urn != "" {
		if err := os.Remove(c.path(urn)); err != nil {
			return 0
		}
		return 1
	}

	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err == nil {
			removed++
		}
	}
	return removed
}

// Close implements Cache.
func (c *FileCache) Close() error { return nil }
