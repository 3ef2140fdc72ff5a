package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/school-intel/internal/model"
)

// SQLiteCache keeps entries in a single SQLite table.
type SQLiteCache struct {
	db *sql.DB
	options
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS talking_point_cache (
	cache_key      TEXT PRIMARY KEY,
	urn            TEXT NOT NULL,
	cached_at      TEXT NOT NULL,
	talking_points TEXT NOT NULL
);
`

// NewSQLiteCache opens (creating if needed) the database at path, configures
// WAL mode and ensures the cache table exists.
func NewSQLiteCache(path string, opts ...Option) (*SQLiteCache, error) {
	if path == "" {
		return nil, eris.New("cache: sqlite driver requires a path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "cache: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}
	return &SQLiteCache{db: db, options: buildOptions(opts)}, nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, urn string) ([]model.TalkingPoint, bool) {
	var cachedAt, pointsJSON string
	err := c.db.QueryRowContext(ctx,
		`SELECT cached_at, talking_points FROM talking_point_cache WHERE cache_key = ?`,
		Key(urn),
	).Scan(&cachedAt, &pointsJSON)
	if err != nil {
		if err != sql.ErrNoRows {
			zap.L().Debug("cache: sqlite read failed", zap.String("urn", urn), zap.Error(err))
		}
		return nil, false
	}

	at, err := parseTimestamp(cachedAt)
	if err != nil || !c.fresh(at) {
		return nil, false
	}
	var points []model.TalkingPoint
	if err := json.Unmarshal([]byte(pointsJSON), &points); err != nil {
		zap.L().Debug("cache: malformed entry", zap.String("urn", urn), zap.Error(err))
		return nil, false
	}
	if len(points) == 0 {
		return nil, false
	}
	return points, true
}

// Set implements Cache.
func (c *SQLiteCache) Set(ctx context.Context, urn string, points []model.TalkingPoint) bool {
	if points == nil {
		points = []model.TalkingPoint{}
	}
	pointsJSON, err := json.Marshal(points)
	if err != nil {
		zap.L().Warn("cache: marshal failed", zap.String("urn", urn), zap.Error(err))
		return false
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO talking_point_cache (cache_key, urn, cached_at, talking_points) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET urn = excluded.urn, cached_at = excluded.cached_at, talking_points = excluded.talking_points`,
		Key(urn), urn, c.now().UTC().Format(time.RFC3339Nano), string(pointsJSON),
	)
	if err != nil {
		zap.L().Warn("cache: sqlite write failed", zap.String("urn", urn), zap.Error(err))
		return false
	}
	return true
}

// Clear implements Cache.
func (c *SQLiteCache) Clear(ctx context.Context, urn string) int {
	var (
		res sql.Result
		err error
	)
	if urn != "" {
		res, err = c.db.ExecContext(ctx, `DELETE FROM talking_point_cache WHERE cache_key = ?`, Key(urn))
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM talking_point_cache`)
	}
	if err != nil {
		zap.L().Warn("cache: sqlite clear failed", zap.String("urn", urn), zap.Error(err))
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close implements Cache.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
