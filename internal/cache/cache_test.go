package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var samplePoints = []model.TalkingPoint{
	{Topic: "Agency spend", Detail: "You spent £42,000 on agency staff.", Source: "Financial Benchmarking Data", Relevance: 0.9},
	{Topic: "Attendance", Detail: "Ofsted flagged attendance.", Source: "https://reports.ofsted.gov.uk/provider/21/100", Relevance: 0.8},
}

type driverFactory func(t *testing.T, clock *fakeClock) Cache

func drivers() map[string]driverFactory {
	return map[string]driverFactory{
		"file": func(t *testing.T, clock *fakeClock) Cache {
			c, err := NewFileCache(t.TempDir(), WithTTL(24*time.Hour), WithClock(clock.Now))
			require.NoError(t, err)
			return c
		},
		"sqlite": func(t *testing.T, clock *fakeClock) Cache {
			c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), WithTTL(24*time.Hour), WithClock(clock.Now))
			require.NoError(t, err)
			t.Cleanup(func() { c.Close() }) //nolint:errcheck
			return c
		},
	}
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := open(t, clock)
			ctx := context.Background()

			_, ok := c.Get(ctx, "100")
			assert.False(t, ok)

			require.True(t, c.Set(ctx, "100", samplePoints))
			got, ok := c.Get(ctx, "100")
			require.True(t, ok)
			assert.Equal(t, samplePoints, got)

			clock.Advance(23 * time.Hour)
			_, ok = c.Get(ctx, "100")
			assert.True(t, ok)

			clock.Advance(2 * time.Hour)
			_, ok = c.Get(ctx, "100")
			assert.False(t, ok)
		})
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := open(t, clock)
			ctx := context.Background()

			require.True(t, c.Set(ctx, "100", samplePoints))
			clock.Advance(30 * time.Hour)
			require.True(t, c.Set(ctx, "100", samplePoints[:1]))

			got, ok := c.Get(ctx, "100")
			require.True(t, ok)
			assert.Equal(t, samplePoints[:1], got)
		})
	}
}

func TestCache_EmptyListIsMiss(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			c := open(t, newFakeClock())
			ctx := context.Background()

			require.True(t, c.Set(ctx, "100", nil))
			_, ok := c.Get(ctx, "100")
			assert.False(t, ok)
		})
	}
}

func TestCache_Clear(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			c := open(t, newFakeClock())
			ctx := context.Background()

			for _, urn := range []string{"1", "2", "3"} {
				require.True(t, c.Set(ctx, urn, samplePoints))
			}

			assert.Equal(t, 1, c.Clear(ctx, "2"))
			assert.Equal(t, 0, c.Clear(ctx, "2"))
			_, ok := c.Get(ctx, "2")
			assert.False(t, ok)

			assert.Equal(t, 2, c.Clear(ctx, ""))
			_, ok = c.Get(ctx, "1")
			assert.False(t, ok)
			assert.Equal(t, 0, c.Clear(ctx, ""))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("100"), Key("100"))
	assert.NotEqual(t, Key("100"), Key("101"))
	assert.Len(t, Key("100"), 32)
}

func TestCache_EntryExactlyTTLOldIsFresh(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := open(t, clock)
			ctx := context.Background()

			require.True(t, c.Set(ctx, "100", samplePoints))
			clock.Advance(DefaultTTL)
			_, ok := c.Get(ctx, "100")
			assert.True(t, ok)

			clock.Advance(time.Second)
			_, ok = c.Get(ctx, "100")
			assert.False(t, ok)
		})
	}
}

func TestFileCache_ReadsZonelessTimestamps(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	c, err := NewFileCache(dir, WithClock(clock.Now))
	require.NoError(t, err)

	write := func(urn string, at time.Time) {
		entry := map[string]any{
			"urn":            urn,
			"cached_at":      at.In(time.Local).Format("2006-01-02T15:04:05.000000"),
			"talking_points": samplePoints,
		}
		data, err := json.Marshal(entry)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, Key(urn)+".json"), data, 0o644))
	}
	write("100", clock.Now().Add(-time.Hour))
	write("200", clock.Now().Add(-25*time.Hour))

	got, ok := c.Get(context.Background(), "100")
	require.True(t, ok)
	assert.Equal(t, samplePoints, got)

	_, ok = c.Get(context.Background(), "200")
	assert.False(t, ok)
}

func TestParseTimestamp(t *testing.T) {
	at, err := parseTimestamp("2025-01-15T09:00:00Z")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)))

	at, err = parseTimestamp("2025-01-15T09:00:00+01:00")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)))

	at, err = parseTimestamp("2025-01-15T09:00:00.250000")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 1, 15, 9, 0, 0, 250_000_000, time.Local)))

	_, err = parseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestFileCache_EntryFormat(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	c, err := NewFileCache(dir, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, c.Set(context.Background(), "100", samplePoints))

	data, err := os.ReadFile(filepath.Join(dir, Key("100")+".json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "100", raw["urn"])
	assert.Equal(t, "2025-01-15T09:00:00Z", raw["cached_at"])
	assert.Len(t, raw["talking_points"], 2)
}

func TestFileCache_MalformedEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, Key("100")+".json"), []byte("{not json"), 0o644))
	_, ok := c.Get(context.Background(), "100")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, Key("100")+".json"), []byte(`{"urn":"100","talking_points":[{"topic":"x"}]}`), 0o644))
	_, ok = c.Get(context.Background(), "100")
	assert.False(t, ok, "entry without timestamp")
}

func TestFileCache_WriteFailureReportsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.False(t, c.Set(context.Background(), "100", samplePoints))
}

func TestDisabled(t *testing.T) {
	c, err := Open(config.CacheConfig{Enabled: false, Dir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.Set(ctx, "100", samplePoints))
	_, ok := c.Get(ctx, "100")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Clear(ctx, ""))
	assert.NoError(t, c.Close())
}

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(config.CacheConfig{Enabled: true, Driver: "file", Dir: filepath.Join(dir, "files"), TTLHours: 1})
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)
	assert.Equal(t, time.Hour, c.(*FileCache).ttl)

	c, err = Open(config.CacheConfig{Enabled: true, Driver: "sqlite", SQLitePath: filepath.Join(dir, "db", "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteCache{}, c)
	assert.Equal(t, DefaultTTL, c.(*SQLiteCache).ttl)
	require.NoError(t, c.Close())

	_, err = Open(config.CacheConfig{Enabled: true, Driver: "redis"})
	assert.Error(t, err)
}
