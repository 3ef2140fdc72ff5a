// Package cache stores generated talking points per school with a
// time-to-live. Cache failures never reach callers: reads degrade to a miss
// and writes report false.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // key derivation, not security
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/model"
)

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 24 * time.Hour

// Cache maps a school URN to its last generated talking points.
type Cache interface {
	// Get returns the stored points when a fresh, well-formed entry exists.
	// An empty stored list is reported as a miss.
	Get(ctx context.Context, urn string) ([]model.TalkingPoint, bool)
	// Set stores points for urn, replacing any prior entry.
	Set(ctx context.Context, urn string, points []model.TalkingPoint) bool
	// Clear removes the entry for urn, or every entry when urn is "".
	// It returns the number of entries removed.
	Clear(ctx context.Context, urn string) int
	Close() error
}

// Entry is the persisted form of one cache record.
type Entry struct {
	URN           string               `json:"urn"`
	CachedAt      Timestamp            `json:"cached_at"`
	TalkingPoints []model.TalkingPoint `json:"talking_points"`
}

// localLayout matches ISO timestamps written without a zone, such as
// "2025-01-15T09:00:00.123456". They are read as local time.
const localLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is written as RFC 3339 and also read from zone-less ISO text.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "cache: cached_at")
	}
	at, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = at
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return at, nil
	}
	at, err := time.ParseInLocation(localLayout, s, time.Local)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "cache: parse timestamp %q", s)
	}
	return at, nil
}

// Key derives the storage key for a URN.
func Key(urn string) string {
	sum := md5.Sum([]byte("starters_" + urn)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

type options struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a cache driver.
type Option func(*options)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.ttl <= 0 {
		o.ttl = DefaultTTL
	}
	return o
}

func (o options) fresh(cachedAt time.Time) bool {
	return o.now().Sub(cachedAt) <= o.ttl
}

// Open returns the cache driver selected by cfg. A disabled cache never hits.
func Open(cfg config.CacheConfig, opts ...Option) (Cache, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	opts = append([]Option{WithTTL(cfg.TTL())}, opts...)

	switch cfg.Driver {
	case "", "file":
		return NewFileCache(cfg.Dir, opts...)
	case "sqlite":
		return NewSQLiteCache(cfg.SQLitePath, opts...)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

// Disabled is a cache that stores nothing.
type Disabled struct{}

func (Disabled) Get(context.Context, string) ([]model.TalkingPoint, bool) { return nil, false }
func (Disabled) Set(context.Context, string, []model.TalkingPoint) bool   { return false }
func (Disabled) Clear(context.Context, string) int                        { return 0 }
func (Disabled) Close() error                                             { return nil }
