// Package budget persists embedding token counters as plain integer keys.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/talentrag/internal/db"
)

// Default key lifetimes. Both outlive their period so a counter can still be
// read shortly after rollover.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Options sets key lifetimes. Zero values fall back to the defaults.
type Options struct {
	DailyTTL   time.Duration
	MonthlyTTL time.Duration
}

// Store keeps {prefix}budget:{provider}:daily:YYYY-MM-DD and
// {prefix}budget:{provider}:monthly:YYYY-MM counters.
type Store struct {
	kv   kv
	opts Options
}

// New creates a budget store.
func New(s kv, opts Options) *Store {
	if opts.DailyTTL <= 0 {
		opts.DailyTTL = DefaultDailyTTL
	}
	if opts.MonthlyTTL <= 0 {
		opts.MonthlyTTL = DefaultMonthlyTTL
	}
	return &Store{kv: s, opts: opts}
}

// IncrBy adds val to the counter and sets its TTL on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	// NX keeps the first expiry so later increments do not extend it
	if err := s.kv.Expire(ctx, key, s.ttl(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, 0 for a missing key.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: not a counter: %w", key, err)
	}
	return val, nil
}

func (s *Store) ttl(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.opts.DailyTTL
	}
	return s.opts.MonthlyTTL
}
