// Package ratelimit bounds request rates per key with a Redis-backed GCRA limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// Store applies one rule to one key. Implementations must count and decide atomically.
type Store interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

// Rule bounds one named endpoint family to Limit requests per Window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter applies rules against a Store. A nil Store allows everything.
type Limiter struct {
	store  Store
	prefix string
}

// New constructs a Limiter.
func New(store Store, prefix string) *Limiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Limiter{store: store, prefix: prefix}
}

// Enabled reports whether the limiter has a backing store.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil
}

// Allow counts one hit for subject under rule.
func (l *Limiter) Allow(ctx context.Context, rule Rule, subject string) (Decision, error) {
	if !l.Enabled() || rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true, Remaining: rule.Limit}, nil
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, rule.Name, subject)
	decision, err := l.store.Allow(ctx, key, rule)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return decision, nil
}

// RedisStore keeps limiter state in Redis. Each check runs as a single Lua
// script, so state always carries an expiry.
type RedisStore struct {
	limiter *redis_rate.Limiter
}

// NewRedisStore wraps client. It returns nil for a nil client so Limiter stays disabled.
func NewRedisStore(client *redis.Client) Store {
	if client == nil {
		return nil
	}
	return &RedisStore{limiter: redis_rate.NewLimiter(client)}
}

// Allow implements Store. Bursts up to rule.Limit are allowed, refilling over rule.Window.
func (r *RedisStore) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	res, err := r.limiter.Allow(ctx, key, limitFor(rule))
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate %s: %w", key, err)
	}
	return decisionFrom(res), nil
}

func limitFor(rule Rule) redis_rate.Limit {
	return redis_rate.Limit{Rate: rule.Limit, Burst: rule.Limit, Period: rule.Window}
}

func decisionFrom(res *redis_rate.Result) Decision {
	if res.Allowed > 0 {
		return Decision{Allowed: true, Remaining: res.Remaining}
	}
	retry := res.RetryAfter
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}
}
