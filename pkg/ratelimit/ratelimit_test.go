package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	counts map[string]int
	err    error
}

func (m *memoryStore) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	if m.err != nil {
		return Decision{}, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[key]++
	remaining := rule.Limit - m.counts[key]
	if remaining < 0 {
		return Decision{RetryAfter: rule.Window}, nil
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

func TestAllowBlocksAfterLimit(t *testing.T) {
	store := &memoryStore{}
	l := New(store, "")
	rule := Rule{Name: "login", Limit: 2, Window: time.Minute}

	d, err := l.Allow(context.Background(), rule, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(context.Background(), rule, "10.0.0.1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(context.Background(), rule, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	d, _ = l.Allow(context.Background(), rule, "10.0.0.2")
	assert.True(t, d.Allowed)
	assert.Contains(t, store.counts, "ratelimit:login:10.0.0.2")
}

func TestAllowWithoutStore(t *testing.T) {
	l := New(NewRedisStore(nil), "rl")
	assert.False(t, l.Enabled())

	d, err := l.Allow(context.Background(), Rule{Name: "login", Limit: 1, Window: time.Minute}, "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAllowFailsOpenOnStoreError(t *testing.T) {
	l := New(&memoryStore{err: errors.New("connection refused")}, "rl")
	d, err := l.Allow(context.Background(), Rule{Name: "signup", Limit: 1, Window: time.Hour}, "ip")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestRuleMapsToBurstOverWindow(t *testing.T) {
	limit := limitFor(Rule{Name: "login", Limit: 50, Window: 10 * time.Minute})
	assert.Equal(t, redis_rate.Limit{Rate: 50, Burst: 50, Period: 10 * time.Minute}, limit)
}

func TestDecisionFromResult(t *testing.T) {
	allowed := decisionFrom(&redis_rate.Result{Allowed: 1, Remaining: 4, RetryAfter: -1})
	assert.Equal(t, Decision{Allowed: true, Remaining: 4}, allowed)

	denied := decisionFrom(&redis_rate.Result{Allowed: 0, Remaining: 0, RetryAfter: 12 * time.Second})
	assert.Equal(t, Decision{Allowed: false, RetryAfter: 12 * time.Second}, denied)

	soon := decisionFrom(&redis_rate.Result{Allowed: 0, RetryAfter: 200 * time.Millisecond})
	assert.Equal(t, time.Second, soon.RetryAfter)
}
