package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDeduperDisabledAllowsEverything(t *testing.T) {
	d := NewDeduper(nil, time.Hour, zap.NewNop())
	assert.True(t, d.AcquireOnce(context.Background(), "email", "evt-1"))
	assert.True(t, d.AcquireOnce(context.Background(), "email", "evt-1"))
}

func TestDeduperFailsOpenWhenRedisUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	core, logs := observer.New(zap.WarnLevel)
	d := NewDeduper(rdb, time.Hour, zap.New(core))

	assert.True(t, d.AcquireOnce(context.Background(), "email", "evt-1"))
	assert.Equal(t, 1, logs.FilterMessage("Redis dedup check failed, allowing processing").Len())
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestDeduperSkipsRedeliveredEvent(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	core, logs := observer.New(zap.InfoLevel)
	d := NewDeduper(rdb, time.Hour, zap.New(core))
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "relay", "evt-1"))
	assert.False(t, d.AcquireOnce(ctx, "relay", "evt-1"))
	assert.True(t, d.AcquireOnce(ctx, "relay", "evt-2"))
	assert.True(t, d.AcquireOnce(ctx, "audit", "evt-1"))

	assert.Equal(t, 1, logs.FilterMessage("Skipped duplicated event").Len())
	require.True(t, mr.Exists("dedup:relay:evt-1"))
	assert.Equal(t, time.Hour, mr.TTL("dedup:relay:evt-1"))
}

func TestDeduperForgetsEventAfterTTL(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	d := NewDeduper(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "relay", "evt-1"))
	mr.FastForward(2 * time.Minute)
	assert.True(t, d.AcquireOnce(ctx, "relay", "evt-1"))
}

func TestDeduperEmptyEventIDIsNeverDeduplicated(t *testing.T) {
	_, rdb := newMiniRedis(t)
	d := NewDeduper(rdb, time.Hour, zap.NewNop())

	assert.True(t, d.AcquireOnce(context.Background(), "relay", ""))
	assert.True(t, d.AcquireOnce(context.Background(), "relay", ""))
}
