package mqhandler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "github.com/552020/futura-prealpha/contracts/mq"
	"github.com/552020/futura-prealpha/internal/hook"
	"github.com/552020/futura-prealpha/pkg/util"
)

func TestMutationHandlerDispatches(t *testing.T) {
	var keys []string
	d := hook.NewDispatcher(zap.NewNop())
	d.Register(hook.SetDoc, "email_requests", func(_ context.Context, ev hook.Event) error {
		keys = append(keys, ev.Key)
		return nil
	})
	h := NewMutationHandler(d, util.NewDeduper(nil, time.Hour, zap.NewNop()), zap.NewNop())

	raw, err := json.Marshal(mqcontracts.MutationEvent{
		ID:         "evt-1",
		Kind:       mqcontracts.KindSetDoc,
		Collection: "email_requests",
		Key:        "abc123",
		After:      &mqcontracts.DocVersion{Data: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Equal(t, []string{"abc123"}, keys)
}

func TestMutationHandlerRejectsMalformedMessage(t *testing.T) {
	h := NewMutationHandler(hook.NewDispatcher(zap.NewNop()), util.NewDeduper(nil, time.Hour, zap.NewNop()), zap.NewNop())
	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{"kind":`)))
}

func TestMutationHandlerRunsRedeliveredEventOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	calls := 0
	d := hook.NewDispatcher(zap.NewNop())
	d.Register(hook.SetDoc, "email_requests", func(context.Context, hook.Event) error {
		calls++
		return nil
	})
	h := NewMutationHandler(d, util.NewDeduper(rdb, time.Hour, zap.NewNop()), zap.NewNop())

	raw, err := json.Marshal(mqcontracts.MutationEvent{
		ID:         "evt-42",
		Kind:       mqcontracts.KindSetDoc,
		Collection: "email_requests",
		Key:        "abc123",
		After:      &mqcontracts.DocVersion{Data: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Equal(t, 1, calls)

	other, err := json.Marshal(mqcontracts.MutationEvent{
		ID:         "evt-43",
		Kind:       mqcontracts.KindSetDoc,
		Collection: "email_requests",
		Key:        "abc124",
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), other))
	assert.Equal(t, 2, calls)
}
