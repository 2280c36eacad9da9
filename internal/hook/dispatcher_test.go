package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "github.com/552020/futura-prealpha/contracts/mq"
	"github.com/552020/futura-prealpha/pkg/trace"
)

type spy struct {
	events []Event
	err    error
}

func (s *spy) handle(_ context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestDispatchRoutesByKindAndCollection(t *testing.T) {
	s := &spy{}
	d := NewDispatcher(zap.NewNop())
	d.Register(SetDoc, "email_requests", s.handle)

	require.NoError(t, d.OnSetDoc(context.Background(), Event{Collection: "email_requests", Key: "k1", After: []byte("{}")}))
	require.NoError(t, d.OnSetDoc(context.Background(), Event{Collection: "demo", Key: "k2"}))
	require.NoError(t, d.OnDeleteDoc(context.Background(), Event{Collection: "email_requests", Key: "k3"}))

	require.Len(t, s.events, 1)
	assert.Equal(t, SetDoc, s.events[0].Kind)
	assert.Equal(t, "k1", s.events[0].Key)
}

func TestDispatchSurfacesHandlerError(t *testing.T) {
	s := &spy{err: errors.New("email API returned status 500: boom")}
	d := NewDispatcher(zap.NewNop())
	d.Register(SetDoc, "demo", s.handle)

	err := d.OnSetDoc(context.Background(), Event{Collection: "demo", Key: "k"})
	assert.EqualError(t, err, "email API returned status 500: boom")
}

func TestDispatchAddsTraceID(t *testing.T) {
	var got string
	d := NewDispatcher(zap.NewNop())
	d.Register(SetDoc, "demo", func(ctx context.Context, _ Event) error {
		got = trace.FromContext(ctx)
		return nil
	})

	require.NoError(t, d.OnSetDoc(context.Background(), Event{Collection: "demo"}))
	assert.NotEmpty(t, got)
}

func TestBatchedEntryPointsJoinErrors(t *testing.T) {
	s := &spy{err: errors.New("fail")}
	d := NewDispatcher(zap.NewNop())
	d.Register(DeleteManyDocs, "demo", s.handle)

	err := d.OnDeleteManyDocs(context.Background(), []Event{{Collection: "demo", Key: "a"}, {Collection: "x", Key: "b"}, {Collection: "demo", Key: "c"}})
	require.Error(t, err)
	assert.Len(t, s.events, 2)
	for _, ev := range s.events {
		assert.Equal(t, DeleteManyDocs, ev.Kind)
	}
}

func TestHandleMutation(t *testing.T) {
	s := &spy{}
	d := NewDispatcher(zap.NewNop())
	d.Register(SetDoc, "demo", s.handle)

	err := d.HandleMutation(context.Background(), mqcontracts.MutationEvent{
		ID:         "evt-1",
		Kind:       mqcontracts.KindSetDoc,
		Collection: "demo",
		Key:        "abc123",
		Owner:      "user-1",
		After:      &mqcontracts.DocVersion{Data: []byte(`{"from":"a"}`), Version: 1},
	})
	require.NoError(t, err)
	require.Len(t, s.events, 1)
	assert.Equal(t, "abc123", s.events[0].Key)
	assert.Equal(t, "user-1", s.events[0].Owner)
	assert.JSONEq(t, `{"from":"a"}`, string(s.events[0].After))
	assert.Nil(t, s.events[0].Before)

	for _, kind := range []string{
		mqcontracts.KindSetManyDocs, mqcontracts.KindDeleteDoc, mqcontracts.KindDeleteManyDocs,
		mqcontracts.KindUploadAsset, mqcontracts.KindDeleteAsset, mqcontracts.KindDeleteManyAssets,
	} {
		err := d.HandleMutation(context.Background(), mqcontracts.MutationEvent{
			Kind:       kind,
			Collection: "demo",
			Key:        "abc123",
			Items:      []mqcontracts.ItemChange{{Collection: "demo", Key: "abc123"}},
		})
		assert.NoError(t, err, kind)
	}
	assert.Len(t, s.events, 1)
}

func TestHandleMutationUnknownKind(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	assert.Error(t, d.HandleMutation(context.Background(), mqcontracts.MutationEvent{Kind: "rename_doc"}))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, ok := ParseKind(string(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("set_docs")
	assert.False(t, ok)
}
