package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAcker struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcker) Ack(uint64, bool) error { f.acked++; return nil }
func (f *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}
func (f *fakeAcker) Reject(uint64, bool) error { return nil }

type fakeDLQ struct {
	reasons []string
}

func (f *fakeDLQ) PublishToDLQ(_ string, _ []byte, reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func newTestConsumer(h MessageHandler, dlq DeadLetterPublisher) *Consumer {
	return &Consumer{
		queue:   amqp091.Queue{Name: "relay.mutations.q"},
		handler: h,
		dlq:     dlq,
		logger:  zap.NewNop(),
		done:    make(chan struct{}),
	}
}

func TestProcessAcksOnSuccess(t *testing.T) {
	acker := &fakeAcker{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error { return nil }, nil)

	c.process(amqp091.Delivery{Acknowledger: acker, RoutingKey: "store.set_doc", Body: []byte(`{}`)})

	assert.Equal(t, 1, acker.acked)
	assert.Equal(t, 0, acker.nacked)
}

func TestProcessDeadLettersFailureWithoutRequeue(t *testing.T) {
	acker := &fakeAcker{}
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("email API returned status 500: boom")
	}, dlq)

	c.process(amqp091.Delivery{Acknowledger: acker, RoutingKey: "store.set_doc", Body: []byte(`{}`)})

	assert.Equal(t, 0, acker.acked)
	assert.Equal(t, 1, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Equal(t, []string{"email API returned status 500: boom"}, dlq.reasons)
}

func TestProcessRecoversPanic(t *testing.T) {
	acker := &fakeAcker{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error { panic("bad") }, nil)

	assert.NotPanics(t, func() {
		c.process(amqp091.Delivery{Acknowledger: acker, RoutingKey: "store.set_doc"})
	})
	assert.Equal(t, 1, acker.nacked)
}

func TestWaitBlocksUntilInFlightMessageIsSettled(t *testing.T) {
	acker := &fakeAcker{}
	started := make(chan struct{})
	release := make(chan struct{})
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		close(started)
		<-release
		return nil
	}, nil)

	deliveries := make(chan amqp091.Delivery, 1)
	deliveries <- amqp091.Delivery{Acknowledger: acker, RoutingKey: "store.set_doc", Body: []byte(`{}`)}
	close(deliveries)

	go c.run(deliveries)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, 1, acker.acked)
}

func TestStartConsumingWithoutHandlerReleasesWait(t *testing.T) {
	c := newTestConsumer(nil, nil)

	assert.Error(t, c.StartConsuming())
	assert.NoError(t, c.Wait(context.Background()))
}
