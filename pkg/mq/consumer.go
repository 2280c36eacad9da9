package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/pkg/metrics"
	"github.com/552020/futura-prealpha/pkg/otel"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// DeadLetterPublisher receives messages whose handler failed.
type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	dlq        DeadLetterPublisher
	conn       *amqp091.Connection
	logger     *zap.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewConsumer creates a consumer for a specific routing key (topic patterns allowed).
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := DeclareDLQExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetDeadLetter routes failed messages to p instead of dropping them.
func (c *Consumer) SetDeadLetter(p DeadLetterPublisher) {
	c.dlq = p
}

// Stop cancels consumption. Messages already delivered are still processed;
// use Wait to block until they are settled.
func (c *Consumer) Stop() {
	if c.channel != nil {
		_ = c.channel.Cancel("futura-relay", false)
	}
}

// Wait blocks until StartConsuming has returned or ctx is done.
func (c *Consumer) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be called in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		c.finish()
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"futura-relay",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		c.finish()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	c.run(deliveries)
	return nil
}

// run processes deliveries until the broker closes the channel.
func (c *Consumer) run(deliveries <-chan amqp091.Delivery) {
	defer c.finish()
	for msg := range deliveries {
		c.process(msg)
	}
	c.logger.Info("Consumer delivery loop exited", zap.String("queue", c.queue.Name))
}

// process 保证每条消息都会被 ack 或 nack。失败的消息不重新入队（单次投递），
// 而是转发到死信交换机。
func (c *Consumer) process(msg amqp091.Delivery) {
	start := time.Now()
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), otel.NewMQHeaderCarrier(msg.Headers))
	ctx, span := otel.MQConsumeSpan(ctx, msg.RoutingKey, c.queue.Name)
	defer span.End()

	c.logger.Debug("Received message",
		zap.String("routing_key", msg.RoutingKey),
		zap.String("queue", c.queue.Name),
		zap.Int("message_size", len(msg.Body)),
	)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", msg.RoutingKey),
				zap.Any("panic", r),
			)
			c.reject(msg, fmt.Sprintf("handler panic: %v", r))
		}
		metrics.RecordMQConsumeLatency(msg.RoutingKey, c.queue.Name, time.Since(start))
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.logger.Error("Handler error",
			zap.String("routing_key", msg.RoutingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		c.reject(msg, err.Error())
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err),
		)
	}
}

func (c *Consumer) reject(msg amqp091.Delivery, reason string) {
	if c.dlq != nil {
		if err := c.dlq.PublishToDLQ(msg.RoutingKey, msg.Body, reason); err != nil {
			c.logger.Error("Failed to publish to DLQ",
				zap.String("routing_key", msg.RoutingKey),
				zap.Error(err),
			)
		}
	}
	if err := msg.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message",
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err),
		)
	}
}
