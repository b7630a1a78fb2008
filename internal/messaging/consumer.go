package messaging

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

type Consumer struct {
	reader      *kafka.Reader
	topic       string
	groupID     string
	maxAttempts int
	backoff     time.Duration
}

type ConsumerOption func(*Consumer, *kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(_ *Consumer, cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

// WithRetry runs the handler up to attempts times per message, sleeping
// backoff*n before the n-th retry.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer, _ *kafka.ReaderConfig) {
		c.maxAttempts = max(attempts, 1)
		c.backoff = backoff
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}

	c := &Consumer{
		topic:       topic,
		groupID:     groupID,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.reader = kafka.NewReader(cfg)

	return c
}

func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.processMessage(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	carrier := NewMessageCarrier(&msg)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			attribute.String("messaging.event_type", carrier.Get(headerEventType)),
		),
	)
	defer span.End()

	err := retry(spanCtx, c.maxAttempts, c.backoff, func(ctx context.Context) error {
		return handler(ctx, msg.Value)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func retry(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	var err error
	for n := range attempts {
		if n > 0 {
			select {
			case <-time.After(backoff * time.Duration(n)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		trace.SpanFromContext(ctx).AddEvent("handler failed",
			trace.WithAttributes(attribute.Int("attempt", n+1), attribute.String("error", err.Error())),
		)
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
