package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("audit/consumer")

// HandlerFunc processes one consumed audit event payload. An error leaves the
// message uncommitted so a restarted worker sees it again.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Consumer tails the audit topic as part of a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
	logger  *slog.Logger
}

type ConsumerOption func(*Consumer, *kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(_ *Consumer, cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer, _ *kafka.ReaderConfig) {
		c.logger = logger
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		MaxWait: time.Second,
	}

	c := &Consumer{
		topic:   topic,
		groupID: groupID,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.reader = kafka.NewReader(cfg)
	return c
}

// Consume fetches, handles and commits one message at a time until the
// context is cancelled or the handler fails.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.deliver(ctx, msg, handler); err != nil {
			return err
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrierFor(&msg))

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
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("handle audit event at offset %d: %w", msg.Offset, err)
	}

	if err := c.reader.CommitMessages(spanCtx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}

	c.logger.Debug("audit event consumed", "partition", msg.Partition, "offset", msg.Offset)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
