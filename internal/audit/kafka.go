package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// DefaultTopic carries the storefront audit trail.
const DefaultTopic = "storefront.audit"

var publisherTracer = otel.Tracer("audit/publisher")

// KafkaSink publishes audit events to kafka, keyed by customer id so one
// customer's events stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Log(ctx context.Context, customerID, name string, details map[string]any) error {
	event := domain.AuditEvent{
		CustomerID: customerID,
		Name:       name,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(customerID),
		Value: data,
	}

	ctx, span := publisherTracer.Start(ctx, "send "+s.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(s.topic),
			semconv.MessagingKafkaMessageKey(customerID),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, carrierFor(&msg))

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
