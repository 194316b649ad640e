package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
)

// TypeRecordAppended is the event type emitted after a record is stored.
const TypeRecordAppended = "record.appended"

// Event is the JSON body written to the topic.
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Record     *entity.Record `json:"record"`
}

// Publisher announces appended records.
type Publisher interface {
	Publish(ctx context.Context, rec *entity.Record) error
	Close() error
}

// messageWriter is the part of *kafka.Writer we use.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per record, keyed by user so a user's
// records stay ordered within a partition.
type KafkaPublisher struct {
	w     messageWriter
	topic string
	now   func() time.Time
	log   *slog.Logger
}

// New returns a Kafka publisher when brokers are configured and a Noop otherwise.
func New(cfg common.EventsConfig, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Brokers) == 0 {
		logger.Info("events.disabled", "reason", "no brokers configured")
		return Noop{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaPublisher(w, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		w:     w,
		topic: topic,
		now:   time.Now,
		log:   logger.With(slog.String("component", "events"), slog.String("topic", topic)),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *entity.Record) error {
	body, err := json.Marshal(Event{Type: TypeRecordAppended, OccurredAt: p.now().UTC(), Record: rec})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.UserID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeRecordAppended)},
			{Key: "kind", Value: []byte(rec.Kind)},
		},
	}
	if reqID := common.RequestIDFromContext(ctx); reqID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "req_id", Value: []byte(reqID)})
	}
	start := time.Now()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("events.publish.error", "record_id", rec.ID, "error", err)
		return common.ProviderUnavailable("kafka", err)
	}
	p.log.Debug("events.publish.ok", "record_id", rec.ID, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, *entity.Record) error { return nil }
func (Noop) Close() error                                  { return nil }
