package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/infra/logging"
)

// Ensure compile-time conformance
var _ adapter.Notifier = (*KafkaNotifier)(nil)

// notificationEnvelope is the wire shape published to the notifications topic.
// A downstream consumer turns these into emails/in-app messages. TraceID ties
// a delivered message back to the request that produced it.
type notificationEnvelope struct {
	UserID  string                 `json:"userId"`
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	TraceID string                 `json:"traceId,omitempty"`
	SentAt  time.Time              `json:"sentAt"`
}

// KafkaNotifier publishes billing notifications to a Kafka topic, keyed by
// user id so one user's notifications stay ordered.
type KafkaNotifier struct {
	writer *kafka.Writer
	log    *zerolog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}
	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("kafka notifier initialized")
	return &KafkaNotifier{writer: writer, log: logger}
}

func (n *KafkaNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error {
	value, err := json.Marshal(notificationEnvelope{
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
		TraceID: logging.TraceIDFrom(ctx),
		SentAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	produceCtx, cancel := context.WithTimeout(ctx, n.writer.WriteTimeout)
	defer cancel()

	if err := n.writer.WriteMessages(produceCtx, kafka.Message{
		Key:   []byte(userID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	n.log.Debug().Str("user_id", userID).Str("kind", kind).Msg("notification published")
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
