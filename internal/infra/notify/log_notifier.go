package notify

import (
	"context"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log instead of a broker. Used when
// Kafka is disabled in config, typically local development.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error {
	n.log.Info().
		Str("user_id", userID).
		Str("kind", kind).
		Interface("payload", payload).
		Msg("notification")
	return nil
}
