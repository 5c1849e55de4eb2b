package mail

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/ports"
)

// LogMailer writes alerts to the log instead of sending them.
// Used when no relay is configured (dev mode only).
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, alert ports.Alert) error {
	log.Error().
		Str("subject", alert.Subject).
		Time("occurred_at", alert.OccurredAt).
		Msg(alert.Body)
	return nil
}
