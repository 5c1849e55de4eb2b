package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/domain"
)

// AlertSubject identifies the service in every alert
const AlertSubject = "fermPi server app crashed"

// Alert is one failure notification
type Alert struct {
	Subject    string
	Body       string
	OccurredAt time.Time
}

// Mailer delivers alerts to the operator address.
// This is a PORT - the SMTP adapter implements it
type Mailer interface {
	Send(ctx context.Context, alert Alert) error
}

// Notifier is what the rest of the service calls on a failure
type Notifier interface {
	Notify(ctx context.Context, op string, err error)
}

// Alerter composes and sends one alert per failure
type Alerter struct {
	mailer  Mailer
	metrics Metrics
	now     func() time.Time
}

// NewAlerter creates an alerter that delivers through mailer
func NewAlerter(mailer Mailer, metrics Metrics) *Alerter {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Alerter{
		mailer:  mailer,
		metrics: metrics,
		now:     time.Now,
	}
}

// Notify sends an alert describing err. Delivery is synchronous and
// attempted once; a delivery failure is only logged so the request that
// triggered the alert never fails a second time.
func (a *Alerter) Notify(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}

	alert := ComposeAlert(op, err, a.now())

	log.Warn().
		Err(err).
		Str("op", op).
		Msg("sending failure alert")

	if sendErr := a.mailer.Send(ctx, alert); sendErr != nil {
		a.metrics.AlertDeliveryFailed()
		log.Error().
			Err(&domain.DeliveryError{Err: sendErr}).
			Str("op", op).
			Msg("failed to deliver alert")
		return
	}

	a.metrics.AlertSent()
}

// ComposeAlert builds the plain-text notification for a failure
func ComposeAlert(op string, err error, at time.Time) Alert {
	return Alert{
		Subject: AlertSubject,
		Body: fmt.Sprintf("Your fermPi server app has crashed.\nHere is the error msg:\n\n%s: %v\n\nTime: %s\n",
			op, err, at.UTC().Format(time.RFC3339)),
		OccurredAt: at,
	}
}
