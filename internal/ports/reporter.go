package ports

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/domain"
)

// SetpointSyncer is the controller's view of the sync service
type SetpointSyncer interface {
	FetchSetpoint(ctx context.Context) (*domain.SetpointConfig, error)
	PushTelemetry(ctx context.Context, inner, outer, set float64) error
}

// Reporter plays the controller: it pulls the setpoint, reads the
// thermometer and pushes telemetry on a fixed interval
type Reporter struct {
	thermometer Thermometer
	syncer      SetpointSyncer
	interval    time.Duration

	// last setpoint the server gave us, kept when a fetch fails
	mu       sync.Mutex
	setpoint *domain.SetpointConfig
}

// NewReporter creates a controller loop starting from the default setpoint
func NewReporter(thermometer Thermometer, syncer SetpointSyncer, interval time.Duration) *Reporter {
	return &Reporter{
		thermometer: thermometer,
		syncer:      syncer,
		interval:    interval,
		setpoint:    domain.DefaultSetpoint(),
	}
}

// Start runs until ctx is cancelled
func (r *Reporter) Start(ctx context.Context) {
	log.Info().
		Dur("interval", r.interval).
		Msg("starting controller reporter")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Report immediately on start
	r.reportOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.reportOnce(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping controller reporter")
			return
		}
	}
}

// Setpoint returns the setpoint currently in effect.
// Safe to call while Start is running.
func (r *Reporter) Setpoint() domain.SetpointConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.setpoint
}

func (r *Reporter) reportOnce(ctx context.Context) {
	cfg, err := r.syncer.FetchSetpoint(ctx)

	r.mu.Lock()
	if err == nil {
		r.setpoint = cfg
	}
	setpoint := *r.setpoint
	r.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("setpoint", setpoint.Triple()).Msg("failed to fetch setpoint, keeping last known")
	}

	inner, outer, err := r.thermometer.ReadTemperatures(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read thermometer")
		return
	}

	if err := r.syncer.PushTelemetry(ctx, inner, outer, setpoint.TempSet); err != nil {
		log.Error().Err(err).Msg("failed to push telemetry")
		return
	}

	log.Info().
		Float64("temp_inner", inner).
		Float64("temp_outer", outer).
		Str("setpoint", setpoint.Triple()).
		Str("demand", string(setpoint.Demand(inner))).
		Bool("ambient_deviates", setpoint.AmbientDeviates(outer)).
		Msg("reported temperatures")
}
