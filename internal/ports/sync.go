package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/domain"
)

// IngestAck is what the controller is told after every telemetry push
const IngestAck = "Temperature saved!"

// DashboardSamples is how many samples the dashboard shows
const DashboardSamples = 10

// SyncStore is the storage the sync service reads and writes
type SyncStore interface {
	domain.TelemetryStore
	domain.SetpointState
}

// Outcome is the internal result of an ingestion. The transport never
// shows it to the controller; it exists for logging and tests.
type Outcome struct {
	SampleID int64
	Err      error
}

// OK reports whether the sample was stored
func (o Outcome) OK() bool { return o.Err == nil }

// DashboardView is what the operator sees
type DashboardView struct {
	Samples  []*domain.TemperatureSample
	Setpoint *domain.SetpointConfig
}

// SyncService implements the controller-facing and operator-facing
// operations on the setpoint and telemetry stores
type SyncService struct {
	store    SyncStore
	notifier Notifier
	metrics  Metrics
	now      func() time.Time
}

// NewSyncService creates the sync service
func NewSyncService(store SyncStore, notifier Notifier, metrics Metrics) *SyncService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SyncService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

type telemetryPayload struct {
	TempInner *float64 `json:"temp_inner"`
	TempOuter *float64 `json:"temp_outer"`
	TempSet   *float64 `json:"temp_set"`
}

// IngestTelemetry stores one sample decoded from the controller's JSON.
// Failures are alerted here and only reported through the Outcome.
func (s *SyncService) IngestTelemetry(ctx context.Context, raw []byte) Outcome {
	sample, err := s.decodeSample(raw)
	if err != nil {
		return s.ingestFailed(ctx, err)
	}

	id, err := s.store.Append(ctx, sample)
	if err != nil {
		return s.ingestFailed(ctx, err)
	}

	s.metrics.SampleIngested()
	log.Debug().
		Int64("id", id).
		Float64("temp_inner", sample.TempInner).
		Float64("temp_outer", sample.TempOuter).
		Float64("temp_set", sample.TempSet).
		Msg("stored temperature sample")

	return Outcome{SampleID: id}
}

// FetchSetpoint returns "<temp_set>,<th_set>,<th_outer>". When storage is
// unreachable the defaults are returned and an alert is sent.
func (s *SyncService) FetchSetpoint(ctx context.Context) string {
	cfg, err := s.store.Get(ctx)
	if err != nil {
		s.notifier.Notify(ctx, "fetch setpoint", err)
		return domain.DefaultSetpoint().Triple()
	}
	return cfg.Triple()
}

// UpdateSetpoint applies an operator form. A validation failure is
// alerted and returned without any write being attempted.
func (s *SyncService) UpdateSetpoint(ctx context.Context, form url.Values) error {
	upd, err := domain.ParseSetpointForm(form)
	if err != nil {
		s.metrics.SetpointUpdateFailed()
		s.notifier.Notify(ctx, "update setpoint", err)
		return err
	}

	if err := s.store.Update(ctx, upd); err != nil {
		s.metrics.SetpointUpdateFailed()
		s.notifier.Notify(ctx, "update setpoint", err)
		return err
	}

	s.metrics.SetpointUpdated()
	log.Info().
		Float64("temp_set", upd.TempSet).
		Float64("th_set", upd.ThSet).
		Float64("th_outer", upd.ThOuter).
		Msg("setpoint updated")

	return nil
}

// Dashboard loads the recent samples and the current setpoint
func (s *SyncService) Dashboard(ctx context.Context) (*DashboardView, error) {
	samples, err := s.store.RecentSamples(ctx, DashboardSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent samples: %w", err)
	}

	cfg, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load setpoint: %w", err)
	}

	return &DashboardView{Samples: samples, Setpoint: cfg}, nil
}

func (s *SyncService) decodeSample(raw []byte) (*domain.TemperatureSample, error) {
	var p telemetryPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &domain.ValidationError{Err: fmt.Errorf("malformed telemetry payload: %w", err)}
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{domain.FieldTempInner, p.TempInner},
		{domain.FieldTempOuter, p.TempOuter},
		{domain.FieldTempSet, p.TempSet},
	}
	for _, f := range fields {
		if f.v == nil {
			return nil, &domain.ValidationError{Field: f.name, Err: domain.ErrMissingField}
		}
	}

	return domain.NewTemperatureSample(*p.TempInner, *p.TempOuter, *p.TempSet, s.now()), nil
}

func (s *SyncService) ingestFailed(ctx context.Context, err error) Outcome {
	s.metrics.IngestFailed()
	s.notifier.Notify(ctx, "ingest telemetry", err)
	return Outcome{Err: err}
}
