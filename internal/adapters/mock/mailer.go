package mock

import (
	"context"
	"sync"

	"github.com/quentinrf/fermpi/internal/ports"
)

// RecordingMailer keeps every alert instead of sending it.
// Set Err to simulate an unreachable mail relay.
type RecordingMailer struct {
	mu     sync.Mutex
	alerts []ports.Alert
	Err    error
}

// NewRecordingMailer creates an empty recorder
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

// Send records the alert, then returns Err
func (m *RecordingMailer) Send(ctx context.Context, alert ports.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = append(m.alerts, alert)
	return m.Err
}

// Alerts returns a snapshot of every alert seen so far
func (m *RecordingMailer) Alerts() []ports.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ports.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
