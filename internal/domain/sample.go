package domain

import (
	"fmt"
	"time"
)

// TemperatureSample is one telemetry report from the controller.
// Samples are immutable once stored.
type TemperatureSample struct {
	ID        int64
	Timestamp time.Time
	TempInner float64
	TempOuter float64
	TempSet   float64
}

// NewTemperatureSample stamps a sample with the receipt time.
// The timestamp is always taken from receivedAt, never from the client.
func NewTemperatureSample(inner, outer, set float64, receivedAt time.Time) *TemperatureSample {
	return &TemperatureSample{
		Timestamp: receivedAt.UTC(),
		TempInner: inner,
		TempOuter: outer,
		TempSet:   set,
	}
}

func (s *TemperatureSample) String() string {
	return fmt.Sprintf("sample %d at %s: inner=%g outer=%g set=%g",
		s.ID, s.Timestamp.Format(time.RFC3339), s.TempInner, s.TempOuter, s.TempSet)
}
