package mock

import (
	"context"
	"testing"
)

func TestFakeThermometer_StaysWithinVariation(t *testing.T) {
	therm := NewFakeThermometer(18, 21, 0.5)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		inner, outer, err := therm.ReadTemperatures(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inner < 17.5 || inner > 18.5 {
			t.Fatalf("inner %v outside 18±0.5", inner)
		}
		if outer < 20.5 || outer > 21.5 {
			t.Fatalf("outer %v outside 21±0.5", outer)
		}
	}
}

func TestFakeThermometer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := NewFakeThermometer(18, 21, 0).ReadTemperatures(ctx); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
