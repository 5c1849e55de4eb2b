package mock

import (
	"context"
	"math/rand"
)

// FakeThermometer simulates the controller's two sensors for development
// This implements the ports.Thermometer interface
type FakeThermometer struct {
	inner     float64
	outer     float64
	variation float64
}

// NewFakeThermometer creates a thermometer that returns realistic values
// inner/outer: average readings in °C (e.g., 18 in the fermenter, 21 in the room)
// variation: +/- range (e.g., 0.5 means 17.5-18.5)
func NewFakeThermometer(inner, outer, variation float64) *FakeThermometer {
	return &FakeThermometer{
		inner:     inner,
		outer:     outer,
		variation: variation,
	}
}

// ReadTemperatures returns simulated readings
func (t *FakeThermometer) ReadTemperatures(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	return t.inner + t.jitter(), t.outer + t.jitter(), nil
}

// Close is a no-op for the fake thermometer
func (t *FakeThermometer) Close() error {
	return nil
}

func (t *FakeThermometer) jitter() float64 {
	return (rand.Float64() - 0.5) * 2 * t.variation
}
