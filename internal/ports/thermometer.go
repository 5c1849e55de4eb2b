package ports

import (
	"context"
)

// Thermometer reads the controller's two sensors
// This is a PORT - adapters (1-Wire, Mock) will implement it
type Thermometer interface {
	// ReadTemperatures returns the inner (fermenter) and outer (ambient)
	// temperatures in degrees Celsius
	ReadTemperatures(ctx context.Context) (inner, outer float64, err error)

	// Close releases any resources
	Close() error
}
