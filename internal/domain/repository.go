package domain

import (
	"context"
)

// TelemetryStore is the append-only record of samples.
// This is a PORT - adapters (SQLite, Postgres, Memory) will implement it
type TelemetryStore interface {
	// Append persists a sample, sets its ID and returns it
	Append(ctx context.Context, sample *TemperatureSample) (int64, error)

	// RecentSamples returns at most n samples, newest first
	RecentSamples(ctx context.Context, n int) ([]*TemperatureSample, error)

	// CountSamples returns the number of stored samples
	CountSamples(ctx context.Context) (int64, error)
}

// SetpointState holds the singleton setpoint record.
type SetpointState interface {
	// Get returns the setpoint, creating the default record if none exists
	Get(ctx context.Context) (*SetpointConfig, error)

	// Update replaces target and both thresholds in one transaction
	Update(ctx context.Context, upd SetpointUpdate) error
}

// CredentialStore reads the single operator credential.
type CredentialStore interface {
	Credential(ctx context.Context) (*Credential, error)
}

// Store is everything a storage backend provides.
type Store interface {
	TelemetryStore
	SetpointState
	CredentialStore

	// Initialize creates missing tables and seeds the default setpoint and
	// the given credential, never touching rows that already exist
	Initialize(ctx context.Context, seed *Credential) error

	Ping(ctx context.Context) error
	Close() error
}
