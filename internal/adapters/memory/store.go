package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quentinrf/fermpi/internal/domain"
)

// Store implements domain.Store in process memory.
// Useful for development and tests - nothing survives a restart
type Store struct {
	mu         sync.RWMutex
	samples    []*domain.TemperatureSample
	nextID     int64
	setpoint   *domain.SetpointConfig
	credential *domain.Credential
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Initialize seeds the default setpoint and credential when absent
func (s *Store) Initialize(ctx context.Context, seed *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setpoint == nil {
		off := domain.ControllerOff
		s.setpoint = domain.DefaultSetpoint()
		s.setpoint.ID = 1
		s.setpoint.ControllerState = &off
	}
	if s.credential == nil && seed != nil {
		cred := *seed
		cred.ID = 1
		s.credential = &cred
	}
	return nil
}

// Append stores a copy of the sample and assigns its ID
func (s *Store) Append(ctx context.Context, sample *domain.TemperatureSample) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample.ID = s.nextID
	s.nextID++

	stored := *sample
	s.samples = append(s.samples, &stored)
	return sample.ID, nil
}

// RecentSamples returns up to n samples, newest first
func (s *Store) RecentSamples(ctx context.Context, n int) ([]*domain.TemperatureSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []*domain.TemperatureSample{}, nil
	}

	results := make([]*domain.TemperatureSample, 0, len(s.samples))
	for _, sample := range s.samples {
		c := *sample
		results = append(results, &c)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].ID > results[j].ID
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// CountSamples returns the number of stored samples
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.samples)), nil
}

// Get returns a copy of the setpoint, creating the default on first use
func (s *Store) Get(ctx context.Context) (*domain.SetpointConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSetpoint()
	return copySetpoint(s.setpoint), nil
}

// Update swaps in a new setpoint record under the write lock
func (s *Store) Update(ctx context.Context, upd domain.SetpointUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSetpoint()
	next := copySetpoint(s.setpoint)
	next.TempSet = upd.TempSet
	next.ThSet = upd.ThSet
	next.ThOuter = upd.ThOuter
	if upd.ControllerState != nil {
		state := *upd.ControllerState
		next.ControllerState = &state
	}
	s.setpoint = next
	return nil
}

// Credential returns the operator credential
func (s *Store) Credential(ctx context.Context) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credential == nil {
		return nil, domain.ErrCredentialNotFound
	}
	cred := *s.credential
	return &cred, nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

func (s *Store) ensureSetpoint() {
	if s.setpoint == nil {
		s.setpoint = domain.DefaultSetpoint()
		s.setpoint.ID = 1
	}
}

func copySetpoint(c *domain.SetpointConfig) *domain.SetpointConfig {
	out := *c
	if c.ControllerState != nil {
		state := *c.ControllerState
		out.ControllerState = &state
	}
	return &out
}
