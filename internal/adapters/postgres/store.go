package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/quentinrf/fermpi/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS temperatures (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	temp_inner DOUBLE PRECISION NOT NULL,
	temp_outer DOUBLE PRECISION NOT NULL,
	temp_set DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_temperatures_timestamp ON temperatures (timestamp DESC);

CREATE TABLE IF NOT EXISTS temp_set (
	id BIGSERIAL PRIMARY KEY,
	temp_set DOUBLE PRECISION NOT NULL,
	th_set DOUBLE PRECISION NOT NULL,
	th_outer DOUBLE PRECISION NOT NULL,
	controller_state TEXT
);

CREATE TABLE IF NOT EXISTS creds (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL
);
`

// Store implements domain.Store on PostgreSQL
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL, sizes the pool and pings the server
func Open(ctx context.Context, dsn string, maxConns, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db), nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Initialize creates the schema and seeds rows that do not exist yet
func (s *Store) Initialize(ctx context.Context, seed *domain.Credential) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return domain.NewPersistenceError("create schema", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewPersistenceError("initialize", err)
	}
	defer tx.Rollback()

	if err := ensureSetpoint(ctx, tx, string(domain.ControllerOff)); err != nil {
		return domain.NewPersistenceError("initialize setpoint", err)
	}

	if seed != nil {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE creds IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return domain.NewPersistenceError("initialize credential", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO creds (username, password_hash)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM creds)`,
			seed.Username, seed.PasswordHash,
		); err != nil {
			return domain.NewPersistenceError("initialize credential", err)
		}
	}

	return domain.NewPersistenceError("initialize", tx.Commit())
}

// Append inserts a sample and sets its ID
func (s *Store) Append(ctx context.Context, sample *domain.TemperatureSample) (int64, error) {
	query := `INSERT INTO temperatures (timestamp, temp_inner, temp_outer, temp_set) VALUES ($1, $2, $3, $4) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		sample.Timestamp.UTC(), sample.TempInner, sample.TempOuter, sample.TempSet,
	).Scan(&id)
	if err != nil {
		return 0, domain.NewPersistenceError("append sample", err)
	}

	sample.ID = id
	return id, nil
}

// RecentSamples returns up to n samples, newest first
func (s *Store) RecentSamples(ctx context.Context, n int) ([]*domain.TemperatureSample, error) {
	if n <= 0 {
		return []*domain.TemperatureSample{}, nil
	}

	query := `
		SELECT id, timestamp, temp_inner, temp_outer, temp_set
		FROM temperatures
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, domain.NewPersistenceError("query samples", err)
	}
	defer rows.Close()

	samples := make([]*domain.TemperatureSample, 0, n)
	for rows.Next() {
		var sample domain.TemperatureSample
		if err := rows.Scan(&sample.ID, &sample.Timestamp, &sample.TempInner, &sample.TempOuter, &sample.TempSet); err != nil {
			return nil, domain.NewPersistenceError("scan sample", err)
		}
		sample.Timestamp = sample.Timestamp.UTC()
		samples = append(samples, &sample)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("query samples", err)
	}

	return samples, nil
}

// CountSamples returns the number of stored samples
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM temperatures`).Scan(&n); err != nil {
		return 0, domain.NewPersistenceError("count samples", err)
	}
	return n, nil
}

// Get returns the setpoint row, creating the defaults when missing
func (s *Store) Get(ctx context.Context) (*domain.SetpointConfig, error) {
	cfg, err := firstSetpoint(ctx, s.db)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewPersistenceError("read setpoint", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewPersistenceError("create default setpoint", err)
	}
	defer tx.Rollback()

	if err := ensureSetpoint(ctx, tx, ""); err != nil {
		return nil, domain.NewPersistenceError("create default setpoint", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewPersistenceError("create default setpoint", err)
	}

	cfg, err = firstSetpoint(ctx, s.db)
	if err != nil {
		return nil, domain.NewPersistenceError("read setpoint", err)
	}
	return cfg, nil
}

// Update replaces the setpoint fields in one transaction
func (s *Store) Update(ctx context.Context, upd domain.SetpointUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewPersistenceError("update setpoint", err)
	}
	defer tx.Rollback()

	if err := ensureSetpoint(ctx, tx, ""); err != nil {
		return domain.NewPersistenceError("update setpoint", err)
	}

	var state sql.NullString
	if upd.ControllerState != nil {
		state = sql.NullString{String: string(*upd.ControllerState), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE temp_set
		SET temp_set = $1, th_set = $2, th_outer = $3, controller_state = COALESCE($4, controller_state)
		WHERE id = (SELECT MIN(id) FROM temp_set)`,
		upd.TempSet, upd.ThSet, upd.ThOuter, state,
	); err != nil {
		return domain.NewPersistenceError("update setpoint", err)
	}

	return domain.NewPersistenceError("commit setpoint", tx.Commit())
}

// Credential returns the operator credential
func (s *Store) Credential(ctx context.Context) (*domain.Credential, error) {
	query := `SELECT id, username, password_hash FROM creds ORDER BY id ASC LIMIT 1`

	var cred domain.Credential
	err := s.db.QueryRowContext(ctx, query).Scan(&cred.ID, &cred.Username, &cred.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("read credential", err)
	}
	return &cred, nil
}

// Ping checks that the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	return domain.NewPersistenceError("ping", s.db.PingContext(ctx))
}

// Close closes the connection pool
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ensureSetpoint inserts the default row unless one exists. The table lock
// keeps two first requests from both inserting.
func ensureSetpoint(ctx context.Context, tx *sql.Tx, state string) error {
	if _, err := tx.ExecContext(ctx, `LOCK TABLE temp_set IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return err
	}

	initial := sql.NullString{String: state, Valid: state != ""}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO temp_set (temp_set, th_set, th_outer, controller_state)
		SELECT $1, $2, $3, $4 WHERE NOT EXISTS (SELECT 1 FROM temp_set)`,
		domain.DefaultTempSet, domain.DefaultThSet, domain.DefaultThOuter, initial,
	)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func firstSetpoint(ctx context.Context, q queryer) (*domain.SetpointConfig, error) {
	query := `SELECT id, temp_set, th_set, th_outer, controller_state FROM temp_set ORDER BY id ASC LIMIT 1`

	var cfg domain.SetpointConfig
	var state sql.NullString
	if err := q.QueryRowContext(ctx, query).Scan(&cfg.ID, &cfg.TempSet, &cfg.ThSet, &cfg.ThOuter, &state); err != nil {
		return nil, err
	}

	if state.Valid {
		cs, err := domain.ParseControllerState(state.String)
		if err != nil {
			return nil, fmt.Errorf("stored controller state %q: %w", state.String, err)
		}
		cfg.ControllerState = &cs
	}
	return &cfg, nil
}
