package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/quentinrf/fermpi/internal/domain"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS temperatures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	temp_inner REAL NOT NULL,
	temp_outer REAL NOT NULL,
	temp_set REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_temperatures_timestamp ON temperatures(timestamp);

CREATE TABLE IF NOT EXISTS temp_set (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	temp_set REAL NOT NULL,
	th_set REAL NOT NULL,
	th_outer REAL NOT NULL,
	controller_state TEXT
);

CREATE TABLE IF NOT EXISTS creds (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL
);
`

// Store implements domain.Store with SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database file and its schema
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection turns concurrent
	// writers into a queue instead of SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Initialize seeds the default setpoint and the credential if their tables are empty
func (s *Store) Initialize(ctx context.Context, seed *domain.Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewPersistenceError("initialize", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO temp_set (temp_set, th_set, th_outer, controller_state)
		SELECT ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM temp_set)`,
		domain.DefaultTempSet, domain.DefaultThSet, domain.DefaultThOuter, string(domain.ControllerOff),
	); err != nil {
		return domain.NewPersistenceError("initialize setpoint", err)
	}

	if seed != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO creds (username, password_hash)
			SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM creds)`,
			seed.Username, seed.PasswordHash,
		); err != nil {
			return domain.NewPersistenceError("initialize credential", err)
		}
	}

	return domain.NewPersistenceError("initialize", tx.Commit())
}

// Append stores a sample and sets its ID
func (s *Store) Append(ctx context.Context, sample *domain.TemperatureSample) (int64, error) {
	query := `INSERT INTO temperatures (timestamp, temp_inner, temp_outer, temp_set) VALUES (?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		sample.Timestamp.UTC().Format(timeLayout), sample.TempInner, sample.TempOuter, sample.TempSet)
	if err != nil {
		return 0, domain.NewPersistenceError("append sample", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, domain.NewPersistenceError("append sample", fmt.Errorf("failed to get insert id: %w", err))
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
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, domain.NewPersistenceError("query samples", err)
	}
	defer rows.Close()

	samples := make([]*domain.TemperatureSample, 0, n)
	for rows.Next() {
		var sample domain.TemperatureSample
		var timestamp string

		if err := rows.Scan(&sample.ID, &timestamp, &sample.TempInner, &sample.TempOuter, &sample.TempSet); err != nil {
			return nil, domain.NewPersistenceError("scan sample", err)
		}

		sample.Timestamp, err = time.Parse(timeLayout, timestamp)
		if err != nil {
			return nil, domain.NewPersistenceError("parse timestamp", err)
		}

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

// Get returns the first setpoint row, inserting the defaults when the table is empty
func (s *Store) Get(ctx context.Context) (*domain.SetpointConfig, error) {
	cfg, err := s.firstSetpoint(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewPersistenceError("read setpoint", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO temp_set (temp_set, th_set, th_outer)
		SELECT ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM temp_set)`,
		domain.DefaultTempSet, domain.DefaultThSet, domain.DefaultThOuter,
	); err != nil {
		return nil, domain.NewPersistenceError("create default setpoint", err)
	}

	cfg, err = s.firstSetpoint(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("read setpoint", err)
	}
	return cfg, nil
}

// Update replaces all setpoint fields in one transaction
func (s *Store) Update(ctx context.Context, upd domain.SetpointUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewPersistenceError("update setpoint", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO temp_set (temp_set, th_set, th_outer)
		SELECT ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM temp_set)`,
		domain.DefaultTempSet, domain.DefaultThSet, domain.DefaultThOuter,
	); err != nil {
		return domain.NewPersistenceError("update setpoint", err)
	}

	var state any
	if upd.ControllerState != nil {
		state = string(*upd.ControllerState)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE temp_set
		SET temp_set = ?, th_set = ?, th_outer = ?, controller_state = COALESCE(?, controller_state)
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

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return domain.NewPersistenceError("ping", s.db.PingContext(ctx))
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) firstSetpoint(ctx context.Context) (*domain.SetpointConfig, error) {
	query := `SELECT id, temp_set, th_set, th_outer, controller_state FROM temp_set ORDER BY id ASC LIMIT 1`

	var cfg domain.SetpointConfig
	var state sql.NullString
	if err := s.db.QueryRowContext(ctx, query).Scan(&cfg.ID, &cfg.TempSet, &cfg.ThSet, &cfg.ThOuter, &state); err != nil {
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
