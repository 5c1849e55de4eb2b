package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/fermpi/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, mock, New(db)
}

var setpointColumns = []string{"id", "temp_set", "th_set", "th_outer", "controller_state"}

func TestAppend_Success(t *testing.T) {
	_, mock, store := setupMockDB(t)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sample := domain.NewTemperatureSample(19.2, 17.8, 18.0, ts)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO temperatures")).
		WithArgs(ts, 19.2, 17.8, 18.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.Append(context.Background(), sample)

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), sample.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_StorageUnavailable(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO temperatures")).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Append(context.Background(), domain.NewTemperatureSample(1, 2, 3, time.Now()))

	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSamples_Success(t *testing.T) {
	_, mock, store := setupMockDB(t)

	newer := time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC)
	older := newer.Add(-time.Minute)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "temp_inner", "temp_outer", "temp_set"}).
		AddRow(int64(2), newer, 19.5, 17.0, 18.0).
		AddRow(int64(1), older, 19.2, 17.8, 18.0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM temperatures")).
		WithArgs(10).
		WillReturnRows(rows)

	samples, err := store.RecentSamples(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, int64(2), samples[0].ID)
	assert.Equal(t, 19.5, samples[0].TempInner)
	assert.True(t, samples[1].Timestamp.Equal(older))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSamples_ZeroSkipsQuery(t *testing.T) {
	_, mock, store := setupMockDB(t)

	samples, err := store.RecentSamples(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSamples(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM temperatures")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := store.CountSamples(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ExistingRow(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM temp_set")).
		WillReturnRows(sqlmock.NewRows(setpointColumns).AddRow(int64(1), 20.0, 2.0, 6.0, "on"))

	cfg, err := store.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "20,2,6", cfg.Triple())
	require.NotNil(t, cfg.ControllerState)
	assert.Equal(t, domain.ControllerOn, *cfg.ControllerState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_CreatesDefaultWhenEmpty(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM temp_set")).
		WillReturnRows(sqlmock.NewRows(setpointColumns))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO temp_set")).
		WithArgs(18.0, 1.0, 5.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM temp_set")).
		WillReturnRows(sqlmock.NewRows(setpointColumns).AddRow(int64(1), 18.0, 1.0, 5.0, nil))

	cfg, err := store.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "18,1,5", cfg.Triple())
	assert.Nil(t, cfg.ControllerState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Success(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE temp_set")).
		WithArgs(20.0, 2.0, 6.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Update(context.Background(), domain.SetpointUpdate{TempSet: 20, ThSet: 2, ThOuter: 6})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_CommitFailureRollsBack(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE temp_set")).
		WillReturnError(errors.New("could not serialize access"))
	mock.ExpectRollback()

	err := store.Update(context.Background(), domain.SetpointUpdate{TempSet: 20, ThSet: 2, ThOuter: 6})

	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ValidationNeverTouchesDatabase(t *testing.T) {
	_, mock, store := setupMockDB(t)

	bogus := domain.ControllerState("maybe")
	err := store.Update(context.Background(), domain.SetpointUpdate{TempSet: 20, ThSet: 2, ThOuter: 6, ControllerState: &bogus})

	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitialize_SeedsOnlyMissingRows(t *testing.T) {
	_, mock, store := setupMockDB(t)

	seed := &domain.Credential{Username: "brewer", PasswordHash: "$2a$10$hash"}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS temperatures")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE temp_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO temp_set")).
		WithArgs(18.0, 1.0, 5.0, "off").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE creds")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO creds")).
		WithArgs("brewer", "$2a$10$hash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Initialize(context.Background(), seed)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredential_NotFound(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM creds")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}))

	_, err := store.Credential(context.Background())

	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
