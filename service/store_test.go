package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockStore(t *testing.T, opts ...StoreOption) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return NewStore(db, opts...), mock
}

func TestTransaction_BeginFailureIsInfrastructure(t *testing.T) {
	store, mock := setupMockStore(t, WithMaxRetries(0))
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.Transaction(context.Background(), "test.begin", func(tx *gorm.DB) error {
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsDomainError(err))

	var infra *InfrastructureError
	require.ErrorAs(t, err, &infra)
	assert.Equal(t, "test.begin", infra.Op)
}

func TestTransaction_DomainErrorRollsBackWithoutRetry(t *testing.T) {
	store, mock := setupMockStore(t, WithMaxRetries(3))
	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := store.Transaction(context.Background(), "test.domain", func(tx *gorm.DB) error {
		calls++
		return ErrCannotDemoteOwner
	})
	assert.ErrorIs(t, err, ErrCannotDemoteOwner)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RetriesConflicts(t *testing.T) {
	store, mock := setupMockStore(t, WithMaxRetries(3))
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := store.Transaction(context.Background(), "test.conflict", func(tx *gorm.DB) error {
		calls++
		if calls == 1 {
			return &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_ConflictRetriesExhausted(t *testing.T) {
	store, mock := setupMockStore(t, WithMaxRetries(1))
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	calls := 0
	err := store.Transaction(context.Background(), "test.exhausted", func(tx *gorm.DB) error {
		calls++
		return errConflict
	})
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, ErrInfrastructure)
}

func TestTransaction_DeadlineExceeded(t *testing.T) {
	store, mock := setupMockStore(t, WithTimeout(10*time.Millisecond), WithMaxRetries(0))
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), "test.timeout", func(tx *gorm.DB) error {
		<-tx.Statement.Context.Done()
		return tx.Statement.Context.Err()
	})
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(errConflict))
	assert.True(t, isConflict(&mysqldriver.MySQLError{Number: 1205}))
	assert.False(t, isConflict(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, isConflict(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isConflict(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isConflict(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isConflict(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isConflict(errors.New("no such table")))
}

func TestQuery_WrapsStoreErrors(t *testing.T) {
	store, _ := setupMockStore(t)
	err := store.Query(context.Background(), "test.query", func(db *gorm.DB) error {
		return errors.New("broken pipe")
	})
	assert.ErrorIs(t, err, ErrInfrastructure)

	err = store.Query(context.Background(), "test.query", func(db *gorm.DB) error {
		return ErrNotFound
	})
	assert.Equal(t, ErrNotFound, err)
}

func TestHasOwnedLedgersError(t *testing.T) {
	var err error = &HasOwnedLedgersError{Count: 2}
	assert.ErrorIs(t, err, ErrHasOwnedLedgers)
	assert.True(t, IsDomainError(err))
	assert.Contains(t, err.Error(), "(2)")
	assert.ErrorIs(t, ErrAlreadyMember, ErrInsufficientRole)
}
