package deadletter

import (
	"context"
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*DeadLetterRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return NewRepository(gormDB), mock
}

func TestDeadLetterRepository_GetPendingDeadLetters(t *testing.T) {
	config.Conf.DeadLetterRetryDelay = 5
	config.Conf.DeadLetterMaxRetries = 3
	config.Conf.DeadLetterLimit = 10

	repository, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "call_id", "payload", "status", "retry_count"}).
		AddRow("dl-1", "call-001", []byte(`{"id":"call-001"}`), StatusPending, 1)
	mock.ExpectQuery(`SELECT \* FROM "webhook_dl" WHERE \(\(status = \$1 AND last_retry_at <= \$2\) OR \(status = \$3 AND last_retry_at <= \$4\)\) AND retry_count < \$5 ORDER BY created_at ASC LIMIT \$6`).
		WithArgs(StatusPending, sqlmock.AnyArg(), StatusInProgress, sqlmock.AnyArg(), 3, 10).
		WillReturnRows(rows)

	records, err := repository.GetPendingDeadLetters(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "call-001", records[0].CallID)
	assert.Equal(t, 1, records[0].RetryCount)
}

func TestDeadLetterRepository_MarkInProgress(t *testing.T) {
	testCases := []struct {
		name         string
		rowsAffected int64
		claimed      bool
		status       string
	}{
		{name: "pending or expired row is claimed", rowsAffected: 1, claimed: true, status: StatusInProgress},
		{name: "row held by another worker", rowsAffected: 0, claimed: false, status: StatusPending},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repository, mock := newMockRepository(t)

			mock.ExpectExec(`UPDATE "webhook_dl" SET "last_retry_at"=\$1,"status"=\$2 WHERE id = \$3 AND \(status = \$4 OR \(status = \$5 AND last_retry_at <= \$6\)\)`).
				WithArgs(sqlmock.AnyArg(), StatusInProgress, "dl-1", StatusPending, StatusInProgress, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			deadLetter := &WebhookDeadLetter{ID: "dl-1", Status: StatusPending}

			claimed, err := repository.MarkInProgress(context.Background(), deadLetter)
			require.NoError(t, err)
			assert.Equal(t, tc.claimed, claimed)
			assert.Equal(t, tc.status, deadLetter.Status)
		})
	}
}

func TestDeadLetterRepository_DeleteDeadLetter(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM "webhook_dl" WHERE id = \$1`).
		WithArgs("dl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repository.DeleteDeadLetter(context.Background(), &WebhookDeadLetter{ID: "dl-1"})
	require.NoError(t, err)
}

func TestDeadLetterRepository_IncreaseRetryCount(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "webhook_dl" SET .*"retry_count"=retry_count \+ 1.* WHERE id = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repository.IncreaseRetryCount(context.Background(), &WebhookDeadLetter{ID: "dl-1"}, "boom")
	require.NoError(t, err)
}

func TestDeadLetterRepository_ErrorsCountAsBreakerFailures(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM "webhook_dl"`).WillReturnError(gorm.ErrInvalidDB)

	err := repository.DeleteDeadLetter(context.Background(), &WebhookDeadLetter{ID: "dl-1"})
	require.Error(t, err)
	assert.Equal(t, uint32(1), repository.CircuitBreaker.Counts().ConsecutiveFailures)
}
