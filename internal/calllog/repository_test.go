package calllog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*CallLogRepository, sqlmock.Sqlmock) {
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

	return NewCallLogRepository(gormDB), mock
}

func TestCallLogRepository_GetCallLogByLogID(t *testing.T) {
	repository, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "log_id", "assistant_id", "success_evaluation"}).
		AddRow("row-1", "call-001", "assistant-1", nil)
	mock.ExpectQuery(`SELECT \* FROM "vapi_call_logs" WHERE log_id = \$1`).
		WithArgs("call-001", 1).
		WillReturnRows(rows)

	callLog, err := repository.GetCallLogByLogID(context.Background(), "call-001")
	require.NoError(t, err)
	assert.Equal(t, "row-1", callLog.ID)
	assert.Equal(t, "assistant-1", callLog.AssistantID)
	assert.Nil(t, callLog.SuccessEvaluation)
}

func TestCallLogRepository_NotFoundDoesNotTripBreaker(t *testing.T) {
	repository, mock := newMockRepository(t)

	for range 5 {
		mock.ExpectQuery(`SELECT \* FROM "vapi_call_logs" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	for range 5 {
		_, err := repository.GetCallLogByID(context.Background(), "missing")
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}

	assert.Equal(t, uint32(0), repository.CircuitBreaker.Counts().ConsecutiveFailures)
}

func TestCallLogRepository_UpdateSuccessEvaluation(t *testing.T) {
	testCases := []struct {
		name         string
		rowsAffected int64
		expected     bool
	}{
		{name: "null value is filled", rowsAffected: 1, expected: true},
		{name: "existing value is kept", rowsAffected: 0, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repository, mock := newMockRepository(t)

			mock.ExpectExec(`UPDATE "vapi_call_logs" SET .*"success_evaluation"=.* WHERE id = \$\d+ AND success_evaluation IS NULL`).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			applied, err := repository.UpdateSuccessEvaluation(context.Background(), "row-1", true)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, applied)
		})
	}
}

func TestCallLogRepository_FillTranscript(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "vapi_call_logs" SET "transcript"=\$1,"updated_at"=\$2 WHERE id = \$3 AND transcript IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repository.FillTranscript(context.Background(), "row-1", []byte(`[{"text":"hello"}]`))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestCallLogRepository_UpdateTranscriptData(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "vapi_call_logs" SET "transcript_data"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repository.UpdateTranscriptData(context.Background(), "row-1", []byte(`{"car_brand":"Toyota"}`))
	require.NoError(t, err)
}

func TestCallLogRepository_UpdateTranscriptDataError(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "vapi_call_logs"`).WillReturnError(errors.New("connection reset"))

	err := repository.UpdateTranscriptData(context.Background(), "row-1", []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, uint32(1), repository.CircuitBreaker.Counts().ConsecutiveFailures)
}
