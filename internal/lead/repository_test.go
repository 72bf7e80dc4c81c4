package lead

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*LeadRepository, sqlmock.Sqlmock) {
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

	return NewLeadRepository(gormDB), mock
}

func TestLeadRepository_FindLeadsBySuffix(t *testing.T) {
	repository, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "nombre", "telefono", "call_count"}).
		AddRow(int64(3), "Juan Perez", "55 5000 1111", nil).
		AddRow(int64(9), "Ana Ruiz", "5215550001111", 4)

	mock.ExpectQuery(
		`SELECT \* FROM "leads" WHERE \(?telefono ILIKE \$1 OR regexp_replace\(telefono, '\\D', '', 'g'\) LIKE \$2\)? ORDER BY id ASC LIMIT \$3`,
	).
		WithArgs("%5550001111", "%5550001111", 2).
		WillReturnRows(rows)

	leads, err := repository.FindLeadsBySuffix(context.Background(), "5550001111", 2)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, int64(3), leads[0].ID)
	assert.Nil(t, leads[0].CallCount)
	assert.Equal(t, 4, *leads[1].CallCount)
}

func TestLeadRepository_UpdateCallStats(t *testing.T) {
	repository, mock := newMockRepository(t)
	callDate := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(
		`UPDATE "leads" SET "call_count"=COALESCE\(call_count, 0\) \+ 1,"last_call_date"=\$1,"last_call_id"=\$2 WHERE id = \$3`,
	).
		WithArgs(callDate, "call-001", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repository.UpdateCallStats(context.Background(), 5, "call-001", callDate)
	require.NoError(t, err)
}

func TestLeadRepository_UpdateCallStatsMissingLead(t *testing.T) {
	repository, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "leads"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repository.UpdateCallStats(context.Background(), 5, "call-001", time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
