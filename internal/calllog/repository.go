package calllog

import (
	"context"
	"errors"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidCallLogResult  = errors.New("invalid result type, it should be pointer to CallLog struct")
	ErrInvalidRowCountResult = errors.New("invalid result type, it should be int64 rows affected")
)

type CallLogRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewCallLogRepository(dbConn *gorm.DB) *CallLogRepository {
	cbSettings := database.GetCircuitBreakerSettings("call_log_repository")

	return &CallLogRepository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

// GetCallLogByID returns gorm.ErrRecordNotFound when no row has the given primary id.
func (repository *CallLogRepository) GetCallLogByID(ctx context.Context, id string) (*CallLog, error) {
	return repository.first(ctx, "GetCallLogByID", "id = ?", id)
}

func (repository *CallLogRepository) GetCallLogByLogID(ctx context.Context, logID string) (*CallLog, error) {
	return repository.first(ctx, "GetCallLogByLogID", "log_id = ?", logID)
}

func (repository *CallLogRepository) first(
	ctx context.Context,
	caller, condition, value string,
) (*CallLog, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var callLog CallLog

		err := repository.DBConn.WithContext(ctx).
			Where(condition, value).
			First(&callLog).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logging.Logger.Error("["+caller+"] Failed to fetch call log",
					zap.String("value", value),
					zap.String("error", err.Error()),
					zap.Bool("is_context_error", ctx.Err() != nil),
				)
			}

			return nil, err
		}

		return &callLog, nil
	})
	if err != nil {
		return nil, err
	}

	callLog, ok := result.(*CallLog)
	if !ok {
		return nil, ErrInvalidCallLogResult
	}

	return callLog, nil
}

// CreateCallLog inserts callLog, assigning a new row id when it has none.
func (repository *CallLogRepository) CreateCallLog(ctx context.Context, callLog *CallLog) (*CallLog, error) {
	if callLog.ID == "" {
		callLog.ID = uuid.NewString()
	}

	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).Create(callLog).Error
		if err != nil {
			logging.Logger.Error("[CreateCallLog] Failed to insert call log",
				zap.String("log_id", callLog.LogID),
				zap.String("error", err.Error()),
				zap.Bool("is_unique_violation", database.IsUniqueViolation(err)),
			)

			return nil, err
		}

		return callLog, nil
	})
	if err != nil {
		return nil, err
	}

	created, ok := result.(*CallLog)
	if !ok {
		return nil, ErrInvalidCallLogResult
	}

	return created, nil
}

// UpdateSuccessEvaluation sets success_evaluation only while it is still null and reports
// whether a row was changed.
func (repository *CallLogRepository) UpdateSuccessEvaluation(
	ctx context.Context,
	id string,
	value bool,
) (bool, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		tx := repository.DBConn.WithContext(ctx).
			Model(&CallLog{}).
			Where("id = ? AND success_evaluation IS NULL", id).
			Updates(map[string]any{
				"success_evaluation": value,
				"updated_at":         time.Now(),
			})
		if tx.Error != nil {
			logging.Logger.Error("[UpdateSuccessEvaluation] Failed to patch success evaluation",
				zap.String("id", id),
				zap.String("error", tx.Error.Error()),
			)

			return nil, tx.Error
		}

		return tx.RowsAffected, nil
	})
	if err != nil {
		return false, err
	}

	rowsAffected, ok := result.(int64)
	if !ok {
		return false, ErrInvalidRowCountResult
	}

	return rowsAffected > 0, nil
}

func (repository *CallLogRepository) UpdateTranscriptData(ctx context.Context, id string, data []byte) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).
			Model(&CallLog{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"transcript_data": datatypes.JSON(data),
				"updated_at":      time.Now(),
			}).Error
		if err != nil {
			logging.Logger.Error("[UpdateTranscriptData] Failed to store transcript data",
				zap.String("id", id),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

// FillTranscript sets transcript only while it is still null and reports whether a row was
// changed.
func (repository *CallLogRepository) FillTranscript(ctx context.Context, id string, data []byte) (bool, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		tx := repository.DBConn.WithContext(ctx).
			Model(&CallLog{}).
			Where("id = ? AND transcript IS NULL", id).
			Updates(map[string]any{
				"transcript": datatypes.JSON(data),
				"updated_at": time.Now(),
			})
		if tx.Error != nil {
			logging.Logger.Error("[FillTranscript] Failed to store transcript",
				zap.String("id", id),
				zap.String("error", tx.Error.Error()),
			)

			return nil, tx.Error
		}

		return tx.RowsAffected, nil
	})
	if err != nil {
		return false, err
	}

	rowsAffected, ok := result.(int64)
	if !ok {
		return false, ErrInvalidRowCountResult
	}

	return rowsAffected > 0, nil
}
