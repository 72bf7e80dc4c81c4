package deadletter

import (
	"context"
	"errors"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidDeadLetterResult      = errors.New("invalid result type, it should be pointer to WebhookDeadLetter")
	ErrInvalidDeadLetterSliceResult = errors.New("invalid result type, it should be slice of WebhookDeadLetter")
)

type DeadLetterRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewRepository(dbConn *gorm.DB) *DeadLetterRepository {
	cbSettings := database.GetCircuitBreakerSettings("dead_letter_repository")

	return &DeadLetterRepository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

// CreateDeadLetter stores a failed delivery. Deliveries of the same call collapse into one
// pending row; anonymous deliveries always get a row of their own.
func (dlRepository *DeadLetterRepository) CreateDeadLetter(
	ctx context.Context,
	callID string,
	body []byte,
	errMsg string,
) (*WebhookDeadLetter, error) {
	result, err := dlRepository.CircuitBreaker.Execute(func() (any, error) {
		now := time.Now()
		deadLetter := WebhookDeadLetter{
			CallID:      callID,
			Payload:     body,
			Error:       errMsg,
			Status:      StatusPending,
			LastRetryAt: &now,
		}

		// The request context may already be gone when the handler gives up on a delivery.
		dbConn := dlRepository.DBConn.WithContext(context.WithoutCancel(ctx))

		var err error
		if callID == "" {
			deadLetter.ID = uuid.NewString()
			err = dbConn.Create(&deadLetter).Error
		} else {
			err = dbConn.Where("call_id = ?", callID).
				Attrs(map[string]any{"id": uuid.NewString()}).
				Assign(map[string]any{
					"payload":       deadLetter.Payload,
					"error":         errMsg,
					"status":        StatusPending,
					"last_retry_at": &now,
				}).
				FirstOrCreate(&deadLetter).Error
		}

		if err != nil {
			logging.Logger.Error("[CreateDeadLetter] Failed to create dead letter record",
				zap.String("call_id", callID),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return &deadLetter, nil
	})
	if err != nil {
		return nil, err
	}

	deadLetter, ok := result.(*WebhookDeadLetter)
	if !ok {
		return nil, ErrInvalidDeadLetterResult
	}

	return deadLetter, nil
}

const defaultInProgressLease = 15 * time.Minute

// inProgressLease is how long a claimed row may stay in_progress before another worker may
// take it over.
func inProgressLease() time.Duration {
	if config.Conf.DeadLetterLease <= 0 {
		return defaultInProgressLease
	}

	return time.Duration(config.Conf.DeadLetterLease) * time.Minute
}

// GetPendingDeadLetters returns the oldest rows that are due: pending ones whose retry delay
// has passed and in_progress ones whose claim has expired.
func (dlRepository *DeadLetterRepository) GetPendingDeadLetters(ctx context.Context) ([]WebhookDeadLetter, error) {
	result, err := dlRepository.CircuitBreaker.Execute(func() (any, error) {
		var records []WebhookDeadLetter

		now := time.Now()

		err := dlRepository.DBConn.WithContext(ctx).
			Where(
				"((status = ? AND last_retry_at <= ?) OR (status = ? AND last_retry_at <= ?)) AND retry_count < ?",
				StatusPending,
				now.Add(-time.Duration(config.Conf.DeadLetterRetryDelay)*time.Minute),
				StatusInProgress,
				now.Add(-inProgressLease()),
				config.Conf.DeadLetterMaxRetries,
			).
			Order("created_at ASC").
			Limit(config.Conf.DeadLetterLimit).
			Find(&records).Error
		if err != nil {
			logging.Logger.Error("[GetPendingDeadLetters] Failed to fetch dead letters", zap.String("error", err.Error()))
			return nil, err
		}

		return records, nil
	})
	if err != nil {
		return nil, err
	}

	records, ok := result.([]WebhookDeadLetter)
	if !ok {
		return nil, ErrInvalidDeadLetterSliceResult
	}

	return records, nil
}

// MarkInProgress claims a pending row, or an in_progress row whose claim has expired, and
// stamps last_retry_at as the start of the new claim. It returns false when another worker
// holds the row.
func (dlRepository *DeadLetterRepository) MarkInProgress(ctx context.Context, deadLetter *WebhookDeadLetter) (bool, error) {
	result, err := dlRepository.CircuitBreaker.Execute(func() (any, error) {
		now := time.Now()

		tx := dlRepository.DBConn.WithContext(ctx).
			Model(&WebhookDeadLetter{}).
			Where(
				"id = ? AND (status = ? OR (status = ? AND last_retry_at <= ?))",
				deadLetter.ID,
				StatusPending,
				StatusInProgress,
				now.Add(-inProgressLease()),
			).
			Updates(map[string]any{
				"status":        StatusInProgress,
				"last_retry_at": now,
			})
		if tx.Error != nil {
			return nil, tx.Error
		}

		return tx.RowsAffected > 0, nil
	})
	if err != nil {
		return false, err
	}

	claimed, _ := result.(bool)
	if claimed {
		deadLetter.Status = StatusInProgress
	}

	return claimed, nil
}

func (dlRepository *DeadLetterRepository) IncreaseRetryCount(
	ctx context.Context,
	deadLetter *WebhookDeadLetter,
	errMsg string,
) error {
	_, err := dlRepository.CircuitBreaker.Execute(func() (any, error) {
		updates := map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry_at": time.Now(),
			"status":        StatusPending,
			"error":         errMsg,
		}

		err := dlRepository.DBConn.WithContext(ctx).
			Model(&WebhookDeadLetter{}).
			Where("id = ?", deadLetter.ID).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[IncreaseRetryCount] Failed to increase dead letter retry count",
				zap.String("id", deadLetter.ID),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

func (dlRepository *DeadLetterRepository) DeleteDeadLetter(ctx context.Context, deadLetter *WebhookDeadLetter) error {
	_, err := dlRepository.CircuitBreaker.Execute(func() (any, error) {
		err := dlRepository.DBConn.WithContext(ctx).
			Where("id = ?", deadLetter.ID).
			Delete(&WebhookDeadLetter{}).
			Error

		return nil, err
	})

	return err
}
