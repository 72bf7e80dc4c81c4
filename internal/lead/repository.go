package lead

import (
	"context"
	"errors"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidLeadSliceResult = errors.New("invalid result type, it should be slice of Lead")

type LeadRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewLeadRepository(dbConn *gorm.DB) *LeadRepository {
	cbSettings := database.GetCircuitBreakerSettings("lead_repository")

	return &LeadRepository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

// FindLeadsBySuffix returns up to limit leads whose telefono ends with digits, either as
// stored or with its formatting stripped, lowest id first.
func (repository *LeadRepository) FindLeadsBySuffix(ctx context.Context, digits string, limit int) ([]Lead, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var leads []Lead

		err := repository.DBConn.WithContext(ctx).
			Where(
				"telefono ILIKE ? OR regexp_replace(telefono, '\\D', '', 'g') LIKE ?",
				"%"+digits,
				"%"+digits,
			).
			Order("id ASC").
			Limit(limit).
			Find(&leads).Error
		if err != nil {
			logging.Logger.Error("[FindLeadsBySuffix] Failed to search leads by phone",
				zap.String("digits", digits),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return leads, nil
	})
	if err != nil {
		return nil, err
	}

	leads, ok := result.([]Lead)
	if !ok {
		return nil, ErrInvalidLeadSliceResult
	}

	return leads, nil
}

// UpdateCallStats increments call_count in place and records the latest call. It returns
// gorm.ErrRecordNotFound when the lead no longer exists.
func (repository *LeadRepository) UpdateCallStats(
	ctx context.Context,
	leadID int64,
	callID string,
	callDate time.Time,
) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		tx := repository.DBConn.WithContext(ctx).
			Model(&Lead{}).
			Where("id = ?", leadID).
			Updates(map[string]any{
				"call_count":     gorm.Expr("COALESCE(call_count, 0) + 1"),
				"last_call_id":   callID,
				"last_call_date": callDate,
			})
		if tx.Error != nil {
			logging.Logger.Error("[UpdateCallStats] Failed to update lead call stats",
				zap.Int64("lead_id", leadID),
				zap.String("error", tx.Error.Error()),
			)

			return nil, tx.Error
		}

		if tx.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}

		return nil, nil
	})

	return err
}
