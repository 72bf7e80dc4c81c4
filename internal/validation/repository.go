package validation

import (
	"context"
	"errors"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidExistsResult = errors.New("invalid result type, it should be bool")

// Fact columns keep their stored value when a later call did not mention the fact.
var coalescedColumns = []string{
	"car_brand", "car_model", "car_year", "custodio_name", "security_exp", "sedena_id",
}

var overwrittenColumns = []string{
	"call_id", "phone_number", "phone_number_intl", "vapi_call_data", "updated_at",
}

type ValidatedLeadRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewValidatedLeadRepository(dbConn *gorm.DB) *ValidatedLeadRepository {
	cbSettings := database.GetCircuitBreakerSettings("validated_lead_repository")

	return &ValidatedLeadRepository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

func (repository *ValidatedLeadRepository) Exists(ctx context.Context, id int64) (bool, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var count int64

		err := repository.DBConn.WithContext(ctx).
			Model(&ValidatedLead{}).
			Where("id = ?", id).
			Count(&count).Error
		if err != nil {
			logging.Logger.Error("[Exists] Failed to check validated lead",
				zap.Int64("id", id),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return count > 0, nil
	})
	if err != nil {
		return false, err
	}

	exists, ok := result.(bool)
	if !ok {
		return false, ErrInvalidExistsResult
	}

	return exists, nil
}

// Upsert writes record in one statement keyed on id.
func (repository *ValidatedLeadRepository) Upsert(ctx context.Context, record *ValidatedLead) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: upsertAssignments(),
			}).
			Create(record).Error
		if err != nil {
			logging.Logger.Error("[Upsert] Failed to upsert validated lead",
				zap.Int64("id", record.ID),
				zap.String("error", err.Error()),
				zap.Bool("is_unique_violation", database.IsUniqueViolation(err)),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

func upsertAssignments() clause.Set {
	assignments := make(clause.Set, 0, len(coalescedColumns)+len(overwrittenColumns))

	for _, column := range coalescedColumns {
		assignments = append(assignments, clause.Assignment{
			Column: clause.Column{Name: column},
			Value:  gorm.Expr("COALESCE(EXCLUDED." + column + ", " + ValidatedLead{}.TableName() + "." + column + ")"),
		})
	}

	return append(assignments, clause.AssignmentColumns(overwrittenColumns)...)
}
