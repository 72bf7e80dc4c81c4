package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	defaultIntervalCB            = 30
	defaultConsecutiveFailuresCB = 3

	uniqueViolationCode = "23505"
)

func NewDatabase() (*gorm.DB, error) {
	dsn := GetDSN()

	gormLoggerInstance := gormLogger.Default.LogMode(gormLogger.Silent)

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLoggerInstance,
	})
	if err != nil {
		logging.Logger.Error("Failed to connect to Postgres", zap.String("error", err.Error()))
		return nil, err
	}

	sqldatabase, err := database.DB()
	if err != nil {
		logging.Logger.Error("Failed to get sql.database from GORM", zap.String("error", err.Error()))
		return nil, err
	}

	err = sqldatabase.Ping()
	if err != nil {
		logging.Logger.Error("Failed to ping Postgres database", zap.String("error", err.Error()))
		return nil, err
	}

	logging.Logger.Info("Successfully connected to Postgres")

	return database, nil
}

func GetDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s",
		config.Conf.PostgresHost,
		config.Conf.PostgresUsername,
		config.Conf.PostgresPassword,
		config.Conf.PostgresDatabase,
		config.Conf.PostgresPort,
	)
}

func GetURL() string {
	dbUrl := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.Conf.PostgresUsername, config.Conf.PostgresPassword),
		Host:   fmt.Sprintf("%s:%s", config.Conf.PostgresHost, config.Conf.PostgresPort),
		Path:   config.Conf.PostgresDatabase,
	}
	queries := url.Values{}
	queries.Add("sslmode", "disable")
	dbUrl.RawQuery = queries.Encode()

	return dbUrl.String()
}

// IsUniqueViolation reports whether err is a Postgres unique/primary-key violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsBreakerNeutral reports whether err says nothing about database health: a missing row,
// a unique violation, or a caller that gave up. A deadline still counts as a failure.
func IsBreakerNeutral(err error) bool {
	return err == nil ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, context.Canceled) ||
		IsUniqueViolation(err)
}

// GetCircuitBreakerSettings returns the breaker settings shared by every repository.
// A missing row is an answer, not a failure, so it never counts against the breaker.
func GetCircuitBreakerSettings(name string) gobreaker.Settings {
	interval := config.Conf.DBIntervalCB
	if interval == 0 {
		interval = defaultIntervalCB
	}

	threshold := config.Conf.DBConsecutiveFailuresCB
	if threshold == 0 {
		threshold = defaultConsecutiveFailuresCB
	}

	return gobreaker.Settings{
		Name:     name,
		Interval: time.Duration(interval) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			willTrip := counts.ConsecutiveFailures >= threshold

			if willTrip {
				logging.Logger.Error("Database circuit breaker about to trip",
					zap.String("service", name),
					zap.Uint32("total_requests", counts.Requests),
					zap.Uint32("total_successes", counts.TotalSuccesses),
					zap.Uint32("total_failures", counts.TotalFailures),
					zap.Uint32("consecutive_successes", counts.ConsecutiveSuccesses),
					zap.Uint32("consecutive_failures", counts.ConsecutiveFailures),
					zap.Uint32("threshold", threshold),
				)
			}

			return willTrip
		},
		IsSuccessful: IsBreakerNeutral,
		OnStateChange: func(name string, fromSate, toSate gobreaker.State) {
			logging.Logger.Error("Database circuit breaker state changed",
				zap.String("service", name),
				zap.String("from", fromSate.String()),
				zap.String("to", toSate.String()),
			)

			if toSate == gobreaker.StateOpen {
				prometheusLeadsync.CircuitOpenTotal.WithLabelValues(circuitbreak.DBService).Inc()
				circuitbreak.TriggerError(circuitbreak.DBService)
			}
		},
	}
}
