// Package leadsync wires the webhook pipeline, its HTTP surface and its background workers.
package leadsync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/deadletter"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/healthchecker"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/kafka"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/lead"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/minio"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/validation"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Leadsync struct {
	DBConn               *gorm.DB
	MinioClient          *minio.MinioClient
	KafkaProducer        *kafka.Producer
	WorkerPool           *ants.Pool
	Dispatcher           *OutcomeDispatcher
	Orchestrator         *webhook.Orchestrator
	DeadLetterService    *deadletter.DeadLetterService
	DeadLetterWorker     *deadletter.DeadLetterWorker
	HealthCheckerService *healthchecker.Healthchecker
	Server               *http.Server
}

func NewApp(ctxCancelFun context.CancelFunc) (*Leadsync, error) {
	logging.Logger.Info("[NewApp] Initializing Leadsync application...")

	logging.Logger.Info("[NewApp] Initializing circuit breakers...")
	circuitbreak.Init()

	healthcheckerService := healthchecker.NewService(ctxCancelFun)

	dbConn, err := database.NewDatabase()
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to initialize database", zap.String("error", err.Error()))
		return nil, err
	}

	logging.Logger.Info("[NewApp] Database connection established")

	minioClient, kafkaProducer, err := initializeSinks()
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("[NewApp] Creating worker pool", zap.Int("pool_size", config.Conf.PoolSize))

	workerPool, err := ants.NewPool(config.Conf.PoolSize, ants.WithPreAlloc(true))
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create worker pool", zap.String("error", err.Error()))
		return nil, err
	}

	dispatcher := &OutcomeDispatcher{WorkerPool: workerPool}
	if kafkaProducer != nil {
		dispatcher.Publisher = kafka.NewOutcomePublisher(kafkaProducer, config.Conf.KafkaCallLogTopic)
	}

	if minioClient != nil {
		dispatcher.Archive = minioClient
	}

	orchestrator := NewOrchestrator(dbConn)

	deadletterService := deadletter.NewService(deadletter.NewRepository(dbConn), orchestrator, dispatcher.Dispatch)

	deadletterWorker, err := deadletter.NewWorker(deadletterService)
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create dead letter worker", zap.String("error", err.Error()))
		return nil, err
	}

	logging.Logger.Info("[NewApp] Dead letter worker created")

	timeout := time.Duration(config.Conf.HTTPTimeout) * time.Second

	handler := &WebhookHandler{
		Pipeline:       orchestrator,
		DeadLetters:    deadletterService,
		OnOutcome:      dispatcher.Dispatch,
		MaxBodyBytes:   config.Conf.HTTPMaxBodyBytes,
		ProcessTimeout: timeout,
	}

	server := &http.Server{
		Addr:              ":" + config.Conf.HTTPPort,
		Handler:           NewRouter(handler, config.Conf.WebhookPath),
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       timeout,
	}

	return &Leadsync{
		DBConn:               dbConn,
		MinioClient:          minioClient,
		KafkaProducer:        kafkaProducer,
		WorkerPool:           workerPool,
		Dispatcher:           dispatcher,
		Orchestrator:         orchestrator,
		DeadLetterService:    deadletterService,
		DeadLetterWorker:     deadletterWorker,
		HealthCheckerService: healthcheckerService,
		Server:               server,
	}, nil
}

// NewOrchestrator builds the webhook pipeline on top of dbConn.
func NewOrchestrator(dbConn *gorm.DB) *webhook.Orchestrator {
	defaults := payload.Defaults{
		AssistantID:    config.Conf.DefaultAssistantID,
		OrganizationID: config.Conf.DefaultOrganizationID,
	}

	callLogService := calllog.NewService(calllog.NewCallLogRepository(dbConn), defaults)
	leadRepository := lead.NewLeadRepository(dbConn)
	matcher := lead.NewMatcher(leadRepository, config.Conf.PhoneMatchDigits)
	reconciler := validation.NewReconciler(
		matcher,
		validation.NewValidatedLeadRepository(dbConn),
		config.Conf.PhoneCountryCode,
		config.Conf.PhoneMatchDigits,
	)
	updater := lead.NewUpdater(matcher, leadRepository, reconciler)

	return webhook.NewOrchestrator(callLogService, updater, prometheusLeadsync.ObserveStage)
}

func initializeSinks() (*minio.MinioClient, *kafka.Producer, error) {
	var (
		minioClient   *minio.MinioClient
		kafkaProducer *kafka.Producer
		err           error
	)

	if config.Conf.MinioEnabled {
		minioClient, err = minio.NewMinioClient()
		if err != nil {
			logging.Logger.Error("[NewApp] Failed to initialize Minio client", zap.String("error", err.Error()))
			return nil, nil, err
		}

		logging.Logger.Info("[NewApp] Minio client created")
	}

	if config.Conf.KafkaEnabled {
		kafkaProducer, err = kafka.NewProducer()
		if err != nil {
			logging.Logger.Error("[NewApp] Failed to create Kafka producer", zap.String("error", err.Error()))
			return nil, nil, err
		}

		logging.Logger.Info("[NewApp] Kafka producer created")
	}

	return minioClient, kafkaProducer, nil
}

// Run serves webhooks until ctx is canceled, either by the caller or by an opened breaker.
func (app *Leadsync) Run(ctx context.Context) error {
	logging.Logger.Info("[Run] Starting app goroutines...")

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		app.HealthCheckerService.Monitor(groupCtx)
		return nil
	})

	group.Go(func() error {
		app.DeadLetterWorker.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		logging.Logger.Info("[Run] Starting HTTP server", zap.String("addr", app.Server.Addr))

		err := app.Server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Error("[Run] HTTP server failed", zap.String("error", err.Error()))
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx),
			time.Duration(config.Conf.HTTPShutdownTimeout)*time.Second,
		)
		defer cancel()

		logging.Logger.Warn("[Run] Context canceled, shutting down HTTP server...")

		return app.Server.Shutdown(shutdownCtx)
	})

	err := group.Wait()

	app.shutdown()

	return err
}

func (app *Leadsync) shutdown() {
	logging.Logger.Info("[Run] Releasing worker pools...",
		zap.Int("running_workers", app.WorkerPool.Running()),
		zap.Int("free_workers", app.WorkerPool.Free()),
	)

	app.WorkerPool.Release()
	app.DeadLetterWorker.Close()

	if app.KafkaProducer != nil {
		err := app.KafkaProducer.Close()
		if err != nil {
			logging.Logger.Error("[Run] Failed to close producer", zap.String("error", err.Error()))
		}
	}

	sqlDB, err := app.DBConn.DB()
	if err == nil {
		err = sqlDB.Close()
	}

	if err != nil {
		logging.Logger.Error("[Run] Failed to close database", zap.String("error", err.Error()))
	}

	logging.Logger.Info("[Run] ===== App shutdown complete =====")
}
