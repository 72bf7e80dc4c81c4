package healthchecker

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/circuitbreak"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"go.uber.org/zap"
)

type CheckFunc func(ctx context.Context) bool

type Healthchecker struct {
	CtxCancelFunc context.CancelFunc
	ErrorService  string
	Checks        map[string]CheckFunc
	Interval      time.Duration
}

func NewService(ctxCancelFunc context.CancelFunc) *Healthchecker {
	interval := time.Duration(config.Conf.HealthCheckerMonitorInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	return &Healthchecker{
		CtxCancelFunc: ctxCancelFunc,
		Checks: map[string]CheckFunc{
			circuitbreak.DBService:            CheckDB,
			circuitbreak.MinioService:         CheckMinio,
			circuitbreak.KafkaProducerService: CheckKafkaProducer,
		},
		Interval: interval,
	}
}

// Monitor cancels the app context on the first opened breaker. It returns early when ctx is
// done for any other reason.
func (h *Healthchecker) Monitor(ctx context.Context) {
	logging.Logger.Info("health checker monitor start successfully")

	select {
	case <-ctx.Done():
		return
	case serviceName := <-circuitbreak.CircuitBreakChan:
		logging.Logger.Info("circuit break happened", zap.String("service", serviceName))
		h.ErrorService = serviceName
		h.CtxCancelFunc()
	}
}

// Check blocks until the failed service is healthy again. It returns false if ctx ends first.
func (h *Healthchecker) Check(ctx context.Context) bool {
	if h.ErrorService == "" {
		logging.Logger.Error("healthchecker error server is empty")
		return true
	}

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		if h.checkErrorService(ctx) {
			h.ErrorService = ""
			return true
		}
	}
}

func (h *Healthchecker) checkErrorService(ctx context.Context) bool {
	check, ok := h.Checks[h.ErrorService]
	if !ok {
		logging.Logger.Warn("Unknown service in checkErrorService", zap.String("service", h.ErrorService))
		return false
	}

	isHealthy := check(ctx)
	if isHealthy {
		logging.Logger.Info(h.ErrorService + " service back healthy")
	}

	return isHealthy
}
