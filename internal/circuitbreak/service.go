package circuitbreak

import (
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"go.uber.org/zap"
)

var CircuitBreakChan chan string

const (
	DBService            = "database"
	MinioService         = "minio"
	KafkaProducerService = "kafka_producer"
)

func Init() {
	CircuitBreakChan = make(chan string, 1)
}

// TriggerError reports an opened breaker to the health checker. A second report while one is
// already pending is dropped: the app restarts on the first.
func TriggerError(service string) {
	if CircuitBreakChan == nil {
		logging.Logger.Warn("circuit break reported before app initialization", zap.String("service", service))
		return
	}

	select {
	case CircuitBreakChan <- service:
	default:
		logging.Logger.Warn("circuit break already pending, dropping report", zap.String("service", service))
	}
}

// ReportSinkOpen handles an opened breaker of an after-ack sink. Only a required sink restarts
// the app; an optional one keeps failing fast until its breaker half-opens. It reports whether
// a restart was requested.
func ReportSinkOpen(service string, required bool) bool {
	prometheusLeadsync.CircuitOpenTotal.WithLabelValues(service).Inc()

	if !required {
		logging.Logger.Warn("optional sink unavailable, webhook intake continues", zap.String("service", service))
		return false
	}

	TriggerError(service)

	return true
}
