package healthchecker

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/kafka"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"go.uber.org/zap"
)

// CheckKafkaProducer only proves the brokers accept a new producer; nothing is written to the
// outcome topic.
func CheckKafkaProducer(_ context.Context) bool {
	kafkaProducer, err := kafka.NewProducer()
	if err != nil {
		logging.Logger.Error("failed to create new kafka producer client", zap.String("error", err.Error()))
		return false
	}

	return kafkaProducer.Close() == nil
}
