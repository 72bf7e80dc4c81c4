package deadletter

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

type DeadLetterWorker struct {
	WorkerPool *ants.Pool
	DLService  *DeadLetterService
	Interval   time.Duration
}

func NewWorker(dlService *DeadLetterService) (*DeadLetterWorker, error) {
	workerPool, err := ants.NewPool(config.Conf.DeadLetterPoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}

	interval := time.Duration(config.Conf.DeadLetterInterval) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}

	return &DeadLetterWorker{
		WorkerPool: workerPool,
		DLService:  dlService,
		Interval:   interval,
	}, nil
}

func (dlWorker *DeadLetterWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(dlWorker.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dlWorker.ProcessPending(ctx)
		}
	}
}

// ProcessPending submits every due dead letter to the pool without waiting for them.
func (dlWorker *DeadLetterWorker) ProcessPending(ctx context.Context) {
	deadLetters, err := dlWorker.DLService.DLRepository.GetPendingDeadLetters(ctx)
	if err != nil {
		return
	}

	if len(deadLetters) == 0 {
		logging.Logger.Debug("[ProcessPending] No dead letters to replay")
		return
	}

	logging.Logger.Info("[ProcessPending] Replaying dead letters", zap.Int("count", len(deadLetters)))

	for idx := range deadLetters {
		deadLetter := deadLetters[idx]

		err := dlWorker.WorkerPool.Submit(func() {
			dlWorker.DLService.ProcessDeadLetter(ctx, &deadLetter)
		})
		if err != nil {
			logging.Logger.Error("[ProcessPending] Failed to submit dead letter to worker pool",
				zap.String("id", deadLetter.ID),
				zap.String("error", err.Error()),
			)
		}
	}
}

func (dlWorker *DeadLetterWorker) Close() {
	dlWorker.WorkerPool.Release()
}
