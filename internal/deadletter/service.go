// Package deadletter parks webhook deliveries that could not be recorded and replays them.
package deadletter

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"go.uber.org/zap"
)

type Store interface {
	CreateDeadLetter(ctx context.Context, callID string, body []byte, errMsg string) (*WebhookDeadLetter, error)
	GetPendingDeadLetters(ctx context.Context) ([]WebhookDeadLetter, error)
	MarkInProgress(ctx context.Context, deadLetter *WebhookDeadLetter) (bool, error)
	IncreaseRetryCount(ctx context.Context, deadLetter *WebhookDeadLetter, errMsg string) error
	DeleteDeadLetter(ctx context.Context, deadLetter *WebhookDeadLetter) error
}

type Processor interface {
	Process(ctx context.Context, p payload.Payload) (*webhook.Outcome, error)
}

// OutcomeHandler receives the outcome of every successful replay.
type OutcomeHandler func(ctx context.Context, outcome *webhook.Outcome)

type DeadLetterService struct {
	DLRepository Store
	Processor    Processor
	OnOutcome    OutcomeHandler
}

func NewService(dlRepository Store, processor Processor, onOutcome OutcomeHandler) *DeadLetterService {
	return &DeadLetterService{
		DLRepository: dlRepository,
		Processor:    processor,
		OnOutcome:    onOutcome,
	}
}

// MarkDelivery parks body for replay. NUL escapes are dropped first since jsonb rejects them.
func (dlService *DeadLetterService) MarkDelivery(ctx context.Context, callID string, body []byte, errMsg string) error {
	deadLetter, err := dlService.DLRepository.CreateDeadLetter(ctx, callID, payload.SanitizeJSON(body), errMsg)
	if err != nil {
		return err
	}

	logging.Logger.Info("[MarkDelivery] Delivery marked as dead letter",
		zap.String("id", deadLetter.ID),
		zap.String("call_id", callID),
	)

	return nil
}

// ProcessDeadLetter replays one parked delivery through the pipeline. Success deletes the
// row; failure puts it back to pending with its retry count raised.
func (dlService *DeadLetterService) ProcessDeadLetter(ctx context.Context, deadLetter *WebhookDeadLetter) {
	claimed, err := dlService.DLRepository.MarkInProgress(ctx, deadLetter)
	if err != nil {
		logging.Logger.Warn("[ProcessDeadLetter] Failed to claim dead letter",
			zap.String("id", deadLetter.ID),
			zap.String("error", err.Error()),
		)

		return
	}

	if !claimed {
		return
	}

	p, err := payload.Parse(deadLetter.Payload)
	if err != nil {
		// The body was accepted once, so this only happens if the row was edited by hand.
		logging.Logger.Error("[ProcessDeadLetter] Stored payload is not a JSON object",
			zap.String("id", deadLetter.ID),
			zap.String("error", err.Error()),
		)
		dlService.scheduleRetry(ctx, deadLetter, err)

		return
	}

	outcome, err := dlService.Processor.Process(ctx, p)
	if err != nil {
		logging.Logger.Error("[ProcessDeadLetter] Failed to replay delivery",
			zap.String("id", deadLetter.ID),
			zap.String("call_id", deadLetter.CallID),
			zap.Int("retry_count", deadLetter.RetryCount),
			zap.String("error", err.Error()),
		)
		dlService.scheduleRetry(ctx, deadLetter, err)
		prometheusLeadsync.DeadLetterTotal.WithLabelValues("retried").Inc()

		return
	}

	prometheusLeadsync.DeadLetterTotal.WithLabelValues("replayed").Inc()
	logging.Logger.Info("[ProcessDeadLetter] Delivery replayed successfully",
		zap.String("id", deadLetter.ID),
		zap.String("log_id", outcome.CallLog.LogID),
	)

	if dlService.OnOutcome != nil {
		dlService.OnOutcome(ctx, outcome)
	}

	err = dlService.DLRepository.DeleteDeadLetter(context.WithoutCancel(ctx), deadLetter)
	if err != nil {
		logging.Logger.Warn("[ProcessDeadLetter] Failed to delete replayed dead letter",
			zap.String("id", deadLetter.ID),
			zap.String("error", err.Error()),
		)
	}
}

// scheduleRetry puts a claimed row back to pending. It runs detached so a worker stopped
// mid-replay still releases its claim.
func (dlService *DeadLetterService) scheduleRetry(ctx context.Context, deadLetter *WebhookDeadLetter, cause error) {
	err := dlService.DLRepository.IncreaseRetryCount(context.WithoutCancel(ctx), deadLetter, cause.Error())
	if err != nil {
		logging.Logger.Error("[ProcessDeadLetter] Failed to schedule dead letter retry",
			zap.String("id", deadLetter.ID),
			zap.String("error", err.Error()),
		)
	}
}
