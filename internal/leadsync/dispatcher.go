package leadsync

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"github.com/goccy/go-json"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

type OutcomePublisher interface {
	PublishOutcome(outcome *webhook.Outcome) error
}

type TranscriptArchive interface {
	ArchiveTranscript(ctx context.Context, logID string, data any) (string, error)
}

// OutcomeDispatcher fans a processed delivery out to the optional sinks after the webhook has
// been acknowledged. Sink failures are logged and counted, never retried here.
type OutcomeDispatcher struct {
	WorkerPool *ants.Pool
	Publisher  OutcomePublisher
	Archive    TranscriptArchive
}

func (dispatcher *OutcomeDispatcher) Dispatch(ctx context.Context, outcome *webhook.Outcome) {
	if outcome == nil || outcome.CallLog == nil {
		return
	}

	if dispatcher.Publisher == nil && dispatcher.Archive == nil {
		return
	}

	detached := context.WithoutCancel(ctx)

	err := dispatcher.WorkerPool.Submit(func() {
		defer handlePanic(outcome.CallLog.LogID)

		dispatcher.publish(outcome)
		dispatcher.archive(detached, outcome)
	})
	if err != nil {
		logging.Logger.Error("[Dispatch] Failed to submit job to ants pool",
			zap.String("log_id", outcome.CallLog.LogID),
			zap.String("error", err.Error()),
		)
	}
}

func (dispatcher *OutcomeDispatcher) publish(outcome *webhook.Outcome) {
	if dispatcher.Publisher == nil {
		return
	}

	err := dispatcher.Publisher.PublishOutcome(outcome)
	if err != nil {
		prometheusLeadsync.KafkaPublishTotal.WithLabelValues("failed").Inc()
		logging.Logger.Error("[Dispatch] Failed to publish outcome",
			zap.String("log_id", outcome.CallLog.LogID),
			zap.String("error", err.Error()),
		)

		return
	}

	prometheusLeadsync.KafkaPublishTotal.WithLabelValues("ok").Inc()
}

func (dispatcher *OutcomeDispatcher) archive(ctx context.Context, outcome *webhook.Outcome) {
	if dispatcher.Archive == nil || len(outcome.CallLog.Transcript) == 0 {
		return
	}

	var stored any

	err := json.Unmarshal(outcome.CallLog.Transcript, &stored)
	if err != nil || stored == nil {
		return
	}

	url, err := dispatcher.Archive.ArchiveTranscript(ctx, outcome.CallLog.LogID, stored)
	if err != nil {
		logging.Logger.Warn("[Dispatch] Transcript not archived",
			zap.String("log_id", outcome.CallLog.LogID),
			zap.String("error", err.Error()),
		)

		return
	}

	logging.Logger.Debug("[Dispatch] Transcript archived",
		zap.String("log_id", outcome.CallLog.LogID),
		zap.String("url", url),
	)
}

func handlePanic(logID string) {
	if r := recover(); r != nil {
		logging.Logger.Error("panic in outcome worker",
			zap.String("log_id", logID),
			zap.Any("recover", r),
		)
	}
}
