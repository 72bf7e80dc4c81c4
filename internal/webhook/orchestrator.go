// Package webhook runs one call webhook delivery through the reconciliation pipeline.
package webhook

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/lead"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/transcript"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/validation"
	"go.uber.org/zap"
)

const (
	StageCallLog           = "call_log"
	StageTranscript        = "transcript"
	StageLead              = "lead"
	StageValidation        = "validation"
	StageSuccessEvaluation = "success_evaluation"

	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

type CallLogService interface {
	GetOrCreateCallLogData(ctx context.Context, p payload.Payload) (*calllog.CallLog, error)
	ProcessAndStoreTranscript(ctx context.Context, p payload.Payload, callLog *calllog.CallLog) transcript.FactSet
	PatchSuccessEvaluation(ctx context.Context, callLog *calllog.CallLog, p payload.Payload) bool
}

type LeadUpdater interface {
	UpdateLeadWithCallData(ctx context.Context, p payload.Payload, callLog *calllog.CallLog) (*lead.CallUpdate, error)
}

// StageObserver is told how each pipeline stage ended.
type StageObserver func(stage, result string)

// Outcome is what a delivery produced. Only CallLog is guaranteed to be set.
type Outcome struct {
	CallLog    *calllog.CallLog
	Facts      transcript.FactSet
	LeadID     *int64
	Validation *validation.Result
}

type Orchestrator struct {
	callLogs CallLogService
	leads    LeadUpdater
	observe  StageObserver
}

func NewOrchestrator(callLogs CallLogService, leads LeadUpdater, observe StageObserver) *Orchestrator {
	if observe == nil {
		observe = func(string, string) {}
	}

	return &Orchestrator{
		callLogs: callLogs,
		leads:    leads,
		observe:  observe,
	}
}

// Process records the call and enriches it. Only a failure to resolve the call log is
// returned; every later stage is best-effort.
func (orchestrator *Orchestrator) Process(ctx context.Context, p payload.Payload) (*Outcome, error) {
	callLog, err := orchestrator.callLogs.GetOrCreateCallLogData(ctx, p)
	if err != nil {
		orchestrator.observe(StageCallLog, ResultFailed)
		return nil, err
	}

	orchestrator.observe(StageCallLog, ResultOK)

	outcome := &Outcome{CallLog: callLog}

	outcome.Facts = orchestrator.callLogs.ProcessAndStoreTranscript(ctx, p, callLog)
	if outcome.Facts.IsEmpty() {
		orchestrator.observe(StageTranscript, ResultSkipped)
	} else {
		orchestrator.observe(StageTranscript, ResultOK)
	}

	orchestrator.updateLead(ctx, p, outcome)

	// The delivery may carry the outcome flag even when the call log already existed.
	if orchestrator.callLogs.PatchSuccessEvaluation(ctx, callLog, p) {
		orchestrator.observe(StageSuccessEvaluation, ResultOK)
	}

	logging.Logger.Info("[Process] Webhook processed",
		zap.String("log_id", callLog.LogID),
		zap.Bool("lead_matched", outcome.LeadID != nil),
		zap.Bool("facts_extracted", !outcome.Facts.IsEmpty()),
	)

	return outcome, nil
}

func (orchestrator *Orchestrator) updateLead(ctx context.Context, p payload.Payload, outcome *Outcome) {
	update, err := orchestrator.leads.UpdateLeadWithCallData(ctx, p, outcome.CallLog)
	if err != nil {
		orchestrator.observe(StageLead, ResultFailed)

		logging.Logger.Warn("[Process] Lead update failed, continuing",
			zap.String("log_id", outcome.CallLog.LogID),
			zap.String("error", err.Error()),
		)
	}

	if update == nil || update.Lead == nil {
		if err == nil {
			orchestrator.observe(StageLead, ResultSkipped)
		}

		return
	}

	if err == nil {
		orchestrator.observe(StageLead, ResultOK)
	}

	leadID := update.Lead.ID
	outcome.LeadID = &leadID
	outcome.Validation = update.Validation

	switch {
	case update.ValidationErr != nil:
		orchestrator.observe(StageValidation, ResultFailed)
	case update.Validation == nil || update.Validation.RequiresLeadAssignment:
		orchestrator.observe(StageValidation, ResultSkipped)
	default:
		orchestrator.observe(StageValidation, ResultOK)
	}
}
