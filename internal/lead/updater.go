package lead

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/validation"
	"go.uber.org/zap"
)

type StatsStore interface {
	UpdateCallStats(ctx context.Context, leadID int64, callID string, callDate time.Time) error
}

type Reconciler interface {
	ProcessLeadValidation(ctx context.Context, p payload.Payload, callLog *calllog.CallLog) (*validation.Result, error)
}

// CallUpdate reports what UpdateLeadWithCallData did. Lead is nil when no lead matched.
type CallUpdate struct {
	Lead          *Lead
	Validation    *validation.Result
	ValidationErr error
}

type Updater struct {
	matcher    *Matcher
	stats      StatsStore
	reconciler Reconciler
	now        func() time.Time
}

func NewUpdater(matcher *Matcher, stats StatsStore, reconciler Reconciler) *Updater {
	return &Updater{
		matcher:    matcher,
		stats:      stats,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// UpdateLeadWithCallData counts the call against the lead matching its phone number and,
// when the delivery carries a transcript, reconciles the lead's validated facts.
// The two steps are independent: reconciliation failures are reported in the result and
// never undo the stats update, and a failed stats update is returned after reconciliation
// still ran.
func (updater *Updater) UpdateLeadWithCallData(
	ctx context.Context,
	p payload.Payload,
	callLog *calllog.CallLog,
) (*CallUpdate, error) {
	update := &CallUpdate{}

	if callLog == nil || callLog.LogID == "" {
		logging.Logger.Info("[UpdateLeadWithCallData] No call log id, skipping lead update")
		return update, nil
	}

	phoneNumber := callLog.PhoneNumber()
	if phoneNumber == "" {
		phoneNumber = payload.PhoneNumber(p)
	}

	lead, err := updater.matcher.FindLeadByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		logging.Logger.Error("[UpdateLeadWithCallData] Failed to match lead",
			zap.String("log_id", callLog.LogID),
			zap.String("error", err.Error()),
		)

		return update, err
	}

	if lead == nil {
		logging.Logger.Info("[UpdateLeadWithCallData] No lead matches the call phone number",
			zap.String("log_id", callLog.LogID),
			zap.String("phone_number", phoneNumber),
		)

		return update, nil
	}

	update.Lead = lead

	statsErr := updater.stats.UpdateCallStats(ctx, lead.ID, callLog.LogID, updater.now())
	if statsErr != nil {
		logging.Logger.Error("[UpdateLeadWithCallData] Failed to update lead call stats",
			zap.Int64("lead_id", lead.ID),
			zap.String("log_id", callLog.LogID),
			zap.String("error", statsErr.Error()),
		)
	} else {
		logging.Logger.Info("[UpdateLeadWithCallData] Lead call stats updated",
			zap.Int64("lead_id", lead.ID),
			zap.String("log_id", callLog.LogID),
		)
	}

	_, hasTranscript := payload.Transcript(p)
	if !hasTranscript || updater.reconciler == nil {
		return update, statsErr
	}

	update.Validation, update.ValidationErr = updater.reconciler.ProcessLeadValidation(ctx, p, callLog)
	if update.ValidationErr != nil {
		logging.Logger.Warn("[UpdateLeadWithCallData] Lead validation failed",
			zap.Int64("lead_id", lead.ID),
			zap.String("log_id", callLog.LogID),
			zap.String("error", update.ValidationErr.Error()),
		)
	}

	return update, statsErr
}
