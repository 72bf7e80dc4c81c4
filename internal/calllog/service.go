package calllog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrCallLogUnavailable means a delivery could neither be matched to an existing call log
// nor recorded as a new one.
var ErrCallLogUnavailable = errors.New("call log could not be found or created")

// Store is the persistence the call-log service needs.
type Store interface {
	GetCallLogByID(ctx context.Context, id string) (*CallLog, error)
	GetCallLogByLogID(ctx context.Context, logID string) (*CallLog, error)
	CreateCallLog(ctx context.Context, callLog *CallLog) (*CallLog, error)
	UpdateSuccessEvaluation(ctx context.Context, id string, value bool) (bool, error)
	UpdateTranscriptData(ctx context.Context, id string, data []byte) error
	FillTranscript(ctx context.Context, id string, data []byte) (bool, error)
}

type Service struct {
	store    Store
	defaults payload.Defaults
	now      func() time.Time
}

func NewService(store Store, defaults payload.Defaults) *Service {
	return &Service{
		store:    store,
		defaults: defaults,
		now:      time.Now,
	}
}

// FindExistingCallLog looks callID up as our row id, then as the platform's log id.
// Lookup failures are logged and reported as not found.
func (service *Service) FindExistingCallLog(ctx context.Context, callID string) *CallLog {
	if callID == "" {
		return nil
	}

	callLog, err := service.store.GetCallLogByID(ctx, callID)
	if err == nil {
		return callLog
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Warn("[FindExistingCallLog] Lookup by id failed",
			zap.String("call_id", callID),
			zap.String("error", err.Error()),
		)
	}

	callLog, err = service.store.GetCallLogByLogID(ctx, callID)
	if err == nil {
		return callLog
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Warn("[FindExistingCallLog] Lookup by log id failed",
			zap.String("call_id", callID),
			zap.String("error", err.Error()),
		)
	}

	return nil
}

// StoreWebhookDataAsCallLog records p as a new call log. A blank callID is replaced with a
// generated manual-<epoch ms> log id.
func (service *Service) StoreWebhookDataAsCallLog(
	ctx context.Context,
	p payload.Payload,
	callID string,
) (*CallLog, error) {
	envelope := payload.Resolve(p, service.defaults)

	logID := callID
	if logID == "" {
		logID = ManualLogIDPrefix + strconv.FormatInt(service.now().UnixMilli(), 10)
	}

	metadata, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode webhook metadata: %w", err)
	}

	callLog := &CallLog{
		LogID:             logID,
		AssistantID:       envelope.AssistantID,
		OrganizationID:    envelope.OrganizationID,
		ConversationID:    optional(envelope.ConversationID),
		CustomerNumber:    optional(envelope.PhoneNumber),
		CallerPhoneNumber: optional(envelope.PhoneNumber),
		Status:            optional(envelope.Status),
		EndedReason:       optional(envelope.EndedReason),
		SuccessEvaluation: envelope.SuccessEvaluation,
		Metadata:          datatypes.JSON(metadata),
	}

	if envelope.HasTranscript {
		callLog.Transcript = encodeTranscript(envelope.Transcript)
	}

	created, err := service.store.CreateCallLog(ctx, callLog)
	if err == nil {
		logging.Logger.Info("[StoreWebhookDataAsCallLog] Call log created",
			zap.String("id", created.ID),
			zap.String("log_id", created.LogID),
		)

		return created, nil
	}

	// A concurrent delivery for the same call won the insert.
	if database.IsUniqueViolation(err) {
		existing, findErr := service.store.GetCallLogByLogID(ctx, logID)
		if findErr == nil {
			logging.Logger.Info("[StoreWebhookDataAsCallLog] Call log created concurrently, reusing it",
				zap.String("log_id", logID),
			)

			return existing, nil
		}
	}

	return nil, err
}

// GetOrCreateCallLogData resolves the call log a delivery belongs to and fills a late
// success evaluation into it.
func (service *Service) GetOrCreateCallLogData(ctx context.Context, p payload.Payload) (*CallLog, error) {
	callID := payload.CallID(p)

	callLog := service.FindExistingCallLog(ctx, callID)
	if callLog == nil {
		var err error

		callLog, err = service.StoreWebhookDataAsCallLog(ctx, p, callID)
		if err != nil {
			logging.Logger.Error("[GetOrCreateCallLogData] Failed to store call log",
				zap.String("call_id", callID),
				zap.String("error", err.Error()),
			)

			return nil, fmt.Errorf("%w: %w", ErrCallLogUnavailable, err)
		}
	} else {
		service.FillMissingTranscript(ctx, callLog, p)
	}

	service.PatchSuccessEvaluation(ctx, callLog, p)

	return callLog, nil
}

// PatchSuccessEvaluation fills success_evaluation when the stored value is still null.
// A value already set is never overwritten. It reports whether the row changed.
func (service *Service) PatchSuccessEvaluation(ctx context.Context, callLog *CallLog, p payload.Payload) bool {
	if callLog == nil || callLog.SuccessEvaluation != nil {
		return false
	}

	value, ok := payload.SuccessEvaluation(p)
	if !ok {
		return false
	}

	applied, err := service.store.UpdateSuccessEvaluation(ctx, callLog.ID, value)
	if err != nil {
		logging.Logger.Warn("[PatchSuccessEvaluation] Failed to patch success evaluation",
			zap.String("id", callLog.ID),
			zap.String("error", err.Error()),
		)

		return false
	}

	if !applied {
		logging.Logger.Info("[PatchSuccessEvaluation] Success evaluation already set, skipping",
			zap.String("id", callLog.ID),
		)

		return false
	}

	callLog.SuccessEvaluation = &value

	return true
}

// FillMissingTranscript stores the delivery's transcript on a call log recorded without one.
// A stored transcript is never replaced. It reports whether the row changed.
func (service *Service) FillMissingTranscript(ctx context.Context, callLog *CallLog, p payload.Payload) bool {
	if callLog == nil || len(callLog.Transcript) > 0 {
		return false
	}

	raw, ok := payload.Transcript(p)
	if !ok {
		return false
	}

	data := encodeTranscript(raw)
	if len(data) == 0 {
		return false
	}

	applied, err := service.store.FillTranscript(ctx, callLog.ID, data)
	if err != nil {
		logging.Logger.Warn("[FillMissingTranscript] Failed to store late transcript",
			zap.String("id", callLog.ID),
			zap.String("error", err.Error()),
		)

		return false
	}

	if !applied {
		return false
	}

	callLog.Transcript = data

	logging.Logger.Info("[FillMissingTranscript] Late transcript stored", zap.String("log_id", callLog.LogID))

	return true
}

func encodeTranscript(transcript any) datatypes.JSON {
	if text, ok := transcript.(string); ok {
		trimmed := strings.TrimSpace(text)
		if json.Valid([]byte(trimmed)) {
			return datatypes.JSON(payload.SanitizeJSON([]byte(trimmed)))
		}
	}

	encoded, err := json.Marshal(transcript)
	if err != nil {
		logging.Logger.Warn("[encodeTranscript] Failed to encode transcript", zap.String("error", err.Error()))
		return nil
	}

	return datatypes.JSON(encoded)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
