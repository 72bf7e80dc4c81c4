// Package validation reconciles facts extracted from calls into one validated record per lead.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/phone"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/transcript"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var ErrInvalidLeadID = errors.New("lead id is not a positive integer")

type LeadMatcher interface {
	MatchLeadID(ctx context.Context, phoneNumber string) (int64, bool)
}

type Store interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, record *ValidatedLead) error
}

// Result describes one reconciliation. When RequiresLeadAssignment is set nothing was
// written because the call could not be tied to a lead.
type Result struct {
	LeadID                 int64
	RequiresLeadAssignment bool
	Action                 string
	Facts                  transcript.FactSet
}

type Reconciler struct {
	matcher     LeadMatcher
	store       Store
	countryCode string
	matchDigits int
}

func NewReconciler(matcher LeadMatcher, store Store, countryCode string, matchDigits int) *Reconciler {
	if matchDigits <= 0 {
		matchDigits = phone.DefaultMatchDigits
	}

	return &Reconciler{
		matcher:     matcher,
		store:       store,
		countryCode: countryCode,
		matchDigits: matchDigits,
	}
}

// ProcessLeadValidation ties the call to a lead, either by phone or by an explicit lead id in
// the payload, and upserts the lead's validated facts. The returned Result is non-nil even
// when an error is returned.
func (reconciler *Reconciler) ProcessLeadValidation(
	ctx context.Context,
	p payload.Payload,
	callLog *calllog.CallLog,
) (*Result, error) {
	phoneNumber := payload.PhoneNumber(p)
	if phoneNumber == "" && callLog != nil {
		phoneNumber = callLog.PhoneNumber()
	}

	result := &Result{Facts: extractFacts(p, callLog)}

	var rawLeadID any

	matchedID, matched := reconciler.matcher.MatchLeadID(ctx, phoneNumber)
	if matched {
		rawLeadID = matchedID
	} else {
		var ok bool

		rawLeadID, ok = payload.LeadID(p)
		if !ok {
			logging.Logger.Info("[ProcessLeadValidation] Call needs a lead assignment",
				zap.String("phone_number", phoneNumber),
			)

			result.RequiresLeadAssignment = true

			return result, nil
		}
	}

	leadID, err := CoerceLeadID(rawLeadID)
	if err != nil {
		logging.Logger.Warn("[ProcessLeadValidation] Rejected lead id",
			zap.Any("lead_id", rawLeadID),
			zap.String("error", err.Error()),
		)

		return result, err
	}

	result.LeadID = leadID

	record, err := reconciler.buildRecord(leadID, phoneNumber, result.Facts, callLog)
	if err != nil {
		return result, err
	}

	exists, err := reconciler.store.Exists(ctx, leadID)
	if err != nil {
		return result, fmt.Errorf("check validated lead %d: %w", leadID, err)
	}

	err = reconciler.store.Upsert(ctx, record)
	if err != nil {
		if database.IsUniqueViolation(err) {
			logging.Logger.Info("[ProcessLeadValidation] Validated lead written concurrently, skipping",
				zap.Int64("lead_id", leadID),
			)

			result.Action = ActionDuplicate

			return result, nil
		}

		return result, fmt.Errorf("upsert validated lead %d: %w", leadID, err)
	}

	result.Action = ActionInserted
	if exists {
		result.Action = ActionUpdated
	}

	logging.Logger.Info("[ProcessLeadValidation] Validated lead stored",
		zap.Int64("lead_id", leadID),
		zap.String("action", result.Action),
	)

	return result, nil
}

func (reconciler *Reconciler) buildRecord(
	leadID int64,
	phoneNumber string,
	facts transcript.FactSet,
	callLog *calllog.CallLog,
) (*ValidatedLead, error) {
	record := &ValidatedLead{
		ID:           leadID,
		CarBrand:     facts.CarBrand,
		CarModel:     facts.CarModel,
		CarYear:      facts.CarYear,
		CustodioName: facts.CustodioName,
		SecurityExp:  facts.SecurityExp,
		SedenaID:     facts.SedenaID,
	}

	local := phone.LastDigits(phoneNumber, reconciler.matchDigits)
	if local != "" {
		intl := phone.International(phoneNumber, reconciler.countryCode, reconciler.matchDigits)
		record.PhoneNumber = &local
		record.PhoneNumberIntl = &intl
	}

	if callLog == nil {
		return record, nil
	}

	record.CallID = callLog.LogID

	snapshot, err := json.Marshal(callLog)
	if err != nil {
		return nil, fmt.Errorf("encode call snapshot: %w", err)
	}

	record.VapiCallData = datatypes.JSON(snapshot)

	return record, nil
}

// extractFacts prefers facts the caller already extracted, then the stored transcript, then
// the transcript of this delivery.
func extractFacts(p payload.Payload, callLog *calllog.CallLog) transcript.FactSet {
	if transcript.LooksPreExtracted(p) {
		return transcript.ExtractInfo(p)
	}

	if callLog != nil && len(callLog.Transcript) > 0 {
		facts := transcript.ExtractInfo([]byte(callLog.Transcript))
		if !facts.IsEmpty() {
			return facts
		}
	}

	raw, ok := payload.Transcript(p)
	if !ok {
		return transcript.FactSet{}
	}

	return transcript.ExtractInfo(raw)
}

// CoerceLeadID accepts positive integers given as numbers or as strings that may carry
// decoration around the digits, e.g. "lead-42".
func CoerceLeadID(value any) (int64, error) {
	switch typed := value.(type) {
	case int64:
		return positive(typed, value)
	case int:
		return positive(int64(typed), value)
	case int32:
		return positive(int64(typed), value)
	case float64:
		return fromFloat(typed, value)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return positive(parsed, value)
		}

		float, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidLeadID, value)
		}

		return fromFloat(float, value)
	case string:
		trimmed := strings.TrimSpace(typed)
		if strings.HasPrefix(trimmed, "-") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLeadID, typed)
		}

		digits := phone.Digits(trimmed)
		if digits == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLeadID, typed)
		}

		parsed, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLeadID, typed)
		}

		return positive(parsed, value)
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidLeadID, value)
	}
}

func fromFloat(value float64, original any) (int64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) || value > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLeadID, original)
	}

	return positive(int64(value), original)
}

func positive(value int64, original any) (int64, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLeadID, original)
	}

	return value, nil
}
