package lead

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/phone"
	"go.uber.org/zap"
)

// Suffixes shorter than this match too many unrelated leads to be useful.
const minMatchDigits = 7

type Finder interface {
	FindLeadsBySuffix(ctx context.Context, digits string, limit int) ([]Lead, error)
}

// Matcher joins calls to leads on the trailing digits of the phone number. The join is
// fuzzy: leads sharing a suffix resolve to the lowest id.
type Matcher struct {
	finder      Finder
	matchDigits int
}

func NewMatcher(finder Finder, matchDigits int) *Matcher {
	if matchDigits <= 0 {
		matchDigits = phone.DefaultMatchDigits
	}

	return &Matcher{
		finder:      finder,
		matchDigits: matchDigits,
	}
}

// FindLeadByPhoneNumber returns nil without error when nothing matches.
func (matcher *Matcher) FindLeadByPhoneNumber(ctx context.Context, phoneNumber string) (*Lead, error) {
	digits := phone.LastDigits(phoneNumber, matcher.matchDigits)
	if len(digits) < minMatchDigits {
		if phoneNumber != "" {
			logging.Logger.Info("[FindLeadByPhoneNumber] Phone number too short to match",
				zap.String("phone_number", phoneNumber),
			)
		}

		return nil, nil
	}

	leads, err := matcher.finder.FindLeadsBySuffix(ctx, digits, 2)
	if err != nil {
		return nil, err
	}

	if len(leads) == 0 {
		return nil, nil
	}

	if len(leads) > 1 {
		logging.Logger.Warn("[FindLeadByPhoneNumber] Several leads share the phone suffix, using the lowest id",
			zap.String("digits", digits),
			zap.Int64("chosen_lead_id", leads[0].ID),
			zap.Int64("other_lead_id", leads[1].ID),
		)
	}

	return &leads[0], nil
}

// MatchLeadID is FindLeadByPhoneNumber reduced to the lead id, with failures logged.
func (matcher *Matcher) MatchLeadID(ctx context.Context, phoneNumber string) (int64, bool) {
	lead, err := matcher.FindLeadByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		logging.Logger.Warn("[MatchLeadID] Lead lookup failed",
			zap.String("phone_number", phoneNumber),
			zap.String("error", err.Error()),
		)

		return 0, false
	}

	if lead == nil {
		return 0, false
	}

	return lead.ID, true
}
