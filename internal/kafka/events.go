package kafka

import (
	"errors"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/transcript"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"github.com/goccy/go-json"
)

const CallLogReconciledEvent = "call_log.reconciled"

var ErrEmptyOutcome = errors.New("outcome has no call log")

type Sender interface {
	SendMessage(topic string, key, value []byte) (int32, int64, error)
}

type CallLogReconciled struct {
	Event                  string             `json:"event"`
	CallLogID              string             `json:"call_log_id"`
	LogID                  string             `json:"log_id"`
	AssistantID            string             `json:"assistant_id"`
	OrganizationID         string             `json:"organization_id"`
	LeadID                 *int64             `json:"lead_id"`
	ValidationAction       string             `json:"validation_action,omitempty"`
	RequiresLeadAssignment bool               `json:"requires_lead_assignment"`
	SuccessEvaluation      *bool              `json:"success_evaluation"`
	Facts                  transcript.FactSet `json:"facts"`
	OccurredAt             time.Time          `json:"occurred_at"`
}

// OutcomePublisher announces every processed delivery, keyed by log id so redeliveries of a
// call land on the same partition.
type OutcomePublisher struct {
	sender Sender
	topic  string
	now    func() time.Time
}

func NewOutcomePublisher(sender Sender, topic string) *OutcomePublisher {
	return &OutcomePublisher{
		sender: sender,
		topic:  topic,
		now:    time.Now,
	}
}

func (publisher *OutcomePublisher) PublishOutcome(outcome *webhook.Outcome) error {
	if outcome == nil || outcome.CallLog == nil {
		return ErrEmptyOutcome
	}

	event := CallLogReconciled{
		Event:             CallLogReconciledEvent,
		CallLogID:         outcome.CallLog.ID,
		LogID:             outcome.CallLog.LogID,
		AssistantID:       outcome.CallLog.AssistantID,
		OrganizationID:    outcome.CallLog.OrganizationID,
		LeadID:            outcome.LeadID,
		SuccessEvaluation: outcome.CallLog.SuccessEvaluation,
		Facts:             outcome.Facts,
		OccurredAt:        publisher.now().UTC(),
	}

	if outcome.Validation != nil {
		event.ValidationAction = outcome.Validation.Action
		event.RequiresLeadAssignment = outcome.Validation.RequiresLeadAssignment
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = publisher.sender.SendMessage(publisher.topic, []byte(event.LogID), value)

	return err
}
