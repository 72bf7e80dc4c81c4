package payload

// Defaults are the tenant-level fallbacks applied when a webhook omits an identifier.
type Defaults struct {
	AssistantID    string
	OrganizationID string
}

// Envelope is the typed view of one webhook delivery.
type Envelope struct {
	CallID            string
	PhoneNumber       string
	AssistantID       string
	OrganizationID    string
	ConversationID    string
	Status            string
	EndedReason       string
	SuccessEvaluation *bool
	Transcript        any
	HasTranscript     bool
}

func Resolve(p Payload, defaults Defaults) Envelope {
	envelope := Envelope{
		CallID:         CallID(p),
		PhoneNumber:    PhoneNumber(p),
		AssistantID:    AssistantID(p, defaults.AssistantID),
		OrganizationID: OrganizationID(p, defaults.OrganizationID),
		ConversationID: ConversationID(p),
		Status:         Status(p),
		EndedReason:    EndedReason(p),
	}

	success, ok := SuccessEvaluation(p)
	if ok {
		envelope.SuccessEvaluation = &success
	}

	envelope.Transcript, envelope.HasTranscript = Transcript(p)

	return envelope
}
