package payload

import (
	"strings"
)

var callIDPaths = []Path{
	P("call_id"), P("id"), P("log_id"),
	P("call.id"), P("call.call_id"), P("call.log_id"),
	P("metadata.call_id"),
	P("event.call_id"), P("event.id"),
}

var (
	phoneFields       = []string{"phone_number", "caller_phone_number", "customer_number", "telefono"}
	nestedPhoneFields = append(append([]string{}, phoneFields...), "number")
	phoneContainers   = []string{"call", "caller", "customer", "metadata", "event"}
	phonePaths        = buildPhonePaths()
)

var assistantIDPaths = []Path{
	P("assistant_id"), P("assistantId"),
	P("call.assistant_id"), P("call.assistantId"),
	P("assistant.id"),
	P("metadata.assistant_id"),
}

var organizationIDPaths = []Path{
	P("organization_id"), P("orgId"),
	P("call.organization_id"), P("call.orgId"),
	P("metadata.organization_id"),
}

var conversationIDPaths = []Path{
	P("conversation_id"), P("conversationId"),
	P("call.conversation_id"), P("call.conversationId"),
}

var statusPaths = []Path{P("status"), P("call.status")}

var endedReasonPaths = []Path{
	P("ended_reason"), P("endedReason"),
	P("call.ended_reason"), P("call.endedReason"),
}

var leadIDPaths = []Path{
	P("leadId"), P("lead_id"),
	P("metadata.leadId"), P("metadata.lead_id"),
}

var successEvaluationPaths = []Path{
	P("success_evaluation"), P("successEvaluation"), P("analysis.successEvaluation"),
}

func buildPhonePaths() []Path {
	paths := make([]Path, 0, len(phoneFields)+len(phoneContainers)*len(nestedPhoneFields))

	for _, field := range phoneFields {
		paths = append(paths, Path{field})
	}

	for _, container := range phoneContainers {
		for _, field := range nestedPhoneFields {
			paths = append(paths, Path{container, field})
		}
	}

	return paths
}

// CallID returns the platform's call identifier, or "" when the payload carries none.
func CallID(p Payload) string {
	return p.FirstString(callIDPaths...)
}

// PhoneNumber returns the first phone-looking field of the payload as sent.
func PhoneNumber(p Payload) string {
	return p.FirstString(phonePaths...)
}

func AssistantID(p Payload, def string) string {
	return withDefault(p.FirstString(assistantIDPaths...), def)
}

func OrganizationID(p Payload, def string) string {
	return withDefault(p.FirstString(organizationIDPaths...), def)
}

func ConversationID(p Payload) string {
	return p.FirstString(conversationIDPaths...)
}

func Status(p Payload) string {
	return p.FirstString(statusPaths...)
}

func EndedReason(p Payload) string {
	return p.FirstString(endedReasonPaths...)
}

// LeadID returns the raw lead identifier the caller attached, if any. Coercion is left to the
// consumer because the value may be a number or a decorated string.
func LeadID(p Payload) (any, bool) {
	return p.FirstValue(leadIDPaths...)
}

// Transcript returns the raw transcript value and whether the payload carries one.
func Transcript(p Payload) (any, bool) {
	value, ok := p["transcript"]
	if !ok || value == nil {
		return nil, false
	}

	if str, isString := value.(string); isString && strings.TrimSpace(str) == "" {
		return nil, false
	}

	return value, true
}

// SuccessEvaluation returns the platform's outcome flag when one of its accepted field
// names carries a recognizable boolean.
func SuccessEvaluation(p Payload) (bool, bool) {
	for _, path := range successEvaluationPaths {
		value, ok := p.Lookup(path)
		if !ok {
			continue
		}

		parsed, ok := ParseBool(value)
		if ok {
			return parsed, true
		}
	}

	return false, false
}

// ParseBool interprets booleans and boolean-ish strings or numbers.
func ParseBool(value any) (bool, bool) {
	if typed, ok := value.(bool); ok {
		return typed, true
	}

	switch strings.ToLower(Stringify(value)) {
	case "true", "yes", "y", "si", "sí", "pass", "passed", "success", "1":
		return true, true
	case "false", "no", "n", "fail", "failed", "failure", "0":
		return false, true
	default:
		return false, false
	}
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}

	return value
}
