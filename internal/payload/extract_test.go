package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, body string) Payload {
	t.Helper()

	p, err := Parse([]byte(body))
	require.NoError(t, err)

	return p
}

func TestParseRejectsNonObjects(t *testing.T) {
	_, err := Parse([]byte(`[1,2,3]`))
	require.ErrorIs(t, err, ErrNotObject)

	_, err = Parse([]byte(`not json`))
	require.Error(t, err)
}

func TestCallIDPriority(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "top level call_id wins", body: `{"call_id":"a","id":"b","call":{"id":"c"}}`, expected: "a"},
		{name: "id before log_id", body: `{"id":"b","log_id":"c"}`, expected: "b"},
		{name: "nested call", body: `{"call":{"call_id":"c2","log_id":"c3"}}`, expected: "c2"},
		{name: "metadata", body: `{"metadata":{"call_id":"m1"},"event":{"id":"e1"}}`, expected: "m1"},
		{name: "event id", body: `{"event":{"id":"e1"}}`, expected: "e1"},
		{name: "numeric id keeps digits", body: `{"id":12345678901234567}`, expected: "12345678901234567"},
		{name: "blank values skipped", body: `{"call_id":"  ","id":"x"}`, expected: "x"},
		{name: "absent", body: `{"transcript":[]}`, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CallID(mustParse(t, tc.body)))
		})
	}
}

func TestPhoneNumberPriority(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "top level", body: `{"customer_number":"+52 55 0000 1111","call":{"phone_number":"1"}}`, expected: "+52 55 0000 1111"},
		{name: "phone_number before telefono", body: `{"telefono":"2","phone_number":"1"}`, expected: "1"},
		{name: "nested call before customer", body: `{"customer":{"number":"3"},"call":{"caller_phone_number":"4"}}`, expected: "4"},
		{name: "customer number", body: `{"customer":{"number":"+5215500001111"}}`, expected: "+5215500001111"},
		{name: "event", body: `{"event":{"telefono":"5"}}`, expected: "5"},
		{name: "absent", body: `{}`, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PhoneNumber(mustParse(t, tc.body)))
		})
	}
}

func TestAssistantAndOrganizationDefaults(t *testing.T) {
	p := mustParse(t, `{"call":{"assistantId":"asst-1"}}`)

	assert.Equal(t, "asst-1", AssistantID(p, "fallback"))
	assert.Equal(t, "org-default", OrganizationID(p, "org-default"))
}

func TestSuccessEvaluation(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		value    bool
		resolved bool
	}{
		{name: "boolean", body: `{"success_evaluation":true}`, value: true, resolved: true},
		{name: "camel case string", body: `{"successEvaluation":"false"}`, value: false, resolved: true},
		{name: "analysis", body: `{"analysis":{"successEvaluation":"PASS"}}`, value: true, resolved: true},
		{name: "unrecognized then recognized", body: `{"success_evaluation":"maybe","successEvaluation":0}`, value: false, resolved: true},
		{name: "numeric rubric", body: `{"successEvaluation":8}`, resolved: false},
		{name: "letter grade", body: `{"analysis":{"successEvaluation":"A"}}`, resolved: false},
		{name: "absent", body: `{}`, resolved: false},
		{name: "null", body: `{"success_evaluation":null}`, resolved: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			value, ok := SuccessEvaluation(mustParse(t, tc.body))
			assert.Equal(t, tc.resolved, ok)
			assert.Equal(t, tc.value, value)
		})
	}
}

func TestLeadIDReturnsRawValue(t *testing.T) {
	value, ok := LeadID(mustParse(t, `{"metadata":{"lead_id":42}}`))
	require.True(t, ok)
	assert.Equal(t, "42", Stringify(value))

	_, ok = LeadID(mustParse(t, `{"leadId":""}`))
	assert.False(t, ok)
}

func TestTranscriptPresence(t *testing.T) {
	_, ok := Transcript(mustParse(t, `{"transcript":"   "}`))
	assert.False(t, ok)

	_, ok = Transcript(mustParse(t, `{"transcript":null}`))
	assert.False(t, ok)

	value, ok := Transcript(mustParse(t, `{"transcript":[{"text":"hello"}]}`))
	assert.True(t, ok)
	assert.Len(t, value, 1)
}

func TestResolve(t *testing.T) {
	p := mustParse(t, `{
		"id": "call-001",
		"customer_number": "+52 55 0000 1111",
		"endedReason": "customer-ended-call",
		"status": "ended",
		"successEvaluation": true,
		"transcript": [{"speaker":"user","text":"hi"}]
	}`)

	envelope := Resolve(p, Defaults{AssistantID: "asst-default", OrganizationID: "org-default"})

	assert.Equal(t, "call-001", envelope.CallID)
	assert.Equal(t, "+52 55 0000 1111", envelope.PhoneNumber)
	assert.Equal(t, "asst-default", envelope.AssistantID)
	assert.Equal(t, "org-default", envelope.OrganizationID)
	assert.Equal(t, "customer-ended-call", envelope.EndedReason)
	assert.Equal(t, "ended", envelope.Status)
	require.NotNil(t, envelope.SuccessEvaluation)
	assert.True(t, *envelope.SuccessEvaluation)
	assert.True(t, envelope.HasTranscript)
}
