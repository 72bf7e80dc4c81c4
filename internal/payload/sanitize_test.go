package payload

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDropsNULCharacters(t *testing.T) {
	p := mustParse(t, `{"id":"call\u0000-001","customer_number":"555\u00000001111","transcript":[{"text":"hola\u0000"}],"k\u0000":"v"}`)

	assert.Equal(t, "call-001", CallID(p))
	assert.Equal(t, "5550001111", PhoneNumber(p))
	assert.Equal(t, "v", p["k"])

	encoded, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), `\u0000`)
}

func TestSanitizeJSON(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "untouched", input: `{"id":"call-001"}`, expected: `{"id":"call-001"}`},
		{name: "nul escape dropped", input: `{"id":"call\u0000-001"}`, expected: `{"id":"call-001"}`},
		{name: "escaped backslash kept", input: `{"path":"c:\\u0000"}`, expected: `{"path":"c:\\u0000"}`},
		{name: "other escapes kept", input: `{"text":"a\"b\u00e9\u0000"}`, expected: `{"text":"a\"b\u00e9"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(SanitizeJSON([]byte(tc.input))))
		})
	}
}
