package phone

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestLastDigits(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "+52 55 1234 5678", expected: "5512345678"},
		{input: "5512345678", expected: "5512345678"},
		{input: "(55) 1234-5678", expected: "5512345678"},
		{input: "+1 (555) 000-1111 ext", expected: "5550001111"},
		{input: "12345", expected: "12345"},
		{input: "no digits", expected: ""},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LastDigits(tc.input, DefaultMatchDigits))
		})
	}
}

func TestLastDigitsIgnoresFormatting(t *testing.T) {
	faker := gofakeit.New(42)

	for range 20 {
		local := faker.Phone()
		formatted := "+52 (" + local[:2] + ") " + local[2:6] + "-" + local[6:]

		assert.Equal(t, LastDigits(local, DefaultMatchDigits), LastDigits(formatted, DefaultMatchDigits))
	}
}

func TestInternational(t *testing.T) {
	assert.Equal(t, "+525500001111", International("+52 55 0000 1111", "+52", DefaultMatchDigits))
	assert.Equal(t, "+525500001111", International("5500001111", "+52", DefaultMatchDigits))
	assert.Equal(t, "", International("", "+52", DefaultMatchDigits))
}
