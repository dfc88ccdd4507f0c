package redact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/tunefetch/redact"
)

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "short is fully masked", input: "secret", expected: "******"},
		{name: "eight runes", input: "abcdefgh", expected: "ab****gh"},
		{name: "sixteen runes", input: "0123456789abcdef", expected: "0123********cdef"},
		{name: "odd length", input: "abcdefghijk", expected: "ab*******jk"},
		{name: "multibyte", input: "ääääbbbbcccc", expected: "äää******ccc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, redact.String(tt.input))
		})
	}
}
