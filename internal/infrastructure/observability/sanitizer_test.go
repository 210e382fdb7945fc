package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSanitizerLevels(t *testing.T) {
	tests := []struct {
		input string
		want  PIILevel
	}{
		{"none", PIILevelNone},
		{"FULL", PIILevelFull},
		{"hashed", PIILevelHashed},
		{"", PIILevelHashed},
		{"bogus", PIILevelHashed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewSanitizer(tt.input, "salt").Level(), tt.input)
	}
}

func TestSanitizerTextHashed(t *testing.T) {
	s := NewSanitizer("hashed", "support-chat")

	out := s.Text("mail john.doe@example.com or call 555-123-4567, card 4111 1111 1111 1111, from 10.0.0.1")

	assert.NotContains(t, out, "john.doe@example.com")
	assert.NotContains(t, out, "555-123-4567")
	assert.NotContains(t, out, "4111")
	assert.NotContains(t, out, "10.0.0.1")
	assert.Contains(t, out, "[EMAIL:")
	assert.Contains(t, out, "[PHONE:")
	assert.Contains(t, out, "[CC:REDACTED]")
	assert.Contains(t, out, "[IP:")
	assert.True(t, strings.HasPrefix(out, "mail "))
}

func TestSanitizerTextLevels(t *testing.T) {
	input := "reach me at jane@example.com"
	assert.Equal(t, "[REDACTED]", NewSanitizer("none", "").Text(input))
	assert.Equal(t, input, NewSanitizer("full", "").Text(input))
}

func TestSanitizerTextTruncates(t *testing.T) {
	out := NewSanitizer("full", "").Text(strings.Repeat("é", 300))
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.LessOrEqual(t, len(out), maxPreviewLen+len("…"))
}

func TestSanitizerIdentity(t *testing.T) {
	hashed := NewSanitizer("hashed", "a")
	assert.Len(t, hashed.Identity("user-1"), 8)
	assert.Equal(t, hashed.Identity("user-1"), hashed.Identity("user-1"))
	assert.NotEqual(t, hashed.Identity("user-1"), NewSanitizer("hashed", "b").Identity("user-1"))
	assert.Equal(t, "", hashed.Identity(""))
	assert.Equal(t, "user-1", NewSanitizer("full", "").Identity("user-1"))
	assert.Equal(t, "[REDACTED]", NewSanitizer("none", "").Identity("user-1"))

	var nilSanitizer *Sanitizer
	assert.Len(t, nilSanitizer.Identity("user-1"), 8)
}
