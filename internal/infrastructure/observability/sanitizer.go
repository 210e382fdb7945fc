package observability

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// PIILevel selects how much user content reaches logs and spans.
type PIILevel string

const (
	// PIILevelNone redacts user content entirely.
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces recognizable personal data with salted hashes.
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull records content as is.
	PIILevelFull PIILevel = "full"
)

const (
	redacted      = "[REDACTED]"
	maxPreviewLen = 256
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Sanitizer scrubs chat content and identities before they are recorded.
// A nil Sanitizer behaves as PIILevelHashed with an empty salt.
type Sanitizer struct {
	level PIILevel
	salt  string
}

// NewSanitizer parses level; unknown values fall back to hashed.
func NewSanitizer(level, salt string) *Sanitizer {
	l := PIILevel(strings.ToLower(strings.TrimSpace(level)))
	switch l {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		l = PIILevelHashed
	}
	return &Sanitizer{level: l, salt: salt}
}

func (s *Sanitizer) Level() PIILevel {
	if s == nil {
		return PIILevelHashed
	}
	return s.level
}

// Text returns a preview of chat content, truncated to a bounded length.
func (s *Sanitizer) Text(content string) string {
	if len(content) > maxPreviewLen {
		content = strings.ToValidUTF8(content[:maxPreviewLen], "") + "…"
	}
	switch s.Level() {
	case PIILevelNone:
		return redacted
	case PIILevelFull:
		return content
	}
	content = emailPattern.ReplaceAllStringFunc(content, func(match string) string {
		return "[EMAIL:" + s.hash(match) + "]"
	})
	content = cardPattern.ReplaceAllString(content, "[CC:REDACTED]")
	content = phonePattern.ReplaceAllStringFunc(content, func(match string) string {
		return "[PHONE:" + s.hash(match) + "]"
	})
	return ipv4Pattern.ReplaceAllStringFunc(content, func(match string) string {
		return "[IP:" + s.hash(match) + "]"
	})
}

// Identity returns a stable pseudonym for an identity key.
func (s *Sanitizer) Identity(identity string) string {
	if identity == "" {
		return ""
	}
	switch s.Level() {
	case PIILevelNone:
		return redacted
	case PIILevelFull:
		return identity
	}
	return s.hash(identity)
}

func (s *Sanitizer) hash(data string) string {
	salt := ""
	if s != nil {
		salt = s.salt
	}
	sum := sha256.Sum256([]byte(data + salt))
	return hex.EncodeToString(sum[:])[:8]
}
