package client

import (
	"strings"
	"unicode/utf8"
)

// utf8Decoder turns a byte stream into text, holding back an incomplete
// trailing sequence until the next chunk completes it.
type utf8Decoder struct {
	pending []byte
}

func (d *utf8Decoder) Decode(chunk []byte) string {
	buf := append(d.pending, chunk...)
	cut := len(buf) - incompleteSuffix(buf)
	d.pending = append([]byte(nil), buf[cut:]...)
	return strings.ToValidUTF8(string(buf[:cut]), string(utf8.RuneError))
}

// Flush returns whatever is still held back. A truncated sequence decodes
// to the replacement character.
func (d *utf8Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	rest := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return rest
}

// incompleteSuffix returns the length of a trailing partial rune in b.
func incompleteSuffix(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if !utf8.RuneStart(b[len(b)-i]) {
			continue
		}
		if utf8.FullRune(b[len(b)-i:]) {
			return 0
		}
		return i
	}
	return 0
}
