package utils

import (
	"bytes"
	"unicode/utf8"
)

// PadPayload returns text as a payload of exactly size bytes. Longer text
// is cut at the last complete UTF-8 character which fits, shorter text is
// padded with NUL bytes.
func PadPayload(text string, size int) []byte {
	p := make([]byte, size)
	b := []byte(text)
	if len(b) > size {
		b = b[:size]
		for len(b) > 0 && !utf8.Valid(b) {
			b = b[:len(b)-1]
		}
	}
	copy(p, b)
	return p
}

// TrimPayload returns the text carried by a payload, without the trailing
// NUL padding.
func TrimPayload(p []byte) string {
	return string(bytes.TrimRight(p, "\x00"))
}
