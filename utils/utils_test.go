package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringInSlice(t *testing.T) {
	assert.True(t, StringInSlice("b", []string{"a", "b"}))
	assert.False(t, StringInSlice("c", []string{"a", "b"}))
	assert.False(t, StringInSlice("a", nil))
}

func TestPadPayload(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want string
	}{
		{"short", "hi", 4, "hi\x00\x00"},
		{"exact", "abcd", 4, "abcd"},
		{"long", "abcdef", 4, "abcd"},
		{"multibyte cut", "aä", 2, "a\x00"},
		{"empty", "", 3, "\x00\x00\x00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := PadPayload(tc.text, tc.size)
			assert.Len(t, p, tc.size)
			assert.Equal(t, tc.want, string(p))
		})
	}
}

func TestTrimPayload(t *testing.T) {
	assert.Equal(t, "Hello World!", TrimPayload(PadPayload("Hello World!", 256)))
	assert.Equal(t, "", TrimPayload(make([]byte, 256)))
	long := strings.Repeat("x", 300)
	assert.Equal(t, long[:256], TrimPayload(PadPayload(long, 256)))
}
