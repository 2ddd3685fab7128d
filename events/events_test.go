package events

import (
	"strings"
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureKeyboard(t *testing.T) {
	ps := pubsub.New(10)
	defer ps.Shutdown()
	ch := ps.Sub(SendText)

	in := strings.NewReader("hello\r\n\nsecond line\n")
	require.NoError(t, CaptureKeyboard(in, ps))

	for _, want := range []string{"hello", "second line"} {
		select {
		case got := <-ch:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("missing %q", want)
		}
	}
}
