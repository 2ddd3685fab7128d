package events

import (
	"bufio"
	"io"
	"strings"

	"github.com/cskr/pubsub"
)

// CaptureKeyboard reads lines from r and publishes every non empty line on
// SendText. It returns when r is exhausted.
func CaptureKeyboard(r io.Reader, evPS *pubsub.PubSub) error {

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		evPS.Pub(line, SendText)
	}
	return scanner.Err()
}
