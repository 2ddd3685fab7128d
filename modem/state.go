package modem

// State is the synchronization state of a Decoder.
type State int

// Decoder states.
const (
	// Searching means the decoder is looking for a sync preamble.
	Searching State = iota
	// Locked means a frame was found and its symbols are being
	// demodulated.
	Locked
	// Draining means the payload of the current frame has been captured
	// and the decoder waits for the rest of the frame to pass.
	Draining
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Locked:
		return "locked"
	case Draining:
		return "draining"
	}
	return "unknown"
}
