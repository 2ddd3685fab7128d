package modem

// Reason tells why a frame candidate or a frame was discarded.
type Reason int

// Reasons for dropping a frame.
const (
	// ReasonSync means a Schmidl & Cox candidate failed the matched filter.
	ReasonSync Reason = iota
	// ReasonHeader means the header did not carry the expected mode or
	// the channel estimate was unusable.
	ReasonHeader
	// ReasonChecksum means the payload did not pass the CRC after
	// decoding.
	ReasonChecksum
	// ReasonOverrun means the staging queue was full and the oldest frame
	// was discarded.
	ReasonOverrun
)

func (r Reason) String() string {
	switch r {
	case ReasonSync:
		return "sync"
	case ReasonHeader:
		return "header"
	case ReasonChecksum:
		return "checksum"
	case ReasonOverrun:
		return "overrun"
	}
	return "unknown"
}

// LockInfo describes a frame the decoder locked on to.
type LockInfo struct {
	// Start is the absolute sample index of the frame start.
	Start int64
	// CFO is the estimated carrier frequency offset in Hz.
	CFO float64
	// SNR is the per subcarrier signal to noise ratio in dB, estimated from
	// the two sync bodies.
	SNR float64
}

// Observer receives decoder telemetry. Implementations must be cheap and
// must not call back into the decoder.
type Observer interface {
	Locked(LockInfo)
	FrameDropped(Reason)
	Delivered()
}

type nopObserver struct{}

func (nopObserver) Locked(LockInfo)     {}
func (nopObserver) FrameDropped(Reason) {}
func (nopObserver) Delivered()          {}

// Observers returns an Observer which forwards every call to all of obs,
// in order. nil entries are skipped.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) Locked(info LockInfo) {
	for _, o := range m {
		o.Locked(info)
	}
}

func (m multiObserver) FrameDropped(r Reason) {
	for _, o := range m {
		o.FrameDropped(r)
	}
}

func (m multiObserver) Delivered() {
	for _, o := range m {
		o.Delivered()
	}
}
