package vox

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/dh1tw/ribbit/audio"
)

// Vox is an Audio Node which detects if the audio level raises above or falls
// below a defined threshold level. The receiver uses it as carrier sense:
// the channel is reported busy while the level stays above the threshold.
type Vox struct {
	sync.Mutex
	enabled        bool
	active         bool
	level          float32
	lastActivation time.Time
	cb             audio.OnDataCb
	onStateChange  func(voxOn bool)
	threshold      float32
	holdTime       time.Duration
	now            func() time.Time
	logger         *slog.Logger
	chWarning      sync.Once
}

// New is the constructor method for a Vox Object. Vox implements
// an audio.Node and emits a StateChanged callback when the RMS
// (root mean square) has risen above or fallen below the set threshold. By
// default the threshold is set to 0.1 and the hold time to 500ms.
func New(opts ...Option) *Vox {
	v := &Vox{
		enabled:   true,
		holdTime:  time.Millisecond * 500,
		threshold: 0.1,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Write is the entry point into this audio Node. The msg is forwarded
// unchanged to the callback before the level is evaluated.
func (v *Vox) Write(msg audio.Msg) error {
	v.Lock()
	cb := v.cb
	v.Unlock()

	// forward the msg asap to the next node
	if cb != nil {
		cb(msg)
	}

	v.Lock()
	defer v.Unlock()

	if !v.enabled || len(msg.Data) == 0 {
		return nil
	}

	if msg.Channels > 1 {
		v.multiChannelWarning()
	}

	rmsValue, err := rms(msg.Data)
	if err != nil {
		return err
	}
	v.level = rmsValue

	now := v.now()
	if rmsValue >= v.threshold {
		v.lastActivation = now
		if !v.active {
			v.active = true
			v.logger.Debug("channel busy", "rms", rmsValue)
			v.notify(true)
		}
	} else if v.active && now.Sub(v.lastActivation) > v.holdTime {
		v.active = false
		v.logger.Debug("channel clear", "rms", rmsValue)
		v.notify(false)
	}

	return nil
}

func (v *Vox) notify(on bool) {
	if v.onStateChange != nil {
		go v.onStateChange(on)
	}
}

// SetCb sets the callback which will be called when the data has been
// processed and is ready to be sent to the next audio.Node or audio.Sink.
func (v *Vox) SetCb(cb audio.OnDataCb) {
	v.Lock()
	defer v.Unlock()
	v.cb = cb
}

// Active reports whether the level is currently above the threshold.
func (v *Vox) Active() bool {
	v.Lock()
	defer v.Unlock()
	return v.active
}

// Level returns the RMS of the last buffer.
func (v *Vox) Level() float32 {
	v.Lock()
	defer v.Unlock()
	return v.level
}

// SetThreshold changes the threshold level (0 ... 1).
func (v *Vox) SetThreshold(t float32) {
	v.Lock()
	defer v.Unlock()
	v.threshold = t
}

// Enable turns the level detection on or off. Audio is forwarded in
// both cases.
func (v *Vox) Enable(on bool) {
	v.Lock()
	defer v.Unlock()
	v.enabled = on
	if !on && v.active {
		v.active = false
		v.notify(false)
	}
}

// calculate the root mean square for a non-interlaced audio
// frame
func rms(data []float32) (float32, error) {
	if len(data) == 0 {
		return 0, errors.New("empty slice provided")
	}

	var sum float32
	for _, el := range data {
		sum += el * el
	}

	return math32.Sqrt(sum / float32(len(data))), nil
}

func (v *Vox) multiChannelWarning() {
	v.chWarning.Do(func() {
		v.logger.Warn("multiple input channels detected; RMS for Vox will be calculated over all channel samples")
	})
}
