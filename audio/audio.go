// Package audio contains the plumbing which moves samples between sound
// cards, wav files and the modem. Sources produce Msgs, Nodes transform or
// consume them and Sinks play or store them.
package audio

// OnDataCb is executed by a Source or Node whenever a new buffer is ready.
type OnDataCb func(Msg)

// Source is the interface which is implemented by an audio source. This
// could be a local sound card (e.g. microphone), a wav file or the
// modulator.
type Source interface {
	Start() error
	Stop() error
	Close() error
	SetCb(OnDataCb)
}

// Sink is the interface which is implemented by an audio sink. This could
// be a sound card or a wav file for recording.
type Sink interface {
	Start() error
	Stop() error
	Close() error
	SetVolume(float32)
	Volume() float32
	Write(Msg) error
	Flush()
}

// Node sits between a Source and its consumers. It receives Msgs through
// Write and forwards its results through the callback.
type Node interface {
	Write(Msg) error
	SetCb(OnDataCb)
}

// Msg contains an audio buffer with its metadata. Data holds Frames
// interleaved sample frames of Channels samples each.
type Msg struct {
	Data       []float32
	Samplerate float64
	Channels   int
	Frames     int
	EOF        bool // End of File
}
