package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/chain"
	"github.com/dh1tw/ribbit/audio/nodes/demodulator"
	"github.com/dh1tw/ribbit/audio/nodes/vox"
	"github.com/dh1tw/ribbit/audio/sinks/scWriter"
	"github.com/dh1tw/ribbit/audio/sources/scReader"
	"github.com/dh1tw/ribbit/modem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addAudioFlags adds the sound card flags shared by the commands which
// access the audio devices.
func addAudioFlags(cmd *cobra.Command) {
	cmd.Flags().String("host-api", "default", "audio host API (see 'ribbit enumerate')")
	cmd.Flags().StringP("input-device-name", "i", "default", "input device")
	cmd.Flags().Float64("input-device-samplerate", 48000, "input device sampling rate")
	cmd.Flags().Duration("input-device-latency", time.Millisecond*5, "input latency")
	cmd.Flags().Int("input-device-channels", 1, "input channels")
	cmd.Flags().StringP("output-device-name", "o", "default", "output device")
	cmd.Flags().Float64("output-device-samplerate", 48000, "output device sampling rate")
	cmd.Flags().Duration("output-device-latency", time.Millisecond*5, "output latency")
	cmd.Flags().Int("output-device-channels", 2, "output channels")
	cmd.Flags().Int("frame-length", 960, "frames per buffer of the audio devices")
	cmd.Flags().Int("tx-buffer-length", 10, "playback buffers")
	cmd.Flags().Float64("vox-threshold", 0.05, "RMS level above which the channel is considered busy")
	cmd.Flags().Duration("vox-hold-time", time.Millisecond*500, "time the channel stays busy after the level dropped")
}

// bindAudioFlags binds the flags of addAudioFlags to the viper keys. It
// must be called when the command runs, since several commands share the
// same keys.
func bindAudioFlags(cmd *cobra.Command) {
	viper.BindPFlag("audio.host-api", cmd.Flags().Lookup("host-api"))
	viper.BindPFlag("input-device.device-name", cmd.Flags().Lookup("input-device-name"))
	viper.BindPFlag("input-device.samplerate", cmd.Flags().Lookup("input-device-samplerate"))
	viper.BindPFlag("input-device.latency", cmd.Flags().Lookup("input-device-latency"))
	viper.BindPFlag("input-device.channels", cmd.Flags().Lookup("input-device-channels"))
	viper.BindPFlag("output-device.device-name", cmd.Flags().Lookup("output-device-name"))
	viper.BindPFlag("output-device.samplerate", cmd.Flags().Lookup("output-device-samplerate"))
	viper.BindPFlag("output-device.latency", cmd.Flags().Lookup("output-device-latency"))
	viper.BindPFlag("output-device.channels", cmd.Flags().Lookup("output-device-channels"))
	viper.BindPFlag("audio.frame-length", cmd.Flags().Lookup("frame-length"))
	viper.BindPFlag("audio.tx-buffer-length", cmd.Flags().Lookup("tx-buffer-length"))
	viper.BindPFlag("audio.vox-threshold", cmd.Flags().Lookup("vox-threshold"))
	viper.BindPFlag("audio.vox-hold-time", cmd.Flags().Lookup("vox-hold-time"))
}

// newSpeaker opens the output device. The speaker blocks its writers
// while the playback buffer is full, so it paces the modulator.
func newSpeaker() (*scWriter.ScWriter, error) {
	speaker, err := scWriter.NewScWriter(
		scWriter.HostAPI(viper.GetString("audio.host-api")),
		scWriter.DeviceName(viper.GetString("output-device.device-name")),
		scWriter.Channels(viper.GetInt("output-device.channels")),
		scWriter.Samplerate(viper.GetFloat64("output-device.samplerate")),
		scWriter.Latency(viper.GetDuration("output-device.latency")),
		scWriter.FramesPerBuffer(viper.GetInt("audio.frame-length")),
		scWriter.RingBufferSize(viper.GetInt("audio.tx-buffer-length")),
		scWriter.Blocking(true),
		scWriter.Logger(slog.Default().With("device", "speaker")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to open speaker: %w", err)
	}
	return speaker, nil
}

// newMic opens the input device which delivers its audio to cb.
func newMic(cb audio.OnDataCb) (*scReader.ScReader, error) {
	mic, err := scReader.NewScReader(
		scReader.HostAPI(viper.GetString("audio.host-api")),
		scReader.DeviceName(viper.GetString("input-device.device-name")),
		scReader.Channels(viper.GetInt("input-device.channels")),
		scReader.Samplerate(viper.GetFloat64("input-device.samplerate")),
		scReader.Latency(viper.GetDuration("input-device.latency")),
		scReader.FramesPerBuffer(viper.GetInt("audio.frame-length")),
		scReader.Callback(cb),
		scReader.Logger(slog.Default().With("device", "mic")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to open microphone: %w", err)
	}
	return mic, nil
}

// receiver chains a carrier sense vox in front of a demodulator. The
// sources write into its Source callback.
type receiver struct {
	*chain.Chain
	demod *demodulator.Demodulator
}

func newReceiver(onPayload func([]byte), onBusy func(bool), obs modem.Observer) (*receiver, error) {
	demod, err := demodulator.New(
		demodulator.OnPayload(onPayload),
		demodulator.Observer(obs),
	)
	if err != nil {
		return nil, err
	}

	v := vox.New(
		vox.Threshold(float32(viper.GetFloat64("audio.vox-threshold"))),
		vox.HoldTime(viper.GetDuration("audio.vox-hold-time")),
		vox.StateChanged(onBusy),
	)

	c, err := chain.NewChain(chain.Node(v), chain.Node(demod))
	if err != nil {
		demod.Close()
		return nil, err
	}

	return &receiver{Chain: c, demod: demod}, nil
}

func (r *receiver) Close() error {
	return r.demod.Close()
}
