package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/sinks/wavWriter"
	"github.com/dh1tw/ribbit/audio/sources/modulator"
	"github.com/dh1tw/ribbit/utils"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var txCmd = &cobra.Command{
	Use:   "tx [flags] message",
	Short: "Transmit a single message",
	Long: `Transmit a single message through the speaker or into a wav file.

The message is UTF-8 text of up to 256 bytes; longer text is truncated. With
--hex the arguments are interpreted as hex encoded binary payload.

	$ ribbit tx "Hello World!"
	$ ribbit tx --file hello.wav "Hello World!"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: transmitOnce,
}

func init() {
	RootCmd.AddCommand(txCmd)
	addAudioFlags(txCmd)
	txCmd.Flags().StringP("file", "f", "", "write the frame into this wav file instead of playing it")
	txCmd.Flags().Bool("hex", false, "the message is a hex encoded payload")
	txCmd.Flags().Int("file-samplerate", waveform.SampleRate, "sampling rate of the wav file")
}

// payloadFromArgs returns the payload of a message given on the command
// line.
func payloadFromArgs(args []string, isHex bool) ([]byte, error) {
	msg := strings.Join(args, " ")
	if msg == "" {
		return nil, errors.New("empty message")
	}
	if !isHex {
		return utils.PadPayload(msg, waveform.PayloadBytes), nil
	}
	b, err := hex.DecodeString(strings.ReplaceAll(msg, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	if len(b) > waveform.PayloadBytes {
		return nil, fmt.Errorf("payload of %d bytes exceeds %d bytes", len(b), waveform.PayloadBytes)
	}
	p := make([]byte, waveform.PayloadBytes)
	copy(p, b)
	return p, nil
}

func transmitOnce(cmd *cobra.Command, args []string) error {
	bindAudioFlags(cmd)

	isHex, _ := cmd.Flags().GetBool("hex")
	payload, err := payloadFromArgs(args, isHex)
	if err != nil {
		return err
	}

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		rate, _ := cmd.Flags().GetInt("file-samplerate")
		return transmitToFile(file, float64(rate), payload)
	}

	if err := checkAudioParameterValues(); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("unable to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	speaker, err := newSpeaker()
	if err != nil {
		return err
	}
	defer speaker.Close()

	sent := make(chan struct{})
	mod, err := modulator.New(
		// the blocking speaker paces the modulator
		modulator.Realtime(false),
		modulator.Callback(func(msg audio.Msg) {
			if err := speaker.Write(msg); err != nil {
				slog.Error("speaker", "error", err)
			}
		}),
		modulator.OnSent(func([]byte) { close(sent) }),
	)
	if err != nil {
		return err
	}
	defer mod.Close()

	if err := speaker.Start(); err != nil {
		return err
	}
	if err := mod.Send(payload); err != nil {
		return err
	}
	if err := mod.Start(); err != nil {
		return err
	}

	start := time.Now()
	<-sent
	for speaker.Pending() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	// the last buffer is still in the device
	time.Sleep(viper.GetDuration("output-device.latency") + 100*time.Millisecond)
	slog.Info("message sent", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func transmitToFile(file string, rate float64, payload []byte) error {
	samples, err := modulator.Frame(payload)
	if err != nil {
		return err
	}

	w, err := wavWriter.NewWavWriter(file,
		wavWriter.Samplerate(rate),
		wavWriter.Channels(1),
	)
	if err != nil {
		return err
	}

	msg := audio.Msg{
		Data:       samples,
		Samplerate: waveform.SampleRate,
		Channels:   1,
		Frames:     len(samples),
		EOF:        true,
	}
	if err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	slog.Info("frame written", "file", file, "samples", len(samples))
	return nil
}
