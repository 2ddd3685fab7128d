package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/sources/wavReader"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/utils"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rxCmd = &cobra.Command{
	Use:   "rx",
	Short: "Receive messages",
	Long: `Listen on the microphone (or read a wav file) and print every
received message to stdout.

	$ ribbit rx
	$ ribbit rx --file hello.wav
`,
	Args: cobra.NoArgs,
	RunE: receive,
}

func init() {
	RootCmd.AddCommand(rxCmd)
	addAudioFlags(rxCmd)
	rxCmd.Flags().StringP("file", "f", "", "decode this wav file instead of listening on the microphone")
	rxCmd.Flags().Bool("hex", false, "print the payloads hex encoded")
}

// logObserver logs the decoder telemetry.
type logObserver struct{}

func (logObserver) Locked(info modem.LockInfo) {
	slog.Debug("locked", "start", info.Start, "cfo", fmt.Sprintf("%.1f", info.CFO), "snr", fmt.Sprintf("%.1f", info.SNR))
}

func (logObserver) FrameDropped(r modem.Reason) {
	if r == modem.ReasonSync {
		return
	}
	slog.Info("frame dropped", "reason", r)
}

func (logObserver) Delivered() {}

func receive(cmd *cobra.Command, args []string) error {
	bindAudioFlags(cmd)

	printHex, _ := cmd.Flags().GetBool("hex")
	show := func(p []byte) {
		if printHex {
			fmt.Printf("%x\n", p)
			return
		}
		fmt.Println(utils.TrimPayload(p))
	}

	rx, err := newReceiver(show, func(busy bool) {
		slog.Debug("channel", "busy", busy)
	}, logObserver{})
	if err != nil {
		return err
	}
	defer rx.Close()

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		return receiveFromFile(file, rx)
	}

	if err := checkAudioParameterValues(); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("unable to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	mic, err := newMic(rx.Source)
	if err != nil {
		return err
	}
	defer mic.Close()

	if err := mic.Start(); err != nil {
		return err
	}
	slog.Info("listening", "device", viper.GetString("input-device.device-name"))

	ps := pubsub.New(1)
	defer ps.Shutdown()
	exitCh := ps.Sub(events.OsExit)
	go events.WatchSystemEvents(ps)
	<-exitCh
	return nil
}

func receiveFromFile(file string, rx *receiver) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := wavReader.New(f, wavReader.Realtime(false))
	if err != nil {
		return err
	}
	r.SetCb(rx.Source)

	start := time.Now()
	if err := r.Start(); err != nil {
		return err
	}
	<-r.Done()

	// trailing silence lets a frame at the very end of the file complete
	rx.Source(audio.Msg{
		Data:       make([]float32, waveform.FrameLength),
		Samplerate: waveform.SampleRate,
		Channels:   1,
		Frames:     waveform.FrameLength,
	})
	slog.Debug("file decoded", "file", file, "duration", r.Duration(), "took", time.Since(start))
	return nil
}
