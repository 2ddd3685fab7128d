package cmd

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/nodes/demodulator"
	"github.com/dh1tw/ribbit/audio/sources/modulator"
	"github.com/dh1tw/ribbit/dsp"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/spf13/cobra"
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Measure the decoding performance on a simulated channel",
	Long: `Modulate random payloads, pass them through a channel with additive
white Gaussian noise and a random delay, decode them and print the
statistics.

	$ ribbit loopback --snr 6 --frames 50
`,
	Args: cobra.NoArgs,
	RunE: loopback,
}

func init() {
	RootCmd.AddCommand(loopbackCmd)
	loopbackCmd.Flags().Float64("snr", 10, "signal to noise ratio in dB")
	loopbackCmd.Flags().Int("frames", 10, "number of frames to transmit")
	loopbackCmd.Flags().Int64("seed", 1, "seed of the random generator")
	loopbackCmd.Flags().Int("block", 160, "samples per block fed into the decoder")
}

// stats counts the decoder telemetry.
type stats struct {
	locked    int
	dropped   map[modem.Reason]int
	delivered int
	snr       float64
}

func (s *stats) Locked(info modem.LockInfo) {
	s.locked++
	s.snr += info.SNR
}

func (s *stats) FrameDropped(r modem.Reason) { s.dropped[r]++ }

func (s *stats) Delivered() { s.delivered++ }

func loopback(cmd *cobra.Command, args []string) error {
	snr, _ := cmd.Flags().GetFloat64("snr")
	frames, _ := cmd.Flags().GetInt("frames")
	seed, _ := cmd.Flags().GetInt64("seed")
	block, _ := cmd.Flags().GetInt("block")
	if frames <= 0 {
		return &parmError{parm: "frames", msg: "value must be > 0"}
	}
	if block <= 0 {
		return &parmError{parm: "block", msg: "value must be > 0"}
	}

	rng := rand.New(rand.NewSource(seed))
	st := &stats{dropped: make(map[modem.Reason]int)}

	var received [][]byte
	demod, err := demodulator.New(
		demodulator.Observer(st),
		demodulator.OnPayload(func(p []byte) { received = append(received, p) }),
	)
	if err != nil {
		return err
	}
	defer demod.Close()

	start := time.Now()
	correct := 0
	for i := 0; i < frames; i++ {
		payload := make([]byte, waveform.PayloadBytes)
		rng.Read(payload)

		frame, err := modulator.Frame(payload)
		if err != nil {
			return err
		}

		delay := rng.Intn(waveform.FrameLength)
		signal := make([]float32, delay+len(frame)+waveform.FrameLength)
		copy(signal[delay:], frame)
		dsp.AddNoise(signal, dsp.Power(frame), snr, rng)

		received = received[:0]
		for off := 0; off < len(signal); off += block {
			end := min(off+block, len(signal))
			chunk := signal[off:end]
			if err := demod.Write(audio.Msg{
				Data:       chunk,
				Samplerate: waveform.SampleRate,
				Channels:   1,
				Frames:     len(chunk),
			}); err != nil {
				return err
			}
		}
		for _, p := range received {
			if bytes.Equal(p, payload) {
				correct++
				break
			}
		}
	}

	fmt.Printf("snr:        %.1f dB\n", snr)
	fmt.Printf("frames:     %d\n", frames)
	fmt.Printf("locked:     %d\n", st.locked)
	fmt.Printf("delivered:  %d\n", st.delivered)
	fmt.Printf("correct:    %d (%.1f%%)\n", correct, 100*float64(correct)/float64(frames))
	for _, r := range []modem.Reason{modem.ReasonSync, modem.ReasonHeader, modem.ReasonChecksum, modem.ReasonOverrun} {
		fmt.Printf("dropped %-9s %d\n", r.String()+":", st.dropped[r])
	}
	if st.locked > 0 {
		fmt.Printf("mean snr:   %.1f dB (estimated)\n", st.snr/float64(st.locked))
	}
	fmt.Printf("took:       %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}
