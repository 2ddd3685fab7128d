// Copyright © 2016 Tobias Wellnitz, DH1TW <Tobias.Wellnitz@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.


package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/sinks/wavWriter"
	"github.com/dh1tw/ribbit/audio/sources/modulator"
	"github.com/dh1tw/ribbit/comms"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/metrics"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/trx"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/dh1tw/ribbit/webserver"
	"github.com/gordonklaus/portaudio"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a station with web interface",
	Long: `Run a ribbit station.

The station listens continuously on the microphone and transmits the
messages composed in the web interface, typed on stdin or received from a
message broker. Received messages are shown in the web interface and can
be forwarded to a NATS and/or MQTT broker.

	$ ribbit serve --station mystation --nats-url nats://localhost:4222

In order to find the supported audio devices and audio host APIs
for your platform run:

	$ ribbit enumerate
`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	addAudioFlags(serveCmd)
	serveCmd.Flags().StringP("station", "X", "mystation", "station name, used as broker topic prefix")
	serveCmd.Flags().StringP("host", "w", "127.0.0.1", "Host (use '0.0.0.0' to listen on all network adapters)")
	serveCmd.Flags().IntP("port", "k", 9090, "Port to access the web interface")
	serveCmd.Flags().Bool("keyboard", false, "transmit the lines typed on stdin")
	serveCmd.Flags().String("record", "", "record the transmitted audio into this wav file")
	serveCmd.Flags().Int("history", 100, "number of messages kept in the history")

	serveCmd.Flags().String("nats-url", "", "NATS broker URL, e.g. nats://localhost:4222")
	serveCmd.Flags().String("nats-username", "", "NATS Username")
	serveCmd.Flags().String("nats-password", "", "NATS Password")
	serveCmd.Flags().String("mqtt-url", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	serveCmd.Flags().String("mqtt-username", "", "MQTT Username")
	serveCmd.Flags().String("mqtt-password", "", "MQTT Password")
	serveCmd.Flags().String("mqtt-client-id", "", "MQTT Client Id (random if empty)")
}

func serve(cmd *cobra.Command, args []string) error {

	// bind the pflags to viper settings
	bindAudioFlags(cmd)
	viper.BindPFlag("station.name", cmd.Flags().Lookup("station"))
	viper.BindPFlag("station.keyboard", cmd.Flags().Lookup("keyboard"))
	viper.BindPFlag("station.record", cmd.Flags().Lookup("record"))
	viper.BindPFlag("station.history", cmd.Flags().Lookup("history"))
	viper.BindPFlag("web.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("web.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("nats.url", cmd.Flags().Lookup("nats-url"))
	viper.BindPFlag("nats.username", cmd.Flags().Lookup("nats-username"))
	viper.BindPFlag("nats.password", cmd.Flags().Lookup("nats-password"))
	viper.BindPFlag("mqtt.url", cmd.Flags().Lookup("mqtt-url"))
	viper.BindPFlag("mqtt.username", cmd.Flags().Lookup("mqtt-username"))
	viper.BindPFlag("mqtt.password", cmd.Flags().Lookup("mqtt-password"))
	viper.BindPFlag("mqtt.client-id", cmd.Flags().Lookup("mqtt-client-id"))

	// check if values from config file / pflags are valid
	if err := checkAudioParameterValues(); err != nil {
		return err
	}
	if port := viper.GetInt("web.port"); port < 0 || port > 65535 {
		return &parmError{parm: "web.port", msg: "allowed values are [0...65535]"}
	}

	stationName := validateSubject(viper.GetString("station.name"))

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("unable to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	// event PubSub
	evPS := pubsub.New(10)
	defer evPS.Shutdown()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// transmit path: modulator -> router -> speaker (and recorder)
	speaker, err := newSpeaker()
	if err != nil {
		return err
	}
	defer speaker.Close()

	rtr := audio.NewDefaultRouter()
	rtr.AddSink("speaker", speaker, true)

	if file := viper.GetString("station.record"); file != "" {
		recorder, err := wavWriter.NewWavWriter(file,
			wavWriter.Samplerate(waveform.SampleRate),
			wavWriter.Channels(1),
		)
		if err != nil {
			return err
		}
		defer recorder.Close()
		rtr.AddSink("recorder", recorder, true)
	}

	// the trx is created after the modulator
	var tr *trx.Trx

	mod, err := modulator.New(
		modulator.Realtime(false),
		modulator.Callback(func(msg audio.Msg) {
			if err := rtr.Write(msg); err != nil {
				slog.Error("tx audio", "error", err)
			}
		}),
		modulator.OnSent(func(p []byte) {
			collector.Sent()
			tr.Sent(p)
		}),
	)
	if err != nil {
		return err
	}
	defer mod.Close()

	// brokers
	var bridges []comms.Bridge
	var forwarders []trx.Forwarder
	sender := &lateSender{}

	if url := viper.GetString("nats.url"); url != "" {
		b, err := comms.NewNatsBridge(comms.Settings{
			URL:      url,
			Username: viper.GetString("nats.username"),
			Password: viper.GetString("nats.password"),
			ClientID: "ribbit-" + stationName,
			Base:     "ribbit." + stationName,
			Sender:   sender,
			Events:   evPS,
		})
		if err != nil {
			return err
		}
		bridges = append(bridges, b)
	}

	if url := viper.GetString("mqtt.url"); url != "" {
		clientID := viper.GetString("mqtt.client-id")
		if clientID == "" {
			clientID = "ribbit-" + uuid.NewString()[:8]
		}
		b, err := comms.NewMqttBridge(comms.Settings{
			URL:      url,
			Username: viper.GetString("mqtt.username"),
			Password: viper.GetString("mqtt.password"),
			ClientID: clientID,
			Base:     "ribbit/" + stationName,
			Sender:   sender,
			Events:   evPS,
		})
		if err != nil {
			return err
		}
		bridges = append(bridges, b)
	}

	for _, b := range bridges {
		forwarders = append(forwarders, b)
		defer b.Close()
	}

	tr, err = trx.NewTrx(trx.Options{
		Transmitter:   mod,
		Events:        evPS,
		Forwarders:    forwarders,
		HistoryLength: viper.GetInt("station.history"),
	})
	if err != nil {
		return err
	}
	sender.Store(tr)

	// receive path: mic -> vox -> demodulator -> trx
	rx, err := newReceiver(tr.Receive, func(busy bool) {
		tr.SetChannelBusy(busy)
		collector.SetChannelBusy(busy)
	}, modem.Observers(tr, collector))
	if err != nil {
		return err
	}
	defer rx.Close()

	mic, err := newMic(rx.Source)
	if err != nil {
		return err
	}
	defer mic.Close()

	web, err := webserver.NewWebServer(
		viper.GetString("web.host"), viper.GetInt("web.port"),
		tr, evPS, webserver.Gatherer(reg))
	if err != nil {
		return err
	}

	// subscribe before anything can publish
	sendTextCh := evPS.Sub(events.SendText)
	osExitCh := evPS.Sub(events.OsExit)
	webErrCh := make(chan error, 1)

	go events.WatchSystemEvents(evPS)
	if viper.GetBool("station.keyboard") {
		go func() {
			if err := events.CaptureKeyboard(os.Stdin, evPS); err != nil {
				slog.Warn("keyboard", "error", err)
			}
		}()
	}
	go func() {
		webErrCh <- web.Start()
	}()

	if err := speaker.Start(); err != nil {
		return err
	}
	if err := mod.Start(); err != nil {
		return err
	}
	if err := mic.Start(); err != nil {
		return err
	}
	slog.Info("station ready", "station", stationName)

	for {
		select {
		case ev := <-sendTextCh:
			text, ok := ev.(string)
			if !ok {
				continue
			}
			if _, err := tr.Send(text); err != nil {
				slog.Warn("unable to send", "error", err)
			}

		case err := <-webErrCh:
			if err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil

		case <-osExitCh:
			slog.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// drain the subscriptions, Pub must not block during shutdown
			go func() {
				for range sendTextCh {
				}
			}()
			if err := web.Shutdown(ctx); err != nil {
				slog.Warn("web server shutdown", "error", err)
			}
			return nil
		}
	}
}

// lateSender hands the requests from the brokers to the trx, which does
// not exist yet when the bridges connect.
type lateSender struct {
	atomic.Pointer[trx.Trx]
}

func (s *lateSender) Send(text string) (trx.Message, error) {
	t := s.Load()
	if t == nil {
		return trx.Message{}, errors.New("station not ready")
	}
	return t.Send(text)
}

func (s *lateSender) SendPayload(p []byte) (trx.Message, error) {
	t := s.Load()
	if t == nil {
		return trx.Message{}, errors.New("station not ready")
	}
	return t.SendPayload(p)
}
