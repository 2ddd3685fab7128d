// Package metrics exposes the state of a station as Prometheus metrics.
package metrics

import (
	"github.com/dh1tw/ribbit/modem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ribbit"

// Collector holds the Prometheus collectors of a station. It implements
// modem.Observer and can be attached to a decoder next to the trx.
type Collector struct {
	locked      prometheus.Counter
	dropped     *prometheus.CounterVec
	delivered   prometheus.Counter
	sent        prometheus.Counter
	snr         prometheus.Gauge
	cfo         prometheus.Gauge
	channelBusy prometheus.Gauge
}

// NewCollector registers the station metrics with reg. A nil reg
// registers with the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		locked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_locked_total",
			Help:      "Number of frames the decoder locked on to",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Number of discarded frame candidates by reason",
		}, []string{"reason"}),
		delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_delivered_total",
			Help:      "Number of payloads which passed the checksum",
		}),
		sent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Number of transmitted frames",
		}),
		snr: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snr_db",
			Help:      "Estimated SNR of the last locked frame in dB",
		}),
		cfo: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cfo_hz",
			Help:      "Estimated carrier frequency offset of the last locked frame in Hz",
		}),
		channelBusy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_busy",
			Help:      "1 while the carrier sense detects activity",
		}),
	}
}

// Locked implements modem.Observer.
func (c *Collector) Locked(info modem.LockInfo) {
	c.locked.Inc()
	c.snr.Set(info.SNR)
	c.cfo.Set(info.CFO)
}

// FrameDropped implements modem.Observer.
func (c *Collector) FrameDropped(r modem.Reason) {
	c.dropped.WithLabelValues(r.String()).Inc()
}

// Delivered implements modem.Observer.
func (c *Collector) Delivered() {
	c.delivered.Inc()
}

// Sent counts a transmitted frame.
func (c *Collector) Sent() {
	c.sent.Inc()
}

// SetChannelBusy records the carrier sense state.
func (c *Collector) SetChannelBusy(busy bool) {
	if busy {
		c.channelBusy.Set(1)
		return
	}
	c.channelBusy.Set(0)
}
