package truetime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics about synchronization. Nil *Metrics is valid and records nothing
type Metrics struct {
	syncAttempts   *prometheus.CounterVec
	serverFailures *prometheus.CounterVec
	coalesced      prometheus.Counter
	offset         prometheus.Gauge
	synced         prometheus.Gauge
}

const metricsNamespace = "truetime"

//NewMetrics creates and registers collectors
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		syncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_attempts_total",
			Help:      "Synchronization attempts by mode and result",
		}, []string{"mode", "result"}),
		serverFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "server_failures_total",
			Help:      "Failed time server exchanges by host",
		}, []string{"host"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "coalesced_requests_total",
			Help:      "Asynchronous sync requests joined to already running sync",
		}),
		offset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "wall_clock_offset_milliseconds",
			Help:      "Corrected time minus local wall clock at latest sync",
		}),
		synced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "synced",
			Help:      "1 after first successful sync",
		}),
	}
	for _, c := range []prometheus.Collector{m.syncAttempts, m.serverFailures, m.coalesced, m.offset, m.synced} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) syncDone(mode string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "fail"
	}
	m.syncAttempts.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) anchorSet(offsetMillis int64) {
	if m == nil {
		return
	}
	m.offset.Set(float64(offsetMillis))
	m.synced.Set(1)
}

//ServerFailed counts failed exchange. Matches timesync.NtpSync.ServerFailed
func (m *Metrics) ServerFailed(host string, err error) {
	if m == nil {
		return
	}
	m.serverFailures.WithLabelValues(host).Inc()
}

func (m *Metrics) coalescedRequest() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}
