// Package metrics exposes Prometheus metrics for one door link and the
// bridge around it.
//
// A Recorder owns its own registry, so several bridges (or tests) in one
// process never collide on metric registration. It implements
// petdoor.Observer and is attached with Client.SetObserver.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

const namespace = "petdoor"

// Recorder collects door link and bridge metrics.
//
// Thread Safety: all methods are safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	messagesSent      *prometheus.CounterVec
	messagesReceived  *prometheus.CounterVec
	receiptTimeouts   *prometheus.CounterVec
	keepAliveFailures prometheus.Counter
	connectionState   *prometheus.GaugeVec
	latency           prometheus.Histogram

	commands    *prometheus.CounterVec
	battery     prometheus.Gauge
	doorOpen    prometheus.Gauge
	openCycles  prometheus.Gauge
	scheduleOps *prometheus.CounterVec
}

var _ petdoor.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder whose metrics carry a door_id label. Go
// runtime and process collectors are registered alongside.
func NewRecorder(doorID string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	labels := prometheus.Labels{"door_id": doorID}

	return &Recorder{
		registry: reg,

		messagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_sent_total",
			Help:        "Messages written to the door, by command and priority.",
			ConstLabels: labels,
		}, []string{"command", "priority"}),
		messagesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_received_total",
			Help:        "Messages read from the door, by command and outcome.",
			ConstLabels: labels,
		}, []string{"command", "result"}),
		receiptTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "receipt_timeouts_total",
			Help:        "Commands the door did not acknowledge in time, by whether they were dropped.",
			ConstLabels: labels,
		}, []string{"command", "action"}),
		keepAliveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "keepalive_failures_total",
			Help:        "PINGs that went unanswered.",
			ConstLabels: labels,
		}),
		connectionState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connection_state",
			Help:        "1 for the current connection state of the door link, 0 otherwise.",
			ConstLabels: labels,
		}, []string{"state"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "ping_latency_seconds",
			Help:        "PING to PONG round trip time.",
			ConstLabels: labels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bridge_commands_total",
			Help:        "Commands received over MQTT, by action and result.",
			ConstLabels: labels,
		}, []string{"action", "result"}),
		battery: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "battery_percent",
			Help:        "Last reported battery charge.",
			ConstLabels: labels,
		}),
		doorOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "door_open",
			Help:        "1 while the flap is anywhere but closed.",
			ConstLabels: labels,
		}),
		openCycles: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "open_cycles",
			Help:        "Lifetime open cycles reported by the door.",
			ConstLabels: labels,
		}),
		scheduleOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "schedule_rows_changed_total",
			Help:        "Schedule rows written to the door, by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
	}
}

// Registry returns the registry holding the Recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MessageSent implements petdoor.Observer.
func (r *Recorder) MessageSent(command string, priority protocol.Priority) {
	r.messagesSent.WithLabelValues(command, priority.String()).Inc()
}

// MessageReceived implements petdoor.Observer.
func (r *Recorder) MessageReceived(command string, success bool) {
	r.messagesReceived.WithLabelValues(command, result(success)).Inc()
}

// StateChanged implements petdoor.Observer.
func (r *Recorder) StateChanged(state petdoor.State) {
	for _, s := range []petdoor.State{
		petdoor.StateDisconnected,
		petdoor.StateConnecting,
		petdoor.StateConnected,
		petdoor.StateShuttingDown,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		r.connectionState.WithLabelValues(s.String()).Set(v)
	}
}

// Latency implements petdoor.Observer.
func (r *Recorder) Latency(d time.Duration) {
	r.latency.Observe(d.Seconds())
}

// ReceiptTimeout implements petdoor.Observer.
func (r *Recorder) ReceiptTimeout(command string, dropped bool) {
	action := "retry"
	if dropped {
		action = "dropped"
	}
	r.receiptTimeouts.WithLabelValues(command, action).Inc()
}

// KeepAliveFailure implements petdoor.Observer.
func (r *Recorder) KeepAliveFailure(int) {
	r.keepAliveFailures.Inc()
}

// Command counts an MQTT command by action, failed when err is non-nil.
func (r *Recorder) Command(action string, err error) {
	r.commands.WithLabelValues(action, result(err == nil)).Inc()
}

// Battery records the last reported charge.
func (r *Recorder) Battery(percent int) {
	r.battery.Set(float64(percent))
}

// DoorOpen records whether the flap is open.
func (r *Recorder) DoorOpen(open bool) {
	if open {
		r.doorOpen.Set(1)
		return
	}
	r.doorOpen.Set(0)
}

// OpenCycles records the door's lifetime cycle counter.
func (r *Recorder) OpenCycles(n int) {
	r.openCycles.Set(float64(n))
}

// ScheduleChanged counts rows deleted and added by a schedule sync.
func (r *Recorder) ScheduleChanged(deleted, added int) {
	r.scheduleOps.WithLabelValues("delete").Add(float64(deleted))
	r.scheduleOps.WithLabelValues("add").Add(float64(added))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
