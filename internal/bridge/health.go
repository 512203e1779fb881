package bridge

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
)

const (
	defaultHealthInterval = 30 * time.Second

	// silenceFactor times the report interval is how long a connected door
	// may go without sending anything before it is reported degraded. The
	// door client's own keepalive PINGs keep a healthy link well inside
	// this.
	silenceFactor = 4
)

// HealthReporter publishes the retained petdoor/health/{door_id} message:
// once when asked, and on a fixed interval while running.
type HealthReporter struct {
	doorID    string
	version   string
	started   time.Time
	interval  time.Duration
	qos       byte
	publisher HealthPublisher
	door      DoorMonitor
	logger    Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// HealthPublisher is the part of the MQTT client the reporter needs.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// DoorMonitor exposes the door link statistics included in each report.
type DoorMonitor interface {
	Stats() petdoor.ClientStats
	Host() string
	Port() int
}

// HealthReporterConfig configures NewHealthReporter. Door and Logger may be
// nil.
type HealthReporterConfig struct {
	DoorID  string
	Version string

	// Interval between periodic reports.
	// Default: 30s.
	Interval time.Duration

	QoS       byte
	Publisher HealthPublisher
	Door      DoorMonitor
	Logger    Logger
}

// NewHealthReporter returns a reporter that is idle until Start.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultHealthInterval
	}
	return &HealthReporter{
		doorID:    cfg.DoorID,
		version:   cfg.Version,
		started:   time.Now(),
		interval:  cfg.Interval,
		qos:       cfg.QoS,
		publisher: cfg.Publisher,
		door:      cfg.Door,
		logger:    cfg.Logger,
		done:      make(chan struct{}),
	}
}

// Start publishes the current status and then one report per interval
// until ctx ends or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			if err := h.PublishNow(); err != nil && h.logger != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends periodic reporting and leaves a retained "stopping" message.
// Calling it again does nothing.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		//nolint:errcheck // shutting down, the LWT covers a failed publish
		h.publish(HealthStopping, "")
	})
}

// PublishStarting publishes the "starting" status used before the door
// has been reached.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

// determineStatus reports healthy only when the broker is connected and
// the door link is up and recently active.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	switch {
	case h.publisher == nil || !h.publisher.IsConnected():
		return HealthDegraded, "MQTT disconnected"
	case h.door == nil:
		return HealthDegraded, "no door client"
	}

	stats := h.door.Stats()
	switch stats.State {
	case petdoor.StateConnected:
	case petdoor.StateConnecting:
		return HealthDegraded, "door connecting"
	default:
		return HealthDegraded, "door disconnected"
	}
	if !stats.LastActivity.IsZero() && time.Since(stats.LastActivity) > silenceFactor*h.interval {
		return HealthDegraded, "door silent"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		DoorID:        h.doorID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Reason:        reason,
	}
	if h.door != nil {
		msg.Door = newDoorLink(h.doorAddress(), h.door.Stats())
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(mqtt.Topics{}.Health(h.doorID), payload, h.qos, true)
}

func (h *HealthReporter) doorAddress() string {
	if h.door == nil {
		return ""
	}
	return net.JoinHostPort(h.door.Host(), strconv.Itoa(h.door.Port()))
}
