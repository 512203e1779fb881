package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/history"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// Bridge operation constants.
const (
	// commandQueueSize bounds commands waiting for the worker.
	commandQueueSize = 32

	// refreshTimeout bounds one full refresh of the door's state.
	refreshTimeout = time.Minute

	// pruneInterval is how often old history is pruned.
	pruneInterval = 6 * time.Hour

	// listenerName identifies the bridge's callbacks on the door client.
	listenerName = "bridge"
)

// Bridge connects one door to MQTT. It handles:
//   - Commands from petdoor/command/{door_id}/+ translated into door requests
//   - Door replies and events published as retained state per category
//   - Periodic refresh, health reporting and history pruning
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	doorID string
	door   Door
	broker Broker
	health *HealthReporter
	syncer *schedule.Syncer
	topics mqtt.Topics
	qos    byte

	telemetry Telemetry
	events    EventStore
	metrics   Metrics

	commandTimeout  time.Duration
	refreshInterval time.Duration
	retention       time.Duration

	// startSchedule is applied after the first successful connect.
	startSchedule map[schedule.Zone]map[time.Weekday][]schedule.Window
	scheduleDone  bool

	commands  chan inboundCommand
	refreshCh chan struct{}
	sub       petdoor.Subscription

	// States last published, by category, for the status API.
	states   map[string]StateMessage
	statesMu sync.RWMutex

	// lastBattery suppresses history rows for unchanged battery levels.
	lastBattery int

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

type inboundCommand struct {
	action string
	cmd    CommandMessage
}

// Door is the door link the bridge drives. *petdoor.Client satisfies it.
type Door interface {
	schedule.Device

	AddListener(l petdoor.Listener) petdoor.Subscription
	RemoveListener(sub petdoor.Subscription) bool
	AddHandlers(name string, h petdoor.Handlers)
	RemoveHandlers(name string) bool
	State() petdoor.State
	Stats() petdoor.ClientStats
	Host() string
	Port() int

	Open(ctx context.Context) error
	OpenAndHold(ctx context.Context) error
	Close(ctx context.Context) error
	SetPower(ctx context.Context, on bool) error
	SetInside(ctx context.Context, on bool) error
	SetOutside(ctx context.Context, on bool) error
	SetTimersEnabled(ctx context.Context, on bool) error
	SetCommandLockout(ctx context.Context, on bool) error
	SetAutoRetract(ctx context.Context, on bool) error
	SetHoldTime(ctx context.Context, d time.Duration) error
	SetTimezone(ctx context.Context, tz string) error

	RefreshSettings(ctx context.Context) (petdoor.Settings, error)
	DoorStatus(ctx context.Context) (petdoor.DoorStatus, error)
	Battery(ctx context.Context) (petdoor.Battery, error)
	OpenStats(ctx context.Context) (petdoor.Stats, error)
	HardwareInfo(ctx context.Context) (petdoor.HardwareInfo, error)
	Notifications(ctx context.Context) (petdoor.Notifications, error)
}

// Broker is the MQTT side of the bridge. *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Telemetry receives time-series points. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteLatency(doorID string, rtt time.Duration)
	WriteBattery(doorID string, percent int, present, acPresent bool)
	WriteOpenStats(doorID string, openCycles, autoRetracts int)
	WriteDoorStatus(doorID, status string, open bool)
	WriteConnection(doorID, state string)
}

// EventStore keeps door history. *history.SQLiteRepository satisfies it.
type EventStore interface {
	Record(ctx context.Context, e *history.Event) error
	SaveSchedule(ctx context.Context, doorID string, entries []schedule.Entry) error
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Metrics counts bridge activity. *metrics.Recorder satisfies it.
type Metrics interface {
	Command(action string, err error)
	Battery(percent int)
	DoorOpen(open bool)
	OpenCycles(n int)
	ScheduleChanged(deleted, added int)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// DoorID names the door in topics, telemetry and history.
	DoorID string

	// Door is the door client. Required.
	Door Door

	// Broker is the MQTT client. Required.
	Broker Broker

	// QoS for everything the bridge publishes and subscribes to.
	QoS byte

	// Version is reported in health messages.
	Version string

	// HealthInterval is how often health is published.
	// Default: 30 seconds.
	HealthInterval time.Duration

	// CommandTimeout bounds one command's door requests.
	// Default: 30 seconds.
	CommandTimeout time.Duration

	// RefreshInterval is how often the full door state is re-read. Zero
	// refreshes only after each connect.
	RefreshInterval time.Duration

	// Retention prunes history older than this. Zero keeps everything.
	Retention time.Duration

	// StartupSchedule, when set, replaces the named zones' schedules after
	// the first successful connect.
	StartupSchedule map[schedule.Zone]map[time.Weekday][]schedule.Window

	// Telemetry, Events, Metrics and Logger are optional.
	Telemetry Telemetry
	Events    EventStore
	Metrics   Metrics
	Logger    Logger
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.DoorID == "" {
		return nil, fmt.Errorf("door id is required")
	}
	if opts.Door == nil {
		return nil, fmt.Errorf("door client is required")
	}
	if opts.Broker == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	commandTimeout := opts.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		doorID:          opts.DoorID,
		door:            opts.Door,
		broker:          opts.Broker,
		qos:             opts.QoS,
		telemetry:       opts.Telemetry,
		events:          opts.Events,
		metrics:         opts.Metrics,
		commandTimeout:  commandTimeout,
		refreshInterval: opts.RefreshInterval,
		retention:       opts.Retention,
		startSchedule:   opts.StartupSchedule,
		commands:        make(chan inboundCommand, commandQueueSize),
		refreshCh:       make(chan struct{}, 1),
		states:          make(map[string]StateMessage),
		lastBattery:     -1,
		done:            make(chan struct{}),
		ctx:             ctx,
		ctxCancel:       cancel,
		logger:          opts.Logger,
	}
	if b.telemetry == nil {
		b.telemetry = noopTelemetry{}
	}
	if b.metrics == nil {
		b.metrics = noopMetrics{}
	}

	b.syncer = schedule.NewSyncer(opts.Door, b)
	b.health = NewHealthReporter(HealthReporterConfig{
		DoorID:    opts.DoorID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		QoS:       opts.QoS,
		Publisher: opts.Broker,
		Door:      opts.Door,
		Logger:    b,
	})

	return b, nil
}

// Start subscribes to commands, attaches to the door client and starts
// the worker, refresh, pruning and health goroutines.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() { err = b.start(ctx) })
	return err
}

func (b *Bridge) start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.Error("failed to publish starting status", "error", err)
	}

	b.sub = b.door.AddListener(b.listener())
	b.door.AddHandlers(listenerName, petdoor.Handlers{
		OnConnect:    b.onConnect,
		OnDisconnect: b.onDisconnect,
		OnPing:       b.onPing,
	})

	topic := b.topics.AllCommands(b.doorID)
	if err := b.broker.Subscribe(topic, b.qos, b.handleMQTTMessage); err != nil {
		b.door.RemoveListener(b.sub)
		b.door.RemoveHandlers(listenerName)
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.Info("subscribed to commands", "topic", topic)

	b.wg.Add(3)
	go b.commandLoop()
	go b.refreshLoop()
	go b.pruneLoop()

	b.health.Start(ctx)

	// A door that connected before Start gets its first refresh now.
	if b.door.State() == petdoor.StateConnected {
		b.requestRefresh()
	}

	b.Info("bridge started", "door_id", b.doorID, "door", fmt.Sprintf("%s:%d", b.door.Host(), b.door.Port()))
	return nil
}

// Stop unsubscribes, detaches from the door and waits for in-flight work.
// The door client itself is left running; its owner stops it.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()

		//nolint:errcheck // Best effort during shutdown
		b.broker.Unsubscribe(b.topics.AllCommands(b.doorID))
		b.door.RemoveListener(b.sub)
		b.door.RemoveHandlers(listenerName)

		b.wg.Wait()
		b.health.Stop()

		b.Info("bridge stopped")
	})
}

// handleMQTTMessage queues a command for the worker.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) error {
	action := b.topics.ActionFromTopic(b.doorID, topic)
	if action == "" {
		return fmt.Errorf("not a command topic: %s", topic)
	}

	cmd, err := parseCommand(payload)
	if err != nil {
		b.publishAck(action, cmd, fmt.Errorf("%w: %w", errInvalidParameters, err))
		return err
	}

	select {
	case b.commands <- inboundCommand{action: action, cmd: cmd}:
		return nil
	case <-b.done:
		return nil
	default:
		b.publishAck(action, cmd, errBusy)
		return errBusy
	}
}

func (b *Bridge) commandLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case in := <-b.commands:
			b.runCommand(in)
		}
	}
}

func (b *Bridge) runCommand(in inboundCommand) {
	ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
	defer cancel()

	b.Info("received command", "action", in.action, "command_id", in.cmd.ID)
	err := b.execute(ctx, in.action, in.cmd)
	if err != nil {
		b.Warn("command failed", "action", in.action, "error", err)
	}

	b.metrics.Command(in.action, err)
	b.publishAck(in.action, in.cmd, err)

	detail := map[string]any{"status": string(AckAccepted)}
	if err != nil {
		detail["status"] = string(AckFailed)
		detail["error"] = err.Error()
	}
	b.record(history.KindCommand, in.action, detail)
}

func (b *Bridge) publishAck(action string, cmd CommandMessage, err error) {
	b.publish(b.topics.Ack(b.doorID), newAck(b.doorID, action, cmd, err), false)
}

// requestRefresh asks the refresh loop for a full refresh without blocking.
func (b *Bridge) requestRefresh() {
	select {
	case b.refreshCh <- struct{}{}:
	default:
	}
}

func (b *Bridge) refreshLoop() {
	defer b.wg.Done()

	var tick <-chan time.Time
	if b.refreshInterval > 0 {
		ticker := time.NewTicker(b.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-b.done:
			return
		case <-b.refreshCh:
		case <-tick:
			if b.door.State() != petdoor.StateConnected {
				continue
			}
		}

		ctx, cancel := context.WithTimeout(b.ctx, refreshTimeout)
		b.applyStartupSchedule(ctx)
		if err := b.Refresh(ctx); err != nil {
			b.Warn("door refresh incomplete", "error", err)
		}
		cancel()
	}
}

// Refresh re-reads the door's state. Replies reach MQTT through the
// listeners; the schedule is read separately and published as a whole.
func (b *Bridge) Refresh(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"settings", func(ctx context.Context) error { _, err := b.door.RefreshSettings(ctx); return err }},
		{"door_status", func(ctx context.Context) error { _, err := b.door.DoorStatus(ctx); return err }},
		{"battery", func(ctx context.Context) error { _, err := b.door.Battery(ctx); return err }},
		{"stats", func(ctx context.Context) error { _, err := b.door.OpenStats(ctx); return err }},
		{"hardware", func(ctx context.Context) error { _, err := b.door.HardwareInfo(ctx); return err }},
		{"notifications", func(ctx context.Context) error { _, err := b.door.Notifications(ctx); return err }},
		{"schedule", b.refreshSchedule},
	}

	var errs []error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) refreshSchedule(ctx context.Context) error {
	rows, _, err := b.syncer.Current(ctx)
	if err != nil {
		return err
	}
	b.publishSchedule(ctx, rows)
	return nil
}

// applyStartupSchedule writes the configured schedule once, after the
// first connect.
func (b *Bridge) applyStartupSchedule(ctx context.Context) {
	if b.scheduleDone || len(b.startSchedule) == 0 {
		return
	}
	for _, z := range schedule.Zones {
		days, ok := b.startSchedule[z]
		if !ok {
			continue
		}
		if _, err := b.replaceZone(ctx, z, days); err != nil {
			b.Error("startup schedule failed", "zone", z.String(), "error", err)
			return
		}
	}
	b.scheduleDone = true
}

// replaceZone rewrites one zone's schedule and records the outcome.
func (b *Bridge) replaceZone(ctx context.Context, z schedule.Zone, days map[time.Weekday][]schedule.Window) (*schedule.SyncResult, error) {
	res, err := b.syncer.ReplaceZone(ctx, z, days)
	if err != nil {
		return nil, err
	}
	b.metrics.ScheduleChanged(len(res.Deleted), len(res.Added))
	if res.Changed() {
		b.record(history.KindSchedule, z.String(), map[string]any{
			"deleted": len(res.Deleted),
			"added":   len(res.Added),
		})
	}
	b.publishSchedule(ctx, res.Final)
	return res, nil
}

func (b *Bridge) publishSchedule(ctx context.Context, rows []schedule.Entry) {
	state := map[string]any{
		schedule.ZoneInside.String():  schedule.FormatWeek(schedule.ByDay(rows, schedule.ZoneInside)),
		schedule.ZoneOutside.String(): schedule.FormatWeek(schedule.ByDay(rows, schedule.ZoneOutside)),
		"rows":                        len(rows),
	}
	b.publishState(petdoor.CategorySchedule, state)

	if b.events != nil {
		if err := b.events.SaveSchedule(ctx, b.doorID, rows); err != nil {
			b.Error("failed to save schedule snapshot", "error", err)
		}
	}
}

func (b *Bridge) pruneLoop() {
	defer b.wg.Done()
	if b.events == nil || b.retention <= 0 {
		return
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		n, err := b.events.Prune(b.ctx, b.retention)
		if err != nil {
			b.Error("history prune failed", "error", err)
		} else if n > 0 {
			b.Info("history pruned", "events", n)
		}

		select {
		case <-b.done:
			return
		case <-ticker.C:
		}
	}
}

// publish marshals v and publishes it, logging failures.
func (b *Bridge) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.Error("failed to marshal message", "topic", topic, "error", err)
		return
	}
	if err := b.broker.Publish(topic, payload, b.qos, retained); err != nil {
		b.Warn("failed to publish", "topic", topic, "error", err)
	}
}

// publishState publishes and caches the retained state for a category.
func (b *Bridge) publishState(category petdoor.Category, state map[string]any) {
	msg := StateMessage{
		DoorID:    b.doorID,
		Category:  string(category),
		Timestamp: time.Now().UTC(),
		State:     state,
	}

	b.statesMu.Lock()
	b.states[msg.Category] = msg
	b.statesMu.Unlock()

	b.publish(b.topics.State(b.doorID, msg.Category), msg, true)
}

// record stores a history event, logging failures.
func (b *Bridge) record(kind history.Kind, value string, detail map[string]any) {
	if b.events == nil {
		return
	}
	e := &history.Event{DoorID: b.doorID, Kind: kind, Value: value, Detail: detail}
	if err := b.events.Record(b.ctx, e); err != nil && b.ctx.Err() == nil {
		b.Error("failed to record history", "kind", string(kind), "error", err)
	}
}

// Status is a point-in-time view of the bridge for the HTTP API.
type Status struct {
	DoorID        string                  `json:"door_id"`
	Health        HealthStatus            `json:"health"`
	Reason        string                  `json:"reason,omitempty"`
	MQTTConnected bool                    `json:"mqtt_connected"`
	Door          *DoorLink               `json:"door"`
	States        map[string]StateMessage `json:"states"`
}

// Status returns the bridge's current view of the door.
func (b *Bridge) Status() Status {
	health, reason := b.health.determineStatus()

	b.statesMu.RLock()
	states := make(map[string]StateMessage, len(b.states))
	for k, v := range b.states {
		states[k] = v
	}
	b.statesMu.RUnlock()

	return Status{
		DoorID:        b.doorID,
		Health:        health,
		Reason:        reason,
		MQTTConnected: b.broker.IsConnected(),
		Door:          newDoorLink(b.health.doorAddress(), b.door.Stats()),
		States:        states,
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// Debug, Info, Warn and Error log through the configured logger, if any.
// They let the bridge serve as the Logger of its own helpers.
func (b *Bridge) Debug(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Debug(msg, kv...)
	}
}

func (b *Bridge) Info(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, kv...)
	}
}

func (b *Bridge) Warn(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, kv...)
	}
}

func (b *Bridge) Error(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Error(msg, kv...)
	}
}

type noopTelemetry struct{}

func (noopTelemetry) WriteLatency(string, time.Duration)        {}
func (noopTelemetry) WriteBattery(string, int, bool, bool)      {}
func (noopTelemetry) WriteOpenStats(string, int, int)           {}
func (noopTelemetry) WriteDoorStatus(string, string, bool)      {}
func (noopTelemetry) WriteConnection(string, string)            {}

type noopMetrics struct{}

func (noopMetrics) Command(string, error)     {}
func (noopMetrics) Battery(int)               {}
func (noopMetrics) DoorOpen(bool)             {}
func (noopMetrics) OpenCycles(int)            {}
func (noopMetrics) ScheduleChanged(int, int)  {}
