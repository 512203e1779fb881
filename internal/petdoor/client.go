package petdoor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// State is the connection state.
type State int32

// Connection states. ShuttingDown is terminal until the next Start.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// ClientStats holds operational statistics.
type ClientStats struct {
	State             State
	MessagesSent      uint64
	MessagesReceived  uint64
	Retransmits       uint64
	ReceiptTimeouts   uint64 // messages dropped without a reply
	KeepAliveFailures uint64
	Connects          uint64 // successful connections
	Queued            int
	Outstanding       int
	LastLatency       time.Duration
	LastActivity      time.Time
}

// errDisconnectRequested is the disconnect cause for Disconnect.
var errDisconnectRequested = errors.New("disconnect requested")

// Client maintains the connection to one door.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Each connection runs one reader and one writer goroutine. Frames are
//     dispatched on the reader in arrival order.
//   - Callbacks run without internal locks held. They must not call Stop.
//
// Auto-Reconnection:
//   - Any transport failure, keepalive failure or Disconnect call tears the
//     connection down and schedules a reconnect after ReconnectDelay.
//   - Reconnection stops only when Stop is called.
type Client struct {
	cfg       Config
	listeners *registry

	// Hooks (optional)
	hooksMu  sync.RWMutex
	logger   Logger
	observer Observer

	// Connection state, guarded by mu.
	mu             sync.Mutex
	state          State
	desiredOn      bool
	shuttingDown   bool
	gen            uint64 // bumped on every teardown; stale callbacks compare it
	conn           net.Conn
	connCancel     context.CancelFunc
	life           context.Context
	lifeCancel     context.CancelFunc
	nextMsgID      int
	queue          commandQueue
	outstanding    map[int]*Pending
	receipt        receiptSlot
	retransmit     *outbound
	keepalive      keepAlive
	wake           chan struct{}
	idleTimer      *time.Timer
	pongTimer      *time.Timer
	receiptTimer   *time.Timer
	reconnectTimer *time.Timer

	wg sync.WaitGroup

	// Statistics
	sent              atomic.Uint64
	received          atomic.Uint64
	retransmits       atomic.Uint64
	receiptTimeouts   atomic.Uint64
	keepAliveFailures atomic.Uint64
	connects          atomic.Uint64
	lastLatency       atomic.Int64
	lastActivity      atomic.Int64 // Unix nanoseconds
}

// New creates a client. It does not connect until Start is called.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:         cfg,
		listeners:   newRegistry(),
		logger:      noopLogger{},
		observer:    noopObserver{},
		state:       StateDisconnected,
		nextMsgID:   1,
		outstanding: make(map[int]*Pending),
		receipt:     receiptSlot{limit: cfg.ReceiptRetryLimit},
		keepalive:   keepAlive{threshold: cfg.PingFailureThreshold},
	}, nil
}

// SetLogger sets the logger. A nil logger discards output.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}

// SetObserver sets the metrics observer. A nil observer disables it.
func (c *Client) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	c.hooksMu.Lock()
	c.observer = o
	c.hooksMu.Unlock()
}

// Host returns the configured door host.
func (c *Client) Host() string { return c.cfg.Host }

// Port returns the configured door port.
func (c *Client) Port() int { return c.cfg.Port }

// Available reports whether the connection is up.
func (c *Client) Available() bool {
	return c.State() == StateConnected
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DesiredOn reports whether the client wants to be connected, independent
// of the actual socket state.
func (c *Client) DesiredOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desiredOn
}

// Stats returns operational statistics.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	s := ClientStats{
		State:       c.state,
		Queued:      c.queue.len(),
		Outstanding: len(c.outstanding),
	}
	c.mu.Unlock()

	s.MessagesSent = c.sent.Load()
	s.MessagesReceived = c.received.Load()
	s.Retransmits = c.retransmits.Load()
	s.ReceiptTimeouts = c.receiptTimeouts.Load()
	s.KeepAliveFailures = c.keepAliveFailures.Load()
	s.Connects = c.connects.Load()
	s.LastLatency = time.Duration(c.lastLatency.Load())
	if ts := c.lastActivity.Load(); ts != 0 {
		s.LastActivity = time.Unix(0, ts)
	}
	return s
}

// AddListener registers reply callbacks and returns the handle that
// removes them.
func (c *Client) AddListener(l Listener) Subscription {
	return c.listeners.add(l)
}

// RemoveListener removes the callbacks registered through sub. It returns
// false if none remained.
func (c *Client) RemoveListener(sub Subscription) bool {
	return c.listeners.remove(sub)
}

// AddHandlers registers lifecycle handlers under name, replacing any
// handlers already registered under it.
func (c *Client) AddHandlers(name string, h Handlers) {
	c.listeners.addHandlers(name, h)
}

// RemoveHandlers removes the handlers registered under name.
func (c *Client) RemoveHandlers(name string) bool {
	return c.listeners.removeHandlers(name)
}

// Start begins connection management. It returns immediately; the first
// connection attempt runs in the background.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shuttingDown = false
	c.desiredOn = true
	if c.state == StateShuttingDown {
		c.setStateLocked(StateDisconnected)
	}
	if c.life == nil || c.life.Err() != nil {
		c.life, c.lifeCancel = context.WithCancel(context.Background())
	}
	if c.state != StateDisconnected {
		return
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.spawnConnectLocked()
}

// Stop tears the connection down and disables reconnection. It waits for
// the client's goroutines to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	c.shuttingDown = true
	c.desiredOn = false
	if c.lifeCancel != nil {
		c.lifeCancel()
	}
	gen := c.gen
	c.mu.Unlock()

	c.logInfo("stopping door client", "address", c.cfg.Address())
	c.teardown(gen, ErrShuttingDown)
	c.wg.Wait()
}

// Disconnect drops the current connection. Unless the client is stopped a
// reconnect follows after ReconnectDelay.
func (c *Client) Disconnect() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.teardown(gen, errDisconnectRequested)
}

// SendOption configures SendMessage.
type SendOption func(*sendOptions)

type sendOptions struct {
	notify      bool
	fields      map[string]any
	priority    protocol.Priority
	hasPriority bool
}

// WithNotify requests a Pending handle for the reply.
func WithNotify() SendOption {
	return func(o *sendOptions) { o.notify = true }
}

// WithFields adds top-level fields to the message.
func WithFields(fields map[string]any) SendOption {
	return func(o *sendOptions) { o.fields = fields }
}

// WithPriority overrides the priority derived from the command.
func WithPriority(p protocol.Priority) SendOption {
	return func(o *sendOptions) {
		o.priority = p
		o.hasPriority = true
	}
}

// SendMessage queues a message for the door.
//
// Without WithNotify the message is fire-and-forget and the returned
// handle is nil. With it, the handle resolves with the reply whose msgID
// matches, or is rejected on failure, receipt timeout or disconnect.
//
// Messages are only accepted while connected; otherwise ErrNotConnected
// is returned and nothing is queued.
func (c *Client) SendMessage(kind protocol.Kind, command string, opts ...SendOption) (*Pending, error) {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}
	priority := protocol.PriorityFor(kind, command)
	if o.hasPriority {
		priority = o.priority
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuttingDown {
		return nil, ErrShuttingDown
	}
	if c.state != StateConnected {
		return nil, ErrNotConnected
	}

	msgID := c.nextMsgID
	data, err := protocol.Encode(kind, command, msgID, o.fields)
	if err != nil {
		return nil, err
	}
	c.nextMsgID++

	m := &outbound{
		kind:     kind,
		command:  command,
		msgID:    msgID,
		priority: priority,
		data:     data,
	}
	if o.notify {
		p := newPending(command, msgID)
		gen := c.gen
		p.onCancel = func() { c.forget(gen, msgID, p) }
		c.outstanding[msgID] = p
		m.pending = p
	}

	c.queue.push(m)
	c.signalLocked()
	return m.pending, nil
}

// forget drops a cancelled request from the outstanding map.
func (c *Client) forget(gen uint64, msgID int, p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen && c.outstanding[msgID] == p {
		delete(c.outstanding, msgID)
	}
}

func (c *Client) spawnConnectLocked() {
	c.setStateLocked(StateConnecting)
	c.wg.Add(1)
	go c.connect(c.life, c.gen)
}

// connect dials the door and starts the connection's goroutines.
func (c *Client) connect(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	address := c.cfg.Address()
	c.logInfo("connecting to door", "address", address)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", address)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			c.logWarn("connection to door failed", "address", address, "error", err)
		}
		c.teardown(gen, fmt.Errorf("dial: %w", err))
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.shuttingDown {
		c.mu.Unlock()
		conn.Close()
		return
	}

	connCtx, connCancel := context.WithCancel(ctx)
	c.conn = conn
	c.connCancel = connCancel
	c.nextMsgID = 1
	c.queue.clear()
	c.receipt.release()
	c.retransmit = nil
	c.keepalive.reset()
	c.wake = make(chan struct{}, 1)
	limiter := rate.NewLimiter(rate.Every(c.cfg.MinSpacing), 1)

	c.setStateLocked(StateConnected)
	c.armIdleLocked(gen)

	c.wg.Add(2)
	go c.readLoop(connCtx, conn, gen)
	go c.writeLoop(connCtx, conn, gen, c.wake, limiter)
	c.mu.Unlock()

	c.connects.Add(1)
	c.logInfo("connected to door", "address", address)

	for _, h := range c.listeners.handlerSnapshot() {
		if fn := h.fn.OnConnect; fn != nil {
			c.invoke(h.name, fn)
		}
	}
}

// teardown is the single disconnect path. It runs at most once per
// connection generation: it cancels timers, closes the socket, rejects
// every outstanding request, clears the queue, notifies handlers and
// schedules a reconnect unless the client is stopping.
func (c *Client) teardown(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	wasConnected := c.state == StateConnected

	c.stopTimersLocked()
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	pending := c.outstanding
	c.outstanding = make(map[int]*Pending)
	c.queue.clear()
	c.receipt.release()
	c.retransmit = nil
	c.keepalive.reset()
	c.nextMsgID = 1
	c.wake = nil

	if c.shuttingDown {
		c.setStateLocked(StateShuttingDown)
	} else {
		c.setStateLocked(StateDisconnected)
		if c.desiredOn {
			c.scheduleReconnectLocked()
		}
	}
	reconnecting := c.reconnectTimer != nil
	c.mu.Unlock()

	if len(pending) > 0 {
		err := fmt.Errorf("%w: %w", ErrConnectionTerminated, cause)
		for _, p := range pending {
			p.reject(err)
		}
	}

	if !wasConnected {
		return
	}

	c.logWarn("disconnected from door",
		"cause", cause,
		"rejected", len(pending),
		"reconnect_in", c.reconnectDelay(reconnecting),
	)
	for _, h := range c.listeners.handlerSnapshot() {
		if fn := h.fn.OnDisconnect; fn != nil {
			c.invoke(h.name, fn)
		}
	}
}

func (c *Client) reconnectDelay(scheduled bool) string {
	if !scheduled {
		return "never"
	}
	return c.cfg.ReconnectDelay.String()
}

func (c *Client) scheduleReconnectLocked() {
	gen := c.gen
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.shuttingDown || !c.desiredOn || c.state != StateDisconnected {
			return
		}
		c.reconnectTimer = nil
		c.spawnConnectLocked()
	})
}

func (c *Client) stopTimersLocked() {
	for _, t := range []**time.Timer{&c.idleTimer, &c.pongTimer, &c.receiptTimer, &c.reconnectTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.obs().StateChanged(s)
}

func (c *Client) signalLocked() {
	if c.wake == nil {
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// readLoop reads the socket and dispatches complete frames in order.
func (c *Client) readLoop(ctx context.Context, conn net.Conn, gen uint64) {
	defer c.wg.Done()

	var frames protocol.FrameBuffer
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames.Write(buf[:n])
			c.drainFrames(gen, &frames)
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				c.logWarn("door closed the connection")
			} else {
				c.logWarn("read from door failed", "error", err)
			}
			c.teardown(gen, fmt.Errorf("read: %w", err))
			return
		}
	}
}

func (c *Client) drainFrames(gen uint64, frames *protocol.FrameBuffer) {
	for {
		frame, err := frames.Next()
		if err != nil {
			c.logWarn("discarding unframed data", "error", err)
			continue
		}
		if frame == nil {
			return
		}
		c.handleFrame(gen, frame)
	}
}

// handleFrame settles the receipt, keepalive and correlated request for
// one frame, then fans its payload out to listeners.
func (c *Client) handleFrame(gen uint64, frame []byte) {
	in, err := protocol.Decode(frame)
	if err != nil {
		c.logWarn("discarding malformed frame", "error", err, "frame", string(frame))
		return
	}

	now := time.Now()
	c.received.Add(1)
	c.lastActivity.Store(now.UnixNano())
	c.obs().MessageReceived(in.Command, in.Success)
	c.logDebug("RX", "frame", string(frame))

	var payload Payload
	var decodeErr error
	if in.Success {
		payload, decodeErr = decodePayload(in)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if c.receipt.matches(in) {
		c.receipt.release()
		if c.receiptTimer != nil {
			c.receiptTimer.Stop()
			c.receiptTimer = nil
		}
		c.signalLocked()
	}

	var pending *Pending
	if in.HasReplyTo {
		if p, ok := c.outstanding[in.ReplyTo]; ok {
			pending = p
			delete(c.outstanding, in.ReplyTo)
		}
	}

	var latency time.Duration
	var ponged, dead bool
	if in.Command == protocol.CmdPong && c.keepalive.outstanding() {
		nonce, _ := protocol.String(in.Fields[protocol.FieldPong])
		if l, ok := c.keepalive.pong(nonce, now); ok {
			latency, ponged = l, true
			if c.pongTimer != nil {
				c.pongTimer.Stop()
				c.pongTimer = nil
			}
			c.armIdleLocked(gen)
		} else {
			c.logWarn("PONG nonce mismatch", "got", nonce)
			dead = c.keepAliveFailedLocked()
		}
	}
	c.mu.Unlock()

	if pending != nil {
		switch {
		case !in.Success:
			cmd := in.Command
			if cmd == "" {
				cmd = pending.Command()
			}
			pending.reject(&CommandError{Command: cmd, Reason: in.ErrorText()})
		case decodeErr != nil:
			pending.reject(decodeErr)
		default:
			pending.resolve(payload)
		}
	}

	switch {
	case !in.Success:
		c.logWarn("door reported failure", "command", in.Command, "error", in.ErrorText())
	case decodeErr != nil:
		c.logWarn("unexpected reply from door", "error", decodeErr)
	}

	if ponged {
		c.lastLatency.Store(int64(latency))
		c.obs().Latency(latency)
		for _, h := range c.listeners.handlerSnapshot() {
			if fn := h.fn.OnPing; fn != nil {
				c.invoke(h.name, func() { fn(latency) })
			}
		}
	}

	if dead {
		c.teardown(gen, ErrLivenessTimeout)
		return
	}

	if payload != nil {
		c.listeners.fanout(payload, c.invoke)
	}
}

// writeLoop is the queue's single consumer. It sends retransmissions
// first, then the next queued message, keeping MinSpacing between writes
// and holding everything but PINGs while a message awaits its receipt.
func (c *Client) writeLoop(ctx context.Context, conn net.Conn, gen uint64, wake <-chan struct{}, limiter *rate.Limiter) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		}

		for {
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			ready := c.readyLocked()
			c.mu.Unlock()
			if !ready {
				break
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			m, resend := c.takeLocked()
			if m == nil {
				c.mu.Unlock()
				continue
			}
			if m.kind == protocol.KindPing {
				c.keepalive.sent(time.Now())
				c.armPongLocked(gen, m.command)
			} else {
				if !resend {
					c.receipt.arm(m)
				}
				c.armReceiptLocked(gen, m)
			}
			c.armIdleLocked(gen)
			c.mu.Unlock()

			if err := c.write(conn, m.data); err != nil {
				if ctx.Err() == nil {
					c.logError("write to door failed", "command", m.command, "error", err)
				}
				c.teardown(gen, fmt.Errorf("write: %w", err))
				return
			}

			c.sent.Add(1)
			if resend {
				c.retransmits.Add(1)
			}
			c.obs().MessageSent(m.command, m.priority)
			c.logDebug("TX", "frame", string(m.data), "priority", m.priority.String(), "retransmit", resend)
		}
	}
}

func (c *Client) readyLocked() bool {
	if c.retransmit != nil {
		return true
	}
	next := c.queue.peek()
	if next == nil {
		return false
	}
	return next.kind == protocol.KindPing || !c.receipt.busy()
}

func (c *Client) takeLocked() (m *outbound, resend bool) {
	if c.retransmit != nil {
		m, c.retransmit = c.retransmit, nil
		return m, true
	}
	if !c.readyLocked() {
		return nil, false
	}
	return c.queue.pop(), false
}

func (c *Client) write(conn net.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

// armIdleLocked restarts the keepalive idle timer.
func (c *Client) armIdleLocked(gen uint64) {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(c.cfg.KeepAlive, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.state != StateConnected || c.keepalive.outstanding() {
			return
		}
		c.sendPingLocked()
	})
}

func (c *Client) armPongLocked(gen uint64, nonce string) {
	if c.pongTimer != nil {
		c.pongTimer.Stop()
	}
	c.pongTimer = time.AfterFunc(c.cfg.PingTimeout, func() {
		c.mu.Lock()
		if gen != c.gen || c.keepalive.nonce != nonce {
			c.mu.Unlock()
			return
		}
		c.pongTimer = nil
		c.logWarn("PING not answered", "nonce", nonce, "timeout", c.cfg.PingTimeout)
		dead := c.keepAliveFailedLocked()
		c.mu.Unlock()

		if dead {
			c.teardown(gen, ErrLivenessTimeout)
		}
	})
}

// keepAliveFailedLocked counts a keepalive failure. Below the threshold a
// fresh PING is queued; at the threshold it returns true and the caller
// must tear the connection down.
func (c *Client) keepAliveFailedLocked() bool {
	failures, exceeded := c.keepalive.fail()
	c.keepAliveFailures.Add(1)
	c.obs().KeepAliveFailure(failures)
	if exceeded {
		c.logError("keepalive failed, forcing reconnect", "failures", failures)
		return true
	}
	c.sendPingLocked()
	return false
}

func (c *Client) sendPingLocked() {
	nonce := c.keepalive.begin(time.Now())
	data, err := protocol.Encode(protocol.KindPing, nonce, c.nextMsgID, nil)
	if err != nil {
		c.logError("encoding PING failed", "error", err)
		return
	}
	c.queue.push(&outbound{
		kind:     protocol.KindPing,
		command:  nonce,
		msgID:    c.nextMsgID,
		priority: protocol.PriorityCritical,
		data:     data,
	})
	c.nextMsgID++
	c.signalLocked()
}

func (c *Client) armReceiptLocked(gen uint64, m *outbound) {
	if c.receiptTimer != nil {
		c.receiptTimer.Stop()
	}
	c.receiptTimer = time.AfterFunc(c.cfg.ReceiptTimeout, func() {
		c.onReceiptTimeout(gen, m)
	})
}

func (c *Client) onReceiptTimeout(gen uint64, m *outbound) {
	c.mu.Lock()
	if gen != c.gen || c.receipt.msg != m {
		c.mu.Unlock()
		return
	}
	c.receiptTimer = nil
	retry, dropped := c.receipt.timeout()
	if retry != nil {
		c.retransmit = retry
	}
	if dropped != nil && dropped.pending != nil {
		delete(c.outstanding, dropped.msgID)
	}
	c.signalLocked()
	c.mu.Unlock()

	if retry != nil {
		c.logWarn("no reply from door, retransmitting", "command", retry.command, "msg_id", retry.msgID)
		c.obs().ReceiptTimeout(retry.command, false)
		return
	}
	if dropped != nil {
		c.receiptTimeouts.Add(1)
		c.logError("no reply from door, dropping message", "command", dropped.command, "msg_id", dropped.msgID)
		c.obs().ReceiptTimeout(dropped.command, true)
		if dropped.pending != nil {
			dropped.pending.reject(fmt.Errorf("%w: %s", ErrReceiptTimeout, dropped.command))
		}
	}
}

// invoke runs a callback, recovering panics.
func (c *Client) invoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("callback panicked", "subscriber", name, "panic", r)
		}
	}()
	fn()
}

func (c *Client) obs() Observer {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.observer
}

func (c *Client) log() Logger {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, kv ...any) { c.log().Debug(msg, kv...) }
func (c *Client) logInfo(msg string, kv ...any)  { c.log().Info(msg, kv...) }
func (c *Client) logWarn(msg string, kv ...any)  { c.log().Warn(msg, kv...) }
func (c *Client) logError(msg string, kv ...any) { c.log().Error(msg, kv...) }
