package simulator

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, mutate func(*State)) *Server {
	t.Helper()
	return startServerTiming(t, FastTiming(), mutate)
}

func startServerTiming(t *testing.T, timing Timing, mutate func(*State)) *Server {
	t.Helper()

	st := DefaultState()
	if mutate != nil {
		mutate(&st)
	}
	srv := New(Config{Timing: timing, State: &st})
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

type harness struct {
	client       *petdoor.Client
	statuses     chan string
	batteries    chan petdoor.Battery
	disconnected chan struct{}
}

func connect(t *testing.T, srv *Server, mutate func(*petdoor.Config)) *harness {
	t.Helper()

	cfg := petdoor.Config{
		Host:           "127.0.0.1",
		Port:           srv.Port(),
		ConnectTimeout: time.Second,
		ReconnectDelay: time.Hour,
		KeepAlive:      time.Hour,
		PingTimeout:    time.Second,
		ReceiptTimeout: time.Second,
		MinSpacing:     time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := petdoor.New(cfg)
	if err != nil {
		t.Fatalf("petdoor.New() error = %v", err)
	}

	h := &harness{
		client:       c,
		statuses:     make(chan string, 64),
		batteries:    make(chan petdoor.Battery, 8),
		disconnected: make(chan struct{}, 8),
	}
	connected := make(chan struct{}, 8)
	c.AddHandlers("test", petdoor.Handlers{
		OnConnect:    func() { connected <- struct{}{} },
		OnDisconnect: func() { h.disconnected <- struct{}{} },
	})
	c.AddListener(petdoor.Listener{
		Name:         "test",
		OnDoorStatus: func(s petdoor.DoorStatus) { h.statuses <- s.State },
		OnBattery:    func(b petdoor.Battery) { h.batteries <- b },
	})

	c.Start()
	t.Cleanup(c.Stop)
	wait(t, connected, "connect")
	return h
}

func wait[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

// waitStatus consumes status updates until want arrives, returning the
// statuses seen on the way.
func waitStatus(t *testing.T, ch <-chan string, want string) []string {
	t.Helper()
	var seen []string
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-ch:
			seen = append(seen, s)
			if s == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %v", want, seen)
			return nil
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOpenCycle(t *testing.T) {
	srv := startServer(t, func(st *State) { st.HoldTime = 2 })
	h := connect(t, srv, nil)
	ctx := testContext(t)

	if err := h.client.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	want := []string{
		protocol.DoorRising,
		protocol.DoorHolding,
		protocol.DoorSlowing,
		protocol.DoorClosingTopOpen,
		protocol.DoorClosingMidOpen,
		protocol.DoorClosed,
	}
	got := waitStatus(t, h.statuses, protocol.DoorClosed)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status sequence mismatch (-want +got):\n%s", diff)
	}

	stats, err := h.client.OpenStats(ctx)
	if err != nil {
		t.Fatalf("OpenStats() error = %v", err)
	}
	if stats.OpenCycles != 1 {
		t.Errorf("OpenCycles = %d, want 1", stats.OpenCycles)
	}
}

func TestOpenAndHoldThenClose(t *testing.T) {
	srv := startServer(t, nil)
	h := connect(t, srv, nil)
	ctx := testContext(t)

	if err := h.client.OpenAndHold(ctx); err != nil {
		t.Fatalf("OpenAndHold() error = %v", err)
	}
	waitStatus(t, h.statuses, protocol.DoorKeepUp)

	status, err := h.client.DoorStatus(ctx)
	if err != nil {
		t.Fatalf("DoorStatus() error = %v", err)
	}
	if status.State != protocol.DoorKeepUp || !status.Open() {
		t.Errorf("DoorStatus() = %+v, want open DOOR_KEEPUP", status)
	}

	if err := h.client.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitStatus(t, h.statuses, protocol.DoorClosed)

	if got := srv.Snapshot().TotalOpenCycles; got != 1 {
		t.Errorf("TotalOpenCycles = %d, want 1", got)
	}
}

func TestTriggerSensor(t *testing.T) {
	tests := []struct {
		name   string
		state  func(*State)
		zone   string
		accept bool
	}{
		{name: "inside", zone: "inside", accept: true},
		{name: "outside", zone: "outside", accept: true},
		{name: "powered off", state: func(st *State) { st.Power = false }, zone: "inside"},
		{name: "zone disabled", state: func(st *State) { st.Outside = false }, zone: "outside"},
		{name: "unknown zone", zone: "roof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startServer(t, func(st *State) {
				st.HoldTime = 1
				if tt.state != nil {
					tt.state(st)
				}
			})

			if got := srv.TriggerSensor(tt.zone); got != tt.accept {
				t.Fatalf("TriggerSensor(%q) = %v, want %v", tt.zone, got, tt.accept)
			}
			if !tt.accept {
				if st := srv.Snapshot().DoorStatus; st != protocol.DoorClosed {
					t.Errorf("DoorStatus = %s, want DOOR_CLOSED", st)
				}
				return
			}

			deadline := time.Now().Add(3 * time.Second)
			for srv.Snapshot().TotalOpenCycles != 1 {
				if time.Now().After(deadline) {
					t.Fatal("door never completed its cycle")
				}
				time.Sleep(5 * time.Millisecond)
			}
		})
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	srv := startServer(t, nil)
	a := connect(t, srv, nil)
	b := connect(t, srv, nil)

	if got := srv.Clients(); got != 2 {
		t.Fatalf("Clients() = %d, want 2", got)
	}

	srv.SetBattery(42)
	for name, h := range map[string]*harness{"a": a, "b": b} {
		bat := wait(t, h.batteries, "battery on client "+name)
		if bat.Percent != 42 {
			t.Errorf("client %s battery = %d, want 42", name, bat.Percent)
		}
	}
}

// slowClose leaves time to observe the door while it closes.
func slowClose() Timing {
	timing := FastTiming()
	timing.Slowing = 300 * time.Millisecond
	return timing
}

func TestObstructionRetracts(t *testing.T) {
	srv := startServerTiming(t, slowClose(), func(st *State) { st.HoldTime = 1 })
	h := connect(t, srv, nil)

	if !srv.TriggerSensor("inside") {
		t.Fatal("trigger rejected")
	}
	waitStatus(t, h.statuses, protocol.DoorSlowing)

	if !srv.SimulateObstruction() {
		t.Fatal("SimulateObstruction() = false while closing")
	}
	waitStatus(t, h.statuses, protocol.DoorRising)
	waitStatus(t, h.statuses, protocol.DoorClosed)

	snap := srv.Snapshot()
	if snap.TotalAutoRetracts != 1 {
		t.Errorf("TotalAutoRetracts = %d, want 1", snap.TotalAutoRetracts)
	}
	if srv.SimulateObstruction() {
		t.Error("SimulateObstruction() = true on a closed door")
	}
}

func TestObstructionWithoutAutoRetract(t *testing.T) {
	srv := startServerTiming(t, slowClose(), func(st *State) {
		st.HoldTime = 1
		st.AutoRetract = false
	})
	h := connect(t, srv, nil)

	srv.TriggerSensor("inside")
	waitStatus(t, h.statuses, protocol.DoorSlowing)
	if srv.SimulateObstruction() {
		t.Error("door retracted with auto-retract disabled")
	}
	waitStatus(t, h.statuses, protocol.DoorClosed)
}

func TestUnansweredPingsDisconnect(t *testing.T) {
	srv := startServer(t, nil)
	srv.SetRespondToPing(false)

	h := connect(t, srv, func(cfg *petdoor.Config) {
		cfg.KeepAlive = 20 * time.Millisecond
		cfg.PingTimeout = 20 * time.Millisecond
	})

	wait(t, h.disconnected, "keepalive disconnect")
	if got := h.client.Stats().KeepAliveFailures; got < 3 {
		t.Errorf("KeepAliveFailures = %d, want at least 3", got)
	}
}

func TestSilentCommandTimesOut(t *testing.T) {
	srv := startServer(t, nil)
	srv.SetSilent(protocol.CmdGetOpenStats, true)

	h := connect(t, srv, func(cfg *petdoor.Config) {
		cfg.ReceiptTimeout = 30 * time.Millisecond
	})
	ctx := testContext(t)

	_, err := h.client.OpenStats(ctx)
	if !errors.Is(err, petdoor.ErrReceiptTimeout) {
		t.Fatalf("OpenStats() error = %v, want ErrReceiptTimeout", err)
	}
	if got := h.client.Stats().Retransmits; got != 1 {
		t.Errorf("Retransmits = %d, want 1", got)
	}

	// Other commands still flow once the slot is freed.
	if _, err := h.client.Battery(ctx); err != nil {
		t.Errorf("Battery() after timeout error = %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv := startServer(t, nil)
	h := connect(t, srv, nil)
	ctx := testContext(t)

	if err := h.client.SetInside(ctx, false); err != nil {
		t.Fatalf("SetInside() error = %v", err)
	}
	if err := h.client.SetHoldTime(ctx, 3*time.Second); err != nil {
		t.Fatalf("SetHoldTime() error = %v", err)
	}
	if err := h.client.SetTimezone(ctx, "EST5EDT"); err != nil {
		t.Fatalf("SetTimezone() error = %v", err)
	}

	settings, err := h.client.RefreshSettings(ctx)
	if err != nil {
		t.Fatalf("RefreshSettings() error = %v", err)
	}
	if settings.Sensors[petdoor.SensorInside] {
		t.Error("inside sensor still enabled")
	}
	if settings.HoldTime != 300 {
		t.Errorf("HoldTime = %d, want 300", settings.HoldTime)
	}
	if settings.Timezone != "EST5EDT" {
		t.Errorf("Timezone = %q, want EST5EDT", settings.Timezone)
	}

	d, err := h.client.HoldTime(ctx)
	if err != nil {
		t.Fatalf("HoldTime() error = %v", err)
	}
	if d != 3*time.Second {
		t.Errorf("HoldTime() = %v, want 3s", d)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	srv := startServer(t, nil)
	h := connect(t, srv, nil)

	p, err := h.client.SendMessage(protocol.KindCommand, "LEVITATE", petdoor.WithNotify())
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	_, err = p.Wait(testContext(t))
	var cmdErr *petdoor.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Wait() error = %v, want *CommandError", err)
	}
}

func TestScheduleSync(t *testing.T) {
	srv := startServer(t, nil)
	h := connect(t, srv, nil)
	ctx := testContext(t)

	morning := schedule.Window{Start: schedule.Clock{Hour: 6}, End: schedule.Clock{Hour: 9}}
	evening := schedule.Window{Start: schedule.Clock{Hour: 17}, End: schedule.Clock{Hour: 21}}

	syncer := schedule.NewSyncer(h.client, nil)
	res, err := syncer.ReplaceZone(ctx, schedule.ZoneInside, map[time.Weekday][]schedule.Window{
		time.Monday:  {morning, evening},
		time.Tuesday: {morning, evening},
	})
	if err != nil {
		t.Fatalf("ReplaceZone() error = %v", err)
	}
	if len(res.Added) != 2 {
		t.Fatalf("Added %d rows, want 2 (one per window, days merged)", len(res.Added))
	}
	if got := len(srv.Snapshot().Schedules); got != 2 {
		t.Errorf("door holds %d rows, want 2", got)
	}

	// The same schedule again is a no-op.
	again, err := syncer.ReplaceZone(ctx, schedule.ZoneInside, map[time.Weekday][]schedule.Window{
		time.Monday:  {morning, evening},
		time.Tuesday: {morning, evening},
	})
	if err != nil {
		t.Fatalf("second ReplaceZone() error = %v", err)
	}
	if again.Changed() {
		t.Errorf("second sync changed the door: deleted %v, added %v", again.Deleted, again.Added)
	}

	rows, _, err := syncer.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	for _, row := range rows {
		if !row.Inside || row.Outside || !row.Days[time.Monday] || !row.Days[time.Tuesday] {
			t.Errorf("unexpected row %v", row)
		}
	}
}

func TestDropClientsTriggersReconnect(t *testing.T) {
	srv := startServer(t, nil)
	h := connect(t, srv, func(cfg *petdoor.Config) {
		cfg.ReconnectDelay = 20 * time.Millisecond
	})

	srv.DropClients()
	wait(t, h.disconnected, "disconnect")

	deadline := time.Now().Add(3 * time.Second)
	for h.client.State() != petdoor.StateConnected {
		if time.Now().After(deadline) {
			t.Fatal("client never reconnected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := h.client.DoorStatus(testContext(t)); err != nil {
		t.Errorf("DoorStatus() after reconnect error = %v", err)
	}
}

func TestMalformedFrameIgnored(t *testing.T) {
	srv := startServer(t, nil)

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"cmd":}{"cmd":"GET_DOOR_STATUS","msgId":7,"dir":"p2d"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frames protocol.FrameBuffer
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		frames.Write(buf[:n])
		frame, ferr := frames.Next()
		if ferr != nil || frame == nil {
			continue
		}
		in, err := protocol.Decode(frame)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if in.Command != protocol.CmdDoorStatus || in.ReplyTo != 7 {
			t.Errorf("reply = %+v, want DOOR_STATUS for msgID 7", in)
		}
		return
	}
}

func TestStartAfterClose(t *testing.T) {
	srv := New(Config{})
	srv.Close()
	if err := srv.Start("127.0.0.1:0"); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}
