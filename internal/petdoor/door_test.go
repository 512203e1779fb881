package petdoor

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// received is one message the fake door read, with its arrival time.
type received struct {
	at  time.Time
	msg map[string]any
}

// command returns the cmd, config or PING value of the message.
func (r received) command() string {
	for _, key := range []protocol.Kind{protocol.KindCommand, protocol.KindConfig, protocol.KindPing} {
		if v, ok := r.msg[string(key)].(string); ok {
			return v
		}
	}
	return ""
}

func (r received) isPing() bool {
	_, ok := r.msg[string(protocol.KindPing)]
	return ok
}

// responder produces the frames the fake door sends back for a message.
type responder func(r received) []map[string]any

// fakeDoor is a TCP server speaking the door's framing.
type fakeDoor struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	messages []received
	respond  responder

	wg sync.WaitGroup
}

func newFakeDoor(t *testing.T, respond responder) *fakeDoor {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	d := &fakeDoor{t: t, ln: ln, respond: respond}
	d.wg.Add(1)
	go d.acceptLoop()
	t.Cleanup(d.close)
	return d
}

func (d *fakeDoor) port() int {
	return d.ln.Addr().(*net.TCPAddr).Port
}

func (d *fakeDoor) setResponder(r responder) {
	d.mu.Lock()
	d.respond = r
	d.mu.Unlock()
}

func (d *fakeDoor) acceptLoop() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.conns = append(d.conns, conn)
		d.mu.Unlock()

		d.wg.Add(1)
		go d.serve(conn)
	}
}

func (d *fakeDoor) serve(conn net.Conn) {
	defer d.wg.Done()

	var frames protocol.FrameBuffer
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames.Write(buf[:n])
			for {
				frame, ferr := frames.Next()
				if ferr != nil {
					continue
				}
				if frame == nil {
					break
				}
				d.handle(conn, frame)
			}
		}
		if err != nil {
			return
		}
	}
}

func (d *fakeDoor) handle(conn net.Conn, frame []byte) {
	var msg map[string]any
	if err := json.Unmarshal(frame, &msg); err != nil {
		d.t.Errorf("fake door: client sent invalid JSON %q: %v", frame, err)
		return
	}
	r := received{at: time.Now(), msg: msg}

	d.mu.Lock()
	d.messages = append(d.messages, r)
	respond := d.respond
	d.mu.Unlock()

	if respond == nil {
		return
	}
	for _, out := range respond(r) {
		writeFrame(conn, out)
	}
}

func writeFrame(conn net.Conn, v map[string]any) {
	data, _ := json.Marshal(v)
	conn.Write(data)
}

// broadcast sends an unsolicited frame to every connected client.
func (d *fakeDoor) broadcast(v map[string]any) {
	d.mu.Lock()
	conns := append([]net.Conn(nil), d.conns...)
	d.mu.Unlock()
	for _, c := range conns {
		writeFrame(c, v)
	}
}

// dropConnections closes every accepted connection.
func (d *fakeDoor) dropConnections() {
	d.mu.Lock()
	conns := d.conns
	d.conns = nil
	d.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (d *fakeDoor) seen() []received {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]received(nil), d.messages...)
}

// waitReceived waits until match holds for at least n messages.
func (d *fakeDoor) waitReceived(n int, match func(received) bool) []received {
	d.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var got []received
		for _, r := range d.seen() {
			if match(r) {
				got = append(got, r)
			}
		}
		if len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.t.Fatalf("fake door: timed out waiting for %d matching messages", n)
	return nil
}

func (d *fakeDoor) close() {
	d.ln.Close()
	d.dropConnections()
	d.wg.Wait()
}

// reply builds a success frame answering r.
func reply(r received, fields map[string]any) map[string]any {
	out := map[string]any{
		protocol.FieldSuccess:   "true",
		protocol.FieldCommand:   r.command(),
		protocol.FieldReplyID:   r.msg[protocol.FieldMsgID],
		protocol.FieldDirection: protocol.DirectionFromDoor,
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// echoDoor answers PINGs and acknowledges every other message.
func echoDoor(r received) []map[string]any {
	if r.isPing() {
		return []map[string]any{{
			protocol.FieldCommand: protocol.CmdPong,
			protocol.FieldPong:    r.command(),
			protocol.FieldSuccess: "true",
		}}
	}
	switch r.command() {
	case protocol.CmdGetDoorStatus:
		return []map[string]any{reply(r, map[string]any{protocol.FieldDoorStatus: protocol.DoorClosed})}
	case protocol.CmdGetPower:
		return []map[string]any{reply(r, map[string]any{protocol.FieldPower: "on"})}
	}
	return []map[string]any{reply(r, nil)}
}

// silentDoor never answers.
func silentDoor(received) []map[string]any { return nil }

func isCommand(cmd string) func(received) bool {
	return func(r received) bool { return !r.isPing() && r.command() == cmd }
}

func isPing(r received) bool { return r.isPing() }
