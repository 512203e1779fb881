// Package petdoor is a client for the Power Pet Door's local TCP protocol.
//
// The door accepts one JSON object after another on a raw TCP socket with
// no delimiter. Client keeps that socket open, reconnecting after failures,
// and layers the following on top of it:
//
//   - a priority queue of outbound messages with a single message in flight
//     and a minimum spacing between writes
//   - PING/PONG keepalive that forces a reconnect after repeated misses
//   - bounded retransmission of messages the door never acknowledged
//   - request/reply correlation through Pending handles
//   - typed fan-out of every reply to registered listeners
//
// Typical use:
//
//	client, err := petdoor.New(petdoor.Config{Host: "192.168.1.50"})
//	if err != nil {
//	    return err
//	}
//	sub := client.AddListener(petdoor.Listener{
//	    Name:         "logger",
//	    OnDoorStatus: func(s petdoor.DoorStatus) { log.Println(s.State) },
//	})
//	defer client.RemoveListener(sub)
//
//	client.Start()
//	defer client.Stop()
//
//	if err := client.Open(ctx); err != nil {
//	    return err
//	}
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Listener callbacks run on the connection's reader goroutine, in frame
//     arrival order. Handlers run on whichever goroutine observed the
//     event. Neither may call Stop.
package petdoor
