// Package simulator is an in-process Power Pet Door.
//
// Server listens on TCP and speaks the door's wire protocol: it keeps the
// door's settings, answers every command in the vocabulary with the
// request's msgID, replies to PING with PONG and broadcasts DOOR_STATUS as
// the door moves through its open and close cycle. Several clients may be
// connected at once; status changes reach all of them.
//
// Besides serving the bridge during development (cmd/petdoor-sim), the
// Server is the fixture for end-to-end tests. Fault injection hooks
// (SetRespondToPing, SetSilent) let tests exercise keepalive and receipt
// handling against a real socket.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Door movement runs on one goroutine at a time; a new movement
//     cancels the previous one.
package simulator
