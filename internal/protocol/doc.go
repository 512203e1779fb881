// Package protocol implements the Power Pet Door wire format.
//
// The door controller speaks JSON over a raw TCP stream with no length
// prefix and no delimiter. Objects are separated only by their balanced
// braces, so the reader has to find object boundaries itself.
//
// This package manages:
//   - Framing: extracting complete top-level JSON objects from a stream
//   - Boolean coercion for device fields that arrive as strings, ints or bools
//   - The command, field and door-state vocabulary shared by the client,
//     the schedule synchroniser and the simulator
//
// # Wire Format
//
// Outbound (controller is "p2d", phone to door):
//
//	{"config":"GET_SETTINGS","msgId":12,"dir":"p2d"}
//	{"cmd":"OPEN","msgId":13,"dir":"p2d"}
//	{"PING":"1718000000000","msgId":14,"dir":"p2d"}
//
// Inbound (note "success" is a string and the reply id is "msgID"):
//
//	{"success":"true","CMD":"GET_DOOR_STATUS","door_status":"DOOR_CLOSED","msgID":12,"dir":"d2p"}
//	{"success":"true","CMD":"PONG","PONG":"1718000000000","dir":"d2p"}
//
// # Framing
//
// FindEnd counts brace depth and is aware of JSON string literals, so a
// "{" or "}" inside a quoted value does not break framing.
package protocol
