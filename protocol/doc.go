// Package protocol implements the JSON control messages exchanged between the
// coordinator and its workers over a stream socket.
//
// Every message is a flat JSON object with an "action" discriminator:
//
//	{"action":"ready"}
//	{"action":"run","parameters":{"a":1,"b":2}}
//	{"action":"result","data":3}
//	{"action":"error","error":"unsupported operand"}
//	{"action":"done"}
//
// Frames carry no delimiter; Decoder accumulates partial reads until a
// complete JSON value is available.
package protocol
