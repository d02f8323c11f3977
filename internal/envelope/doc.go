// Package envelope defines the wire-level message frame exchanged over the
// channel and its validators.
//
// Every frame is a UTF-8 JSON object carrying a type, an optional correlation
// id, an optional payload, a unix-millisecond timestamp, and an optional error
// string. Three types are reserved for the protocol itself and are never
// forwarded to application subscribers: "ping", "pong", and "response".
package envelope
