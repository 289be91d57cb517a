// Package stream maintains the real-time telemetry WebSocket connection.
//
// Every inbound frame is a versioned JSON envelope {v, type, ts, data}.
// Recognized kinds are decoded into typed events; unrecognized kinds are
// forwarded with their raw payload. Malformed frames are dropped and
// logged without closing the connection.
package stream
