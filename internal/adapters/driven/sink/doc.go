// Package sink provides emission sinks for normalized events.
//
// Sinks:
//   - WriterSink: JSON lines, or a readable one-line format on a terminal
//   - WebSocketSink: forwards events to a downstream websocket endpoint
//   - FanOut: emits to several sinks
package sink
