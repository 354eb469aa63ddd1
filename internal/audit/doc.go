// Package audit implements async event dispatching for token lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, logrus, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with a ULID, timestamp, type, subject, token id and metadata.
//
// This package owns buffering and delivery. Which events to emit is decided by
// the Engine.
package audit
