// Package gateway is the facade over the greenhouse device gateway: one
// Service owns the broker connection, the device snapshot, and the
// alerting pipeline.
//
// # Message Flow
//
// Inbound: broker -> decode (per-topic codec) -> merge into the snapshot
// -> synchronous listener fan-out -> for environmental messages only,
// threshold evaluation (dispatched in a goroutine) and a non-blocking
// persistence write. Malformed payloads are logged and dropped; they
// never crash the gateway.
//
// Outbound: SendCommand validates and encodes the control command, then
// publishes it on the command topic with at-least-once delivery. It
// fails fast when the gateway is not connected.
//
// # Lifecycle
//
// Connect is an idempotent no-op while connected or connecting. The
// broker client reconnects on its own with bounded backoff; when it
// gives up, the service drops to Disconnected and retains the error
// (LastError) until the caller reconnects manually. Disconnect is safe
// in any state, including mid-reconnect.
//
// The Service is constructed once in main and passed by handle; there is
// no package-level singleton.
package gateway
