// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Channel connection state and reconnect counts
//   - Message send/receive rates and drops
//   - Outbound queue depth
//   - Heartbeat health and round-trip latency
package metrics
