// Package channel owns the socket lifecycle for the persistent bidirectional
// messaging channel: it drives the connection state machine, correlates
// request/response traffic, intercepts heartbeats, queues outbound messages
// across disconnects, and schedules reconnection with backoff.
//
// One Channel owns one socket, one outbound queue, and one pending-response
// map; all external interaction goes through the public methods and the
// callback registrations.
package channel
