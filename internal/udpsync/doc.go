// Package udpsync implements the UDP discovery and value-exchange
// protocol between bench devices.
//
// The wire format is JSON-over-UDP, one free-form document per datagram,
// dispatched on a cmd/type field: discovery requests are answered with
// this device's advertised local inputs, and value/snapshot reports are
// routed into the channel registry. The service also broadcasts a 1 Hz
// heartbeat and can run an active, time-boxed discovery scan that
// aggregates replies from peers.
//
// A single receive goroutine owns the socket. A scan does not block
// inbound servicing: it installs a collector that the receive goroutine
// feeds discovery replies into, while all other traffic keeps flowing
// through the normal handler.
//
// Malformed datagrams are logged and dropped, never propagated. When the
// service is disabled by configuration it stays unbound and every
// operation is a no-op.
package udpsync
