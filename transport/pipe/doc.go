// Package pipe links two in-process engines through buffered message
// queues.
//
// A pipe link is the smallest possible transport: each engine's outbound
// messages are enqueued and pumped into the other engine's Receive by a
// dedicated goroutine, preserving per-direction order. It is intended for
// tests, demos, and same-process composition of two protocol endpoints.
package pipe
