// Package natsbridge joins a protocol engine to its peer over NATS.
//
// Each endpoint owns an inbox subject it subscribes to and publishes to the
// peer's inbox. Messages travel as JSON; per-subscription delivery order in
// NATS preserves the transport's arrival-order obligation. Publishing is
// fire-and-forget from the engine's perspective; publish failures are
// logged, never surfaced.
package natsbridge
