// Package redisbridge joins a protocol engine to its peer over Redis
// pub/sub.
//
// Each endpoint subscribes to its own receive channel and publishes to the
// peer's. Messages travel as JSON. Redis pub/sub delivers per-channel
// messages in publish order, satisfying the transport's arrival-order
// obligation; publishing is fire-and-forget and failures are logged only.
package redisbridge
