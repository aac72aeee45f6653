package duplexrpc

// ReplyFunc terminates a call with a result or an error. On the caller side
// it is the callback passed to Deliver; on the callee side it is handed to
// the handler to produce the terminal Ack. Exactly one of result and err is
// meaningful.
type ReplyFunc func(result any, err error)

// NotifyFunc reports progress for an outstanding call.
type NotifyFunc func(param any)

// CancelFunc stops in-flight handler work. A handler returns nil when its
// work is not interruptible.
type CancelFunc func()

// Handler processes an inbound Emit or Deliver for a registered method.
//
// The handler may call notify zero or more times and must call reply exactly
// once to terminate the call; extra calls are ignored. Both callbacks are
// safe to invoke from any goroutine, so a handler may return immediately and
// finish its work asynchronously. The returned CancelFunc, if non-nil, is
// invoked when the peer cancels the call or the engine disconnects; it must
// stop the handler's work and tolerate being the only completion signal the
// handler ever sees.
//
// For an Emit the engine passes no-op callbacks: there is no id for a reply
// or progress to correlate with.
type Handler func(param any, notify NotifyFunc, reply ReplyFunc) CancelFunc

// SendFunc hands one outbound message to the transport. Delivery is
// best-effort from the engine's perspective; a transport that fails to send
// does not report back.
type SendFunc func(msg *Message)
