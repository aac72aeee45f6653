package duplexrpc

import (
	"context"
	"time"
)

// Call delivers a correlated call and blocks until its terminal outcome.
//
// It is a convenience layered on Deliver for callers that want a
// conventional request/response shape. The timeout parameter bounds how
// long the peer may take to Ack (zero disables the timer); ctx cancels the
// call early, sending a Cancel to the peer and returning ctx.Err().
//
// A failed call returns a *CallError: engine-synthesized reasons for
// timeouts, missing handlers, and disconnects, or the peer's own error
// payload verbatim.
func (e *Engine) Call(
	ctx context.Context,
	method string,
	param any,
	timeout time.Duration,
) (any, error) {
	type outcome struct {
		result any
		err    error
	}

	// Buffered so the reply callback never blocks the engine's dispatch
	// path when the caller has already given up.
	done := make(chan outcome, 1)

	cancel := e.Deliver(method, param, timeout, func(result any, err error) {
		done <- outcome{result: result, err: err}
	}, nil)

	select {
	case out := <-done:
		return out.result, out.err

	case <-ctx.Done():
		cancel()

		return nil, ctx.Err()
	}
}
