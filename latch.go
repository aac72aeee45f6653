package duplexrpc

import "sync/atomic"

// completionLatch is a single-fire guard deciding which of several racing
// triggers terminates a call. The timer, an inbound Ack or Cancel, a local
// cancel, and the disconnect sweep all funnel through tryComplete; exactly
// one of them wins.
type completionLatch struct {
	fired atomic.Bool
}

// tryComplete attempts the one-shot transition. It returns true for exactly
// one caller over the lifetime of the latch.
func (l *completionLatch) tryComplete() bool {
	return l.fired.CompareAndSwap(false, true)
}

// completed reports whether the latch has fired.
func (l *completionLatch) completed() bool {
	return l.fired.Load()
}
