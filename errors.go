package duplexrpc

import "github.com/duplexrpc/duplex-go/internal/rpcerr"

// Re-export error types and failure reasons from the internal package.

// CallError is the terminal error of a failed delivery. Engine-synthesized
// failures set Reason; application error payloads from the peer arrive
// verbatim in Payload.
type CallError = rpcerr.CallError

// Failure reasons carried by engine-synthesized CallErrors.
const (
	// ReasonUnimplemented: the peer has no handler for the delivered method.
	ReasonUnimplemented = rpcerr.ReasonUnimplemented

	// ReasonTimedOut: the delivery's timer expired before the peer's Ack.
	ReasonTimedOut = rpcerr.ReasonTimedOut

	// ReasonCancelled: the caller invoked the cancel function returned by
	// Deliver.
	ReasonCancelled = rpcerr.ReasonCancelled

	// ReasonDisconnected: the engine was torn down while the call was
	// pending.
	ReasonDisconnected = rpcerr.ReasonDisconnected
)
