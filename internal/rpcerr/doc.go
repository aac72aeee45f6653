// Package rpcerr defines the error types and failure reasons used across the
// duplex RPC engine.
//
// Engine-synthesized failures (timeout, cancellation, disconnect, missing
// handler) carry one of the Reason constants. Application-level failures from
// the peer pass through verbatim in CallError.Payload.
package rpcerr
