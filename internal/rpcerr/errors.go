package rpcerr

import (
	"errors"
	"fmt"
)

// Failure reasons synthesized by the engine and carried on the wire as the
// Ack error payload or delivered locally through a call's reply callback.
const (
	// ReasonUnimplemented is sent by a callee that has no handler registered
	// for a delivered method.
	ReasonUnimplemented = "unimplemented"

	// ReasonTimedOut is synthesized locally when a delivery's timer expires
	// before a terminal Ack arrives.
	ReasonTimedOut = "timedout"

	// ReasonCancelled is synthesized locally when the caller invokes the
	// cancel function returned by Deliver.
	ReasonCancelled = "cancelled"

	// ReasonDisconnected is applied to every pending call during an
	// engine-wide teardown, unless the caller supplied another reason.
	ReasonDisconnected = "disconnected"
)

// CallError is the terminal error of a failed delivery.
//
// Exactly one of Reason and Payload is meaningful. Reason holds one of the
// Reason constants when the engine itself terminated the call; Payload holds
// the peer's application-level error payload, passed through verbatim.
type CallError struct {
	Reason  string
	Payload any
}

func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("call failed: %s", e.Reason)
	}

	return fmt.Sprintf("call failed: %v", e.Payload)
}

// Is reports whether target is a *CallError with the same Reason. This lets
// callers match engine-synthesized failures with errors.Is.
func (e *CallError) Is(target error) bool {
	other, ok := target.(*CallError)
	if !ok {
		return false
	}

	return other.Reason != "" && other.Reason == e.Reason
}

// WirePayload returns the value to place in an Ack's error field for err.
// A *CallError contributes its Payload when set, its Reason otherwise; any
// other error contributes its message string.
func WirePayload(err error) any {
	var ce *CallError
	if errors.As(err, &ce) {
		if ce.Payload != nil {
			return ce.Payload
		}

		return ce.Reason
	}

	return err.Error()
}
