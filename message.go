package duplexrpc

import "fmt"

// Kind identifies the wire role of a Message.
type Kind int32

// Wire message kinds.
//
// The numeric values are part of the wire contract and must not change.
const (
	// KindEmit is a one-way call. It carries a method and an optional
	// param; it expects no reply and its id is unused for correlation.
	KindEmit Kind = 0

	// KindDeliver is a correlated call expecting exactly one terminal Ack
	// and zero or more Notify messages for its id.
	KindDeliver Kind = 1

	// KindNotify is a progress update tied to an outstanding Deliver's id.
	KindNotify Kind = 2

	// KindAck is the terminal response to a Deliver, carrying either a
	// success payload or an error payload.
	KindAck Kind = 3

	// KindCancel requests that the peer abort the handler work for an
	// outstanding Deliver.
	KindCancel Kind = 4
)

// String returns the lowercase wire-kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindEmit:
		return "emit"
	case KindDeliver:
		return "deliver"
	case KindNotify:
		return "notify"
	case KindAck:
		return "ack"
	case KindCancel:
		return "cancel"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Message is the wire unit exchanged between two engines.
//
// Field presence by kind:
//   - Method is set on Emit and Deliver only.
//   - ID correlates Deliver/Notify/Ack/Cancel traffic; it is allocated but
//     unused on Emit.
//   - Param is the opaque payload of Emit, Deliver, Notify, and a successful
//     Ack.
//   - Error is set only on an Ack that reports failure; exactly one of Param
//     and Error is meaningful on a given Ack.
//
// Payloads are opaque to the engine; serialization is the transport's
// concern. The JSON tags define the codec the bundled transports use.
type Message struct {
	Kind   Kind   `json:"kind"`
	ID     int32  `json:"id"`
	Method string `json:"method,omitempty"`
	Param  any    `json:"param,omitempty"`
	Error  any    `json:"error,omitempty"`
}
