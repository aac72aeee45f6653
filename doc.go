// Package duplexrpc implements a transport-agnostic, bidirectional
// remote-call protocol engine.
//
// Two endpoints exchange small correlation-tagged messages over an opaque
// duplex channel to invoke named operations on each other, stream progress
// updates, obtain a terminal result or error, and cancel in-flight work from
// either side. Each endpoint owns one Engine; both sides are simultaneously
// caller and callee.
//
// # Basic Usage
//
// Wire an engine to a transport, register handlers, and deliver calls:
//
//	engine := duplexrpc.New()
//	engine.Connect(func(msg *duplexrpc.Message) {
//	    // hand msg to the peer; the transport subpackages ship ready-made links
//	})
//
//	engine.On("download", func(param any, notify duplexrpc.NotifyFunc, reply duplexrpc.ReplyFunc) duplexrpc.CancelFunc {
//	    go func() {
//	        notify("50%")
//	        reply("done", nil)
//	    }()
//	    return nil
//	})
//
//	cancel := engine.Deliver("download", nil, 5*time.Second,
//	    func(result any, err error) { fmt.Println(result, err) },
//	    func(param any) { fmt.Println("progress:", param) },
//	)
//	defer cancel()
//
// Inbound traffic enters through Receive; the transport calls it once per
// wire message, from whatever goroutine it likes:
//
//	engine.Receive(msg)
//
// # Blocking Calls
//
// Call layers a conventional request/response shape over Deliver:
//
//	result, err := engine.Call(ctx, "sum", []int{1, 2}, 5*time.Second)
//
// # Completion Semantics
//
// A delivery's reply callback fires exactly once, no matter which trigger
// terminates it: the peer's Ack, a timeout, the cancel function returned by
// Deliver, or a Disconnect sweep. Progress callbacks never fire after the
// terminal reply. Failures surface as *CallError values whose Reason is one
// of ReasonUnimplemented, ReasonTimedOut, ReasonCancelled, or
// ReasonDisconnected, or whose Payload carries the peer's own error verbatim.
//
// # Transports
//
// The engine treats the transport as a single send function plus calls to
// Receive; delivery is best-effort and failures are not reported back. The
// transport subpackages provide an in-process pipe link, a NATS bridge, and
// a Redis pub/sub bridge.
//
// # Logging
//
// Logging is disabled by default. Use WithLogger for diagnostics:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	engine := duplexrpc.New(duplexrpc.WithLogger(logger))
package duplexrpc
