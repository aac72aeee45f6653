package duplexrpc

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/duplexrpc/duplex-go/internal/rpcerr"
)

// Engine is the protocol endpoint each side of a duplex channel owns.
//
// An Engine is both caller and callee: Deliver and Emit drive outbound
// calls through the installed send function, while Receive dispatches
// inbound messages to registered handlers and to pending calls. All methods
// are safe for concurrent use from any goroutine; the transport's inbound
// goroutine, the application's outbound callers, and timer callbacks may
// all enter the engine at once.
//
// The Engine owns all correlation state: pending caller-side replies and
// notifies, pending callee-side cancels, the handler registry, and the call
// identifier counter. It never blocks on the network; Deliver returns as
// soon as the message is handed to the transport and the result arrives
// later through Receive.
type Engine struct {
	log *slog.Logger

	// mu guards every table below plus the id counter and send function.
	// It is never held while a handler or user callback runs.
	mu       sync.Mutex
	send     SendFunc
	handlers map[string]Handler
	nextID   int32
	replies  map[int32]*pendingCall
	notifies map[int32]NotifyFunc
	cancels  map[int32]*pendingHandling
}

// pendingCall tracks a caller-side delivery awaiting its terminal reply.
type pendingCall struct {
	id    int32
	done  completionLatch
	timer *time.Timer // guarded by Engine.mu
	reply ReplyFunc
}

// pendingHandling tracks a callee-side cancellable handler invocation.
type pendingHandling struct {
	id   int32
	done completionLatch
	stop CancelFunc
}

// New creates a disconnected Engine. Install a transport with Connect
// before delivering; until then outbound messages are dropped.
func New(opts ...Option) *Engine {
	cfg := applyOptions(opts)

	return &Engine{
		log:      cfg.logger.With("component", "engine"),
		handlers: make(map[string]Handler, 8),
		nextID:   math.MinInt32,
		replies:  make(map[int32]*pendingCall, 8),
		notifies: make(map[int32]NotifyFunc, 8),
		cancels:  make(map[int32]*pendingHandling, 8),
	}
}

// On registers handler for method, replacing any previous registration.
// A nil handler removes the registration. In-flight dispatches already
// bound to the previous handler are unaffected.
func (e *Engine) On(method string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if handler == nil {
		delete(e.handlers, method)

		return
	}

	e.handlers[method] = handler
}

// Emit sends a one-way call. No reply channel exists: a peer without a
// handler for method drops the message silently, and send failures are not
// surfaced. An id is consumed from the allocator but carries no correlation
// meaning.
func (e *Engine) Emit(method string, param any) {
	e.mu.Lock()
	id := e.allocIDLocked()
	send := e.send
	e.mu.Unlock()

	if send == nil {
		e.log.Debug("emit dropped, not connected", "method", method)

		return
	}

	send(&Message{Kind: KindEmit, ID: id, Method: method, Param: param})
}

// Deliver starts a correlated call and returns immediately.
//
// onReply is invoked exactly once with the call's terminal outcome, no
// matter which trigger produces it: the peer's Ack, a timeout (when
// timeout > 0), the returned cancel function, or a disconnect sweep.
// onNotify, if non-nil, receives progress updates until the call
// terminates; a notify racing past the terminal reply is suppressed.
//
// The returned cancel function terminates the call locally with reason
// "cancelled" and tells the peer to stop; calling it after the call has
// completed is a no-op, and at most one Cancel message is ever sent.
func (e *Engine) Deliver(
	method string,
	param any,
	timeout time.Duration,
	onReply ReplyFunc,
	onNotify NotifyFunc,
) func() {
	pc := &pendingCall{reply: onReply}

	e.mu.Lock()

	pc.id = e.allocIDLocked()
	e.replies[pc.id] = pc

	if onNotify != nil {
		e.notifies[pc.id] = func(param any) {
			// Dead once the call has completed.
			if pc.done.completed() {
				return
			}

			onNotify(param)
		}
	}

	send := e.send
	e.mu.Unlock()

	e.log.Debug("delivering call", "id", pc.id, "method", method, "timeout", timeout)

	// The Deliver goes out before the timer is armed so that a degenerate
	// timeout cannot emit its Cancel ahead of the Deliver it refers to.
	if send != nil {
		send(&Message{Kind: KindDeliver, ID: pc.id, Method: method, Param: param})
	} else {
		e.log.Debug("deliver send suppressed, not connected", "id", pc.id, "method", method)
	}

	if timeout > 0 {
		e.armTimer(pc, timeout)
	}

	return func() {
		if e.finishCall(pc, nil, &rpcerr.CallError{Reason: rpcerr.ReasonCancelled}) {
			e.log.Debug("call cancelled locally", "id", pc.id)
			e.sendMessage(&Message{Kind: KindCancel, ID: pc.id})
		}
	}
}

// armTimer schedules the timeout trigger for pc. If the call completed
// while the timer was being created, the timer is stopped right away; a
// stale fire that slips through loses the latch race and is harmless.
func (e *Engine) armTimer(pc *pendingCall, timeout time.Duration) {
	t := time.AfterFunc(timeout, func() {
		if e.finishCall(pc, nil, &rpcerr.CallError{Reason: rpcerr.ReasonTimedOut}) {
			e.log.Debug("call timed out", "id", pc.id, "timeout", timeout)
			e.sendMessage(&Message{Kind: KindCancel, ID: pc.id})
		}
	})

	e.mu.Lock()

	if pc.done.completed() {
		e.mu.Unlock()
		t.Stop()

		return
	}

	pc.timer = t
	e.mu.Unlock()
}

// finishCall attempts the one-shot termination of a caller-side delivery.
// The winner removes the call's table entries, discards its timer, and
// invokes the reply callback outside the engine lock. Losers observe false
// and have no effect.
func (e *Engine) finishCall(pc *pendingCall, result any, err error) bool {
	if !pc.done.tryComplete() {
		return false
	}

	e.mu.Lock()
	delete(e.replies, pc.id)
	delete(e.notifies, pc.id)
	t := pc.timer
	pc.timer = nil
	e.mu.Unlock()

	if t != nil {
		t.Stop()
	}

	if pc.reply != nil {
		pc.reply(result, err)
	}

	return true
}

// Receive dispatches one inbound wire message. It is the transport's entry
// point and must be called once per message, in arrival order for that
// transport. Unroutable messages are dropped with a diagnostic; the only
// case answered on the wire is a Deliver for an unregistered method, which
// gets an "unimplemented" Ack.
func (e *Engine) Receive(msg *Message) {
	if msg == nil {
		return
	}

	switch msg.Kind {
	case KindEmit:
		e.receiveEmit(msg)
	case KindDeliver:
		e.receiveDeliver(msg)
	case KindNotify:
		e.receiveNotify(msg)
	case KindAck:
		e.receiveAck(msg)
	case KindCancel:
		e.receiveCancel(msg)
	default:
		e.log.Warn("dropping message of unknown kind", "kind", int32(msg.Kind), "id", msg.ID)
	}
}

func (e *Engine) receiveEmit(msg *Message) {
	e.mu.Lock()
	handler := e.handlers[msg.Method]
	e.mu.Unlock()

	if handler == nil {
		e.log.Debug("dropping emit for unregistered method", "method", msg.Method)

		return
	}

	// Emit carries no correlation id, so the handler's completion signals
	// have nowhere to go.
	handler(msg.Param, func(any) {}, func(any, error) {})
}

func (e *Engine) receiveDeliver(msg *Message) {
	e.mu.Lock()
	handler := e.handlers[msg.Method]
	e.mu.Unlock()

	if handler == nil {
		e.log.Debug("answering unimplemented method", "method", msg.Method, "id", msg.ID)
		e.sendMessage(&Message{Kind: KindAck, ID: msg.ID, Error: rpcerr.ReasonUnimplemented})

		return
	}

	ph := &pendingHandling{id: msg.ID}

	reply := func(result any, err error) {
		if !ph.done.tryComplete() {
			return
		}

		e.mu.Lock()
		delete(e.cancels, ph.id)
		e.mu.Unlock()

		ack := &Message{Kind: KindAck, ID: ph.id}
		if err != nil {
			ack.Error = rpcerr.WirePayload(err)
		} else {
			ack.Param = result
		}

		e.sendMessage(ack)
	}

	notify := func(param any) {
		if ph.done.completed() {
			return
		}

		e.sendMessage(&Message{Kind: KindNotify, ID: ph.id, Param: param})
	}

	stop := handler(msg.Param, notify, reply)
	if stop == nil {
		return
	}

	e.mu.Lock()

	if ph.done.completed() {
		// Handler replied before returning its cancel function; nothing
		// left to interrupt.
		e.mu.Unlock()

		return
	}

	ph.stop = stop
	e.cancels[ph.id] = ph
	e.mu.Unlock()
}

func (e *Engine) receiveNotify(msg *Message) {
	e.mu.Lock()
	notify := e.notifies[msg.ID]
	e.mu.Unlock()

	if notify == nil {
		e.log.Debug("dropping notify for unknown call", "id", msg.ID)

		return
	}

	notify(msg.Param)
}

func (e *Engine) receiveAck(msg *Message) {
	e.mu.Lock()
	pc := e.replies[msg.ID]
	e.mu.Unlock()

	if pc == nil {
		e.log.Debug("dropping ack for unknown call", "id", msg.ID)

		return
	}

	if msg.Error != nil {
		e.finishCall(pc, nil, &rpcerr.CallError{Payload: msg.Error})

		return
	}

	e.finishCall(pc, msg.Param, nil)
}

func (e *Engine) receiveCancel(msg *Message) {
	e.mu.Lock()

	ph := e.cancels[msg.ID]
	if ph != nil {
		delete(e.cancels, msg.ID)
	}

	e.mu.Unlock()

	if ph == nil {
		e.log.Debug("dropping cancel for unknown call", "id", msg.ID)

		return
	}

	// The latch makes an inbound Cancel racing the handler's own reply
	// resolve to exactly one outcome: either the Ack already went out, or
	// the work is stopped and no Ack ever will.
	if ph.done.tryComplete() {
		e.log.Debug("cancelling in-flight handler", "id", msg.ID)
		ph.stop()
	}
}

// Connect installs send as the transport for outbound messages. Any calls
// still pending from a previous connection are swept first with reason
// "disconnected", so no call silently straddles a reconnection.
func (e *Engine) Connect(send SendFunc) {
	e.Disconnect(rpcerr.ReasonDisconnected)

	e.mu.Lock()
	e.send = send
	e.mu.Unlock()

	e.log.Debug("transport connected")
}

// Disconnect tears down every outstanding call: each pending caller-side
// delivery receives a terminal reply carrying reason (or "disconnected"
// when empty), each in-flight cancellable handler is stopped, and the send
// function is cleared so further sends are suppressed until Connect.
//
// Safe to call with nothing pending and concurrently with Deliver and
// Receive; calls started during the sweep belong to the next teardown.
func (e *Engine) Disconnect(reason string) {
	if reason == "" {
		reason = rpcerr.ReasonDisconnected
	}

	e.mu.Lock()

	calls := make([]*pendingCall, 0, len(e.replies))
	for _, pc := range e.replies {
		calls = append(calls, pc)
	}

	handlings := make([]*pendingHandling, 0, len(e.cancels))
	for _, ph := range e.cancels {
		handlings = append(handlings, ph)
	}

	clear(e.replies)
	clear(e.notifies)
	clear(e.cancels)

	e.send = nil
	e.mu.Unlock()

	if len(calls) > 0 || len(handlings) > 0 {
		e.log.Debug("sweeping pending calls", "reason", reason,
			"pending_replies", len(calls), "in_flight_handlers", len(handlings))
	}

	for _, pc := range calls {
		e.finishCall(pc, nil, &rpcerr.CallError{Reason: reason})
	}

	for _, ph := range handlings {
		if ph.done.tryComplete() {
			ph.stop()
		}
	}
}

// sendMessage hands msg to the current transport, dropping it with a
// diagnostic when disconnected.
func (e *Engine) sendMessage(msg *Message) {
	e.mu.Lock()
	send := e.send
	e.mu.Unlock()

	if send == nil {
		e.log.Debug("send suppressed, not connected", "kind", msg.Kind.String(), "id", msg.ID)

		return
	}

	send(msg)
}

// allocIDLocked returns the next call identifier. The sequence starts at
// the minimum int32 and wraps to minimum+1 after the maximum, leaving the
// starting value as a sentinel gap after the first wrap. Uniqueness is only
// required among outstanding calls; full-cycle reuse would need over four
// billion simultaneously pending deliveries.
func (e *Engine) allocIDLocked() int32 {
	id := e.nextID

	if e.nextID == math.MaxInt32 {
		e.nextID = math.MinInt32 + 1
	} else {
		e.nextID++
	}

	return id
}
