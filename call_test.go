package duplexrpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplexrpc/duplex-go/internal/rpcerr"
)

// linkEngines wires two engines directly to each other's Receive.
func linkEngines(t *testing.T) (*Engine, *Engine) {
	t.Helper()

	a := New()
	b := New()

	a.Connect(func(msg *Message) { b.Receive(msg) })
	b.Connect(func(msg *Message) { a.Receive(msg) })

	t.Cleanup(func() {
		a.Disconnect("")
		b.Disconnect("")
	})

	return a, b
}

func TestCall_Success(t *testing.T) {
	a, b := linkEngines(t)

	b.On("upper", func(param any, _ NotifyFunc, reply ReplyFunc) CancelFunc {
		s, _ := param.(string)
		go reply(s+"!", nil)

		return nil
	})

	result, err := a.Call(context.Background(), "upper", "hello", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello!", result)
}

func TestCall_PeerError(t *testing.T) {
	a, b := linkEngines(t)

	b.On("fail", func(_ any, _ NotifyFunc, reply ReplyFunc) CancelFunc {
		go reply(nil, &CallError{Payload: "out of disk"})

		return nil
	})

	_, err := a.Call(context.Background(), "fail", nil, time.Second)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "out of disk", ce.Payload)
}

func TestCall_Unimplemented(t *testing.T) {
	a, _ := linkEngines(t)

	_, err := a.Call(context.Background(), "missing", nil, time.Second)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ReasonUnimplemented, ce.Payload)
}

func TestCall_Timeout(t *testing.T) {
	a, b := linkEngines(t)

	b.On("never", func(_ any, _ NotifyFunc, _ ReplyFunc) CancelFunc {
		return nil
	})

	_, err := a.Call(context.Background(), "never", nil, 30*time.Millisecond)
	assert.ErrorIs(t, err, &rpcerr.CallError{Reason: ReasonTimedOut})
}

func TestCall_ContextCancelled(t *testing.T) {
	a, b := linkEngines(t)

	stopped := make(chan struct{})
	b.On("forever", func(_ any, _ NotifyFunc, _ ReplyFunc) CancelFunc {
		return func() { close(stopped) }
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := a.Call(ctx, "forever", nil, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The peer's in-flight handler was told to stop.
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("peer handler was not cancelled")
	}
}
