package natsbridge

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	duplexrpc "github.com/duplexrpc/duplex-go"
)

// startServer runs an embedded NATS server on a random port.
func startServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("NATS server failed to start")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns
}

func TestDial_PeerRequired(t *testing.T) {
	_, err := Dial(Config{}, duplexrpc.New(), nil)
	assert.ErrorIs(t, err, ErrPeerRequired)
}

func TestBridge_RoundTrip(t *testing.T) {
	ns := startServer(t)

	client := duplexrpc.New()
	server := duplexrpc.New()

	server.On("download", func(_ any, notify duplexrpc.NotifyFunc, reply duplexrpc.ReplyFunc) duplexrpc.CancelFunc {
		go func() {
			notify("50%")
			reply("done", nil)
		}()

		return nil
	})

	serverBridge, err := Dial(Config{
		URL:   ns.ClientURL(),
		Inbox: "duplex.test.server",
		Peer:  "duplex.test.client",
		Name:  "server",
	}, server, nil)
	require.NoError(t, err)

	defer serverBridge.Close()

	clientBridge, err := Dial(Config{
		URL:   ns.ClientURL(),
		Inbox: "duplex.test.client",
		Peer:  "duplex.test.server",
		Name:  "client",
	}, client, nil)
	require.NoError(t, err)

	defer clientBridge.Close()

	progress := make(chan any, 1)
	replies := make(chan any, 1)

	client.Deliver("download", "file.txt", 5*time.Second, func(result any, err error) {
		require.NoError(t, err)
		replies <- result
	}, func(param any) {
		progress <- param
	})

	select {
	case p := <-progress:
		assert.Equal(t, "50%", p)
	case <-time.After(5 * time.Second):
		t.Fatal("no progress received")
	}

	select {
	case r := <-replies:
		assert.Equal(t, "done", r)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply received")
	}
}

func TestBridge_Unimplemented(t *testing.T) {
	ns := startServer(t)

	client := duplexrpc.New()
	server := duplexrpc.New()

	serverBridge, err := Dial(Config{
		URL:   ns.ClientURL(),
		Inbox: "duplex.unimpl.server",
		Peer:  "duplex.unimpl.client",
	}, server, nil)
	require.NoError(t, err)

	defer serverBridge.Close()

	clientBridge, err := Dial(Config{
		URL:   ns.ClientURL(),
		Inbox: "duplex.unimpl.client",
		Peer:  "duplex.unimpl.server",
	}, client, nil)
	require.NoError(t, err)

	defer clientBridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Call(ctx, "missing", nil, 2*time.Second)

	var ce *duplexrpc.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, duplexrpc.ReasonUnimplemented, ce.Payload)
}

func TestBridge_GeneratedInbox(t *testing.T) {
	ns := startServer(t)

	bridge, err := Dial(Config{
		URL:  ns.ClientURL(),
		Peer: "duplex.somewhere",
	}, duplexrpc.New(), nil)
	require.NoError(t, err)

	defer bridge.Close()

	assert.Contains(t, bridge.Inbox(), "duplex.")
}
