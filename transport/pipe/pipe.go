package pipe

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	duplexrpc "github.com/duplexrpc/duplex-go"
)

const defaultBuffer = 64

// Option configures a Link.
type Option func(*linkConfig)

type linkConfig struct {
	logger *slog.Logger
	buffer int
}

// WithLogger sets the logger for link diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *linkConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithBuffer sets the per-direction queue depth. A deeper queue tolerates
// burstier traffic before senders block on the pumps.
func WithBuffer(n int) Option {
	return func(cfg *linkConfig) {
		if n > 0 {
			cfg.buffer = n
		}
	}
}

// Conn is an established in-process link between two engines. Closing it
// stops both pumps and disconnects both engines.
type Conn struct {
	log    *slog.Logger
	cancel context.CancelFunc
	group  *errgroup.Group

	left  *duplexrpc.Engine
	right *duplexrpc.Engine

	closeOnce sync.Once
}

// Link connects two engines back to back. Each engine is Connect-ed to a
// send function that enqueues a copy of the message; one pump goroutine per
// direction feeds the opposite engine's Receive in order.
func Link(left, right *duplexrpc.Engine, opts ...Option) *Conn {
	cfg := &linkConfig{
		logger: duplexrpc.NopLogger(),
		buffer: defaultBuffer,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	log := cfg.logger.With("component", "pipe")

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	toRight := make(chan *duplexrpc.Message, cfg.buffer)
	toLeft := make(chan *duplexrpc.Message, cfg.buffer)

	left.Connect(enqueue(ctx, toRight))
	right.Connect(enqueue(ctx, toLeft))

	group.Go(func() error {
		pump(ctx, toRight, right)

		return nil
	})
	group.Go(func() error {
		pump(ctx, toLeft, left)

		return nil
	})

	log.Debug("link established", "buffer", cfg.buffer)

	return &Conn{
		log:    log,
		cancel: cancel,
		group:  group,
		left:   left,
		right:  right,
	}
}

// Close stops both pumps and sweeps both engines with reason
// "disconnected". Safe to call multiple times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.group.Wait()

		c.left.Disconnect(duplexrpc.ReasonDisconnected)
		c.right.Disconnect(duplexrpc.ReasonDisconnected)

		c.log.Debug("link closed")
	})
}

// enqueue returns a send function placing copies of outbound messages on
// ch. Copying keeps the two engines from sharing a mutable message value.
func enqueue(ctx context.Context, ch chan<- *duplexrpc.Message) duplexrpc.SendFunc {
	return func(msg *duplexrpc.Message) {
		copied := *msg

		select {
		case ch <- &copied:
		case <-ctx.Done():
		}
	}
}

// pump feeds queued messages into the receiving engine until the link is
// closed. Draining a single channel per direction preserves arrival order.
func pump(ctx context.Context, ch <-chan *duplexrpc.Message, dst *duplexrpc.Engine) {
	for {
		select {
		case msg := <-ch:
			dst.Receive(msg)

		case <-ctx.Done():
			return
		}
	}
}
