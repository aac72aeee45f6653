package redisbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	duplexrpc "github.com/duplexrpc/duplex-go"
)

// ErrChannelsRequired indicates the bridge config is missing a channel name.
var ErrChannelsRequired = errors.New("redisbridge: send and receive channels required")

// Config describes one endpoint of a Redis bridge.
type Config struct {
	// Addr of the Redis server.
	Addr string `envconfig:"DUPLEX_REDIS_ADDR" default:"localhost:6379"`

	// Recv is the pub/sub channel this endpoint receives on.
	Recv string `envconfig:"DUPLEX_REDIS_RECV"`

	// Send is the pub/sub channel the remote endpoint receives on.
	Send string `envconfig:"DUPLEX_REDIS_SEND"`
}

// ConfigFromEnv builds a Config from DUPLEX_REDIS_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("redisbridge: process env config: %w", err)
	}

	return cfg, nil
}

// Bridge is an established Redis pub/sub link for one engine.
type Bridge struct {
	log    *slog.Logger
	client redis.UniversalClient
	pubsub *redis.PubSub
	engine *duplexrpc.Engine
	cancel context.CancelFunc

	closeOnce sync.Once
	pumpDone  chan struct{}
}

// Dial connects to Redis, subscribes the engine to its receive channel, and
// installs a send function publishing to the peer channel. The connection
// is verified with a ping before the bridge goes live.
func Dial(ctx context.Context, cfg Config, engine *duplexrpc.Engine, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = duplexrpc.NopLogger()
	}

	log = log.With("component", "redisbridge")

	if cfg.Recv == "" || cfg.Send == "" {
		return nil, ErrChannelsRequired
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redisbridge: ping %s: %w", cfg.Addr, err)
	}

	pubsub := client.Subscribe(ctx, cfg.Recv)

	// Force the subscription to be established before any sends happen, so
	// the peer's first reply cannot be published into the void.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()

		return nil, fmt.Errorf("redisbridge: subscribe %s: %w", cfg.Recv, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		log:      log,
		client:   client,
		pubsub:   pubsub,
		engine:   engine,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
	}

	go b.pump(pumpCtx)

	engine.Connect(func(msg *duplexrpc.Message) {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Error("failed to encode outbound message", "kind", msg.Kind.String(), "error", err)

			return
		}

		if err := client.Publish(context.Background(), cfg.Send, data).Err(); err != nil {
			log.Warn("failed to publish outbound message", "channel", cfg.Send, "error", err)
		}
	})

	log.Info("bridge established", "recv", cfg.Recv, "send", cfg.Send)

	return b, nil
}

// pump feeds subscribed messages into the engine until the bridge closes.
func (b *Bridge) pump(ctx context.Context) {
	defer close(b.pumpDone)

	ch := b.pubsub.Channel()

	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}

			var msg duplexrpc.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.Warn("dropping undecodable message", "channel", m.Channel, "error", err)

				continue
			}

			b.engine.Receive(&msg)

		case <-ctx.Done():
			return
		}
	}
}

// Close stops the pump, sweeps the engine with reason "disconnected", and
// releases the Redis connection. Safe to call multiple times.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.cancel()

		if err := b.pubsub.Close(); err != nil {
			b.log.Debug("pubsub close failed", "error", err)
		}

		<-b.pumpDone

		b.engine.Disconnect(duplexrpc.ReasonDisconnected)

		if err := b.client.Close(); err != nil {
			b.log.Debug("client close failed", "error", err)
		}

		b.log.Info("bridge closed")
	})
}
