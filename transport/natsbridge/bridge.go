package natsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	duplexrpc "github.com/duplexrpc/duplex-go"
)

const (
	connectTimeout = 10 * time.Second
	reconnectWait  = 2 * time.Second
	maxReconnects  = 60
)

// ErrPeerRequired indicates the bridge config names no peer subject.
var ErrPeerRequired = errors.New("natsbridge: peer subject required")

// Config describes one endpoint of a NATS bridge.
type Config struct {
	// URL of the NATS server.
	URL string `envconfig:"DUPLEX_NATS_URL" default:"nats://127.0.0.1:4222"`

	// Inbox is the subject this endpoint receives on. When empty a unique
	// "duplex.<ULID>" subject is generated.
	Inbox string `envconfig:"DUPLEX_NATS_INBOX"`

	// Peer is the subject the remote endpoint receives on.
	Peer string `envconfig:"DUPLEX_NATS_PEER"`

	// Name identifies the connection to the server.
	Name string `envconfig:"DUPLEX_NATS_NAME" default:"duplex-bridge"`
}

// ConfigFromEnv builds a Config from DUPLEX_NATS_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("natsbridge: process env config: %w", err)
	}

	return cfg, nil
}

// Bridge is an established NATS link for one engine.
type Bridge struct {
	log    *slog.Logger
	nc     *nats.Conn
	sub    *nats.Subscription
	engine *duplexrpc.Engine
	inbox  string

	closeOnce sync.Once
}

// Dial connects to NATS, subscribes the engine to its inbox, and installs a
// send function publishing to the peer subject. The engine is live as soon
// as Dial returns.
func Dial(cfg Config, engine *duplexrpc.Engine, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = duplexrpc.NopLogger()
	}

	log = log.With("component", "natsbridge")

	if cfg.Peer == "" {
		return nil, ErrPeerRequired
	}

	inbox := cfg.Inbox
	if inbox == "" {
		inbox = "duplex." + ulid.Make().String()
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: connect to %s: %w", cfg.URL, err)
	}

	b := &Bridge{
		log:    log,
		nc:     nc,
		engine: engine,
		inbox:  inbox,
	}

	sub, err := nc.Subscribe(inbox, func(m *nats.Msg) {
		var msg duplexrpc.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			log.Warn("dropping undecodable message", "subject", m.Subject, "error", err)

			return
		}

		engine.Receive(&msg)
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("natsbridge: subscribe %s: %w", inbox, err)
	}

	b.sub = sub

	engine.Connect(func(msg *duplexrpc.Message) {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Error("failed to encode outbound message", "kind", msg.Kind.String(), "error", err)

			return
		}

		if err := nc.Publish(cfg.Peer, data); err != nil {
			log.Warn("failed to publish outbound message", "subject", cfg.Peer, "error", err)
		}
	})

	log.Info("bridge established", "inbox", inbox, "peer", cfg.Peer)

	return b, nil
}

// Inbox returns the subject this endpoint receives on, useful when the
// inbox was generated.
func (b *Bridge) Inbox() string {
	return b.inbox
}

// Close unsubscribes, sweeps the engine with reason "disconnected", and
// drops the NATS connection. Safe to call multiple times.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		if err := b.sub.Unsubscribe(); err != nil {
			b.log.Debug("unsubscribe failed", "error", err)
		}

		b.engine.Disconnect(duplexrpc.ReasonDisconnected)
		b.nc.Close()
		b.log.Info("bridge closed", "inbox", b.inbox)
	})
}
