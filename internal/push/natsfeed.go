package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS feed.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g. "room.events."
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS feed configuration.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		SubjectPrefix: "room.events.",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSFeed subscribes to the room's event subject on a NATS broker. Used
// in deployments where the game server publishes room events to a bus
// instead of (or in addition to) a socket endpoint. Core NATS delivery is
// best-effort, which matches the channel contract: the polling fallback
// covers anything lost.
type NATSFeed struct {
	config  NATSConfig
	roomID  string
	handler Handler
	nc      *nats.Conn
	sub     *nats.Subscription
}

// NewNATSFeed connects to the broker and prepares a feed for one room.
func NewNATSFeed(config NATSConfig, roomID string, handler Handler) (*NATSFeed, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSFeed{
		config:  config,
		roomID:  roomID,
		handler: handler,
		nc:      nc,
	}, nil
}

// Start subscribes and delivers events until ctx is cancelled.
func (f *NATSFeed) Start(ctx context.Context) error {
	subject := f.config.SubjectPrefix + f.roomID

	sub, err := f.nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := f.decodeMessage(msg)
		if err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject).
				Msg("failed to decode NATS event")
			return
		}
		f.handler(ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	f.sub = sub

	log.Info().
		Str("subject", subject).
		Str("room_id", f.roomID).
		Msg("NATS feed subscribed")

	<-ctx.Done()
	return nil
}

// decodeMessage parses the published envelope into an Event.
func (f *NATSFeed) decodeMessage(msg *nats.Msg) (Event, error) {
	var envelope struct {
		EventID string          `json:"event_id"`
		Event   string          `json:"event"`
		RoomID  string          `json:"room_id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return Event{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	ev := Event{
		ID:         envelope.EventID,
		RoomID:     envelope.RoomID,
		Name:       EventName(envelope.Event),
		Data:       envelope.Payload,
		ReceivedAt: time.Now(),
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	log.Debug().
		Str("event_id", ev.ID).
		Str("event", string(ev.Name)).
		Str("subject", msg.Subject).
		Msg("NATS event received")

	return ev, nil
}

// Close unsubscribes and drains the connection.
func (f *NATSFeed) Close() error {
	if f.sub != nil {
		if err := f.sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe NATS feed")
		}
	}
	if f.nc != nil {
		return f.nc.Drain()
	}
	return nil
}
