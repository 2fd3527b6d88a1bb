package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS bus
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	// InstanceID tags published frames so an instance ignores its own
	InstanceID    string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS bus configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "syncboard.rooms",
		InstanceID:    uuid.New().String(),
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

type busEnvelope struct {
	Origin string          `json:"origin"`
	RoomID string          `json:"roomId"`
	Frame  json.RawMessage `json:"frame"`
}

// NATSBus relays frames between instances over core NATS subjects
// <prefix>.<roomId>
type NATSBus struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSBus connects to NATS
func NewNATSBus(config NATSConfig) (*NATSBus, error) {
	if config.InstanceID == "" {
		config.InstanceID = uuid.New().String()
	}
	opts := []nats.Option{
		nats.Name("syncboard-relay-" + config.InstanceID),
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

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("instance_id", config.InstanceID).
		Msg("relay bus connected to NATS")

	return &NATSBus{nc: nc, config: config}, nil
}

func (b *NATSBus) Publish(roomID string, frame []byte) error {
	data, err := json.Marshal(busEnvelope{
		Origin: b.config.InstanceID,
		RoomID: roomID,
		Frame:  frame,
	})
	if err != nil {
		return fmt.Errorf("marshal bus envelope: %w", err)
	}
	if err := b.nc.Publish(b.subject(roomID), data); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context, deliver func(roomID string, frame []byte)) error {
	sub, err := b.nc.Subscribe(b.config.SubjectPrefix+".>", func(msg *nats.Msg) {
		var env busEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed bus message")
			return
		}
		if env.Origin == b.config.InstanceID {
			return
		}
		deliver(env.RoomID, env.Frame)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.config.SubjectPrefix, err)
	}

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("failed to unsubscribe relay bus")
	}
	return nil
}

// Close drains pending messages and closes the connection
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

// subject maps a room id onto a single NATS token
func (b *NATSBus) subject(roomID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, roomID)
	if token == "" {
		token = "_"
	}
	return b.config.SubjectPrefix + "." + token
}
