// Package mqtt carries tasks, results and node announcements between the
// coordinator and the nodes of a collaboration channel.
package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout    = 10 * time.Second
	maxReconnect   = time.Minute
	disconnTimeout = 250
)

const (
	StatusAlive   = "alive"
	StatusOffline = "offline"
)

var (
	ErrConnect    = errors.New("failed to connect to MQTT broker")
	ErrTimeout    = errors.New("MQTT operation timed out")
	errEmptyTopic = errors.New("empty topic")
	errEmptyID    = errors.New("empty client ID")
)

// Announcement is published by a node on the discovery topic when it starts
// and on the liveness topic afterwards.
type Announcement struct {
	NodeID int    `json:"node_id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

type Handler func(msg Message) error

type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type Config struct {
	URL      string
	QoS      byte
	ClientID string
	Username string
	Password string
	Encoding Encoding
	// ChannelID and NodeID, when both set, register a last will announcing
	// the node offline on the channel's liveness topic.
	ChannelID string
	NodeID    int
	Timeout   time.Duration
}

type pubsub struct {
	client  mqtt.Client
	codec   Codec
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

func NewPubSub(cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}
	codec, err := NewCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	ps := &pubsub{
		codec:   codec,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String("client_id", cfg.ClientID)),
	}
	if err := ps.connect(cfg); err != nil {
		return nil, err
	}

	return ps, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := ps.codec.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.wait(ctx, ps.client.Publish(topic, ps.qos, false, data), "publish")
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.wait(ctx, ps.client.Subscribe(topic, ps.qos, ps.mqttHandler(handler)), "subscribe")
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.wait(ctx, ps.client.Unsubscribe(topic), "unsubscribe")
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps.client.Disconnect(disconnTimeout)

	return nil
}

// wait blocks until the token completes, ctx is done or the client timeout
// elapses, whichever comes first.
func (ps *pubsub) wait(ctx context.Context, token mqtt.Token, op string) error {
	var timeout <-chan time.Time
	if ps.timeout > 0 {
		t := time.NewTimer(ps.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return errors.Join(ErrTimeout, errors.New(op))
	}
}

func (ps *pubsub) connect(cfg Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout).
		SetMaxReconnectInterval(maxReconnect)

	if cfg.ChannelID != "" && cfg.NodeID > 0 {
		will, err := ps.codec.Marshal(Announcement{NodeID: cfg.NodeID, Status: StatusOffline})
		if err != nil {
			return err
		}
		opts.SetBinaryWill(AliveTopic(cfg.ChannelID), will, 0, false)
	}

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		ps.logger.Info("MQTT connection established", slog.String("broker", cfg.URL))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		ps.logger.Warn("MQTT connection lost", slog.Any("error", err))
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		ps.logger.Info("MQTT reconnecting")
	})

	ps.client = mqtt.NewClient(opts)
	token := ps.client.Connect()
	if !token.WaitTimeout(connTimeout) {
		return errors.Join(ErrConnect, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return errors.Join(ErrConnect, err)
	}

	return nil
}

func (ps *pubsub) mqttHandler(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		msg := Message{Topic: m.Topic(), Payload: m.Payload(), codec: ps.codec}
		if err := h(msg); err != nil {
			ps.logger.Warn("Failed to handle MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))
		}

		m.Ack()
	}
}
