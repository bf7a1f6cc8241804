package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/absmach/fedkm/pkg/mqtt"
)

var _ mqtt.PubSub = (*Broker)(nil)

// Broker is an in-process PubSub. Messages are encoded with the broker's
// codec and delivered synchronously to every subscription whose filter
// matches the topic, including "+" and "#" wildcards.
type Broker struct {
	codec     mqtt.Codec
	mu        sync.Mutex
	subs      map[string]mqtt.Handler
	published []mqtt.Message
}

// NewBroker returns a JSON broker.
func NewBroker() *Broker {
	codec, _ := mqtt.NewCodec(mqtt.EncodingJSON)

	return NewBrokerWithCodec(codec)
}

func NewBrokerWithCodec(codec mqtt.Codec) *Broker {
	return &Broker{
		codec: codec,
		subs:  make(map[string]mqtt.Handler),
	}
}

func (b *Broker) Publish(ctx context.Context, topic string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := mqtt.NewMessage(b.codec, topic, msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.published = append(b.published, m)
	var handlers []mqtt.Handler
	for filter, h := range b.subs {
		if matches(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		_ = h(m)
	}

	return nil
}

func (b *Broker) Subscribe(_ context.Context, topic string, handler mqtt.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = handler

	return nil
}

func (b *Broker) Unsubscribe(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, topic)

	return nil
}

func (b *Broker) Disconnect(_ context.Context) error {
	return nil
}

// Published returns the messages published on topics matching filter.
func (b *Broker) Published(filter string) []mqtt.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []mqtt.Message
	for _, m := range b.published {
		if matches(filter, m.Topic) {
			out = append(out, m)
		}
	}

	return out
}

func matches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}

	return len(fs) == len(ts)
}
