package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsPublisher publishes order events to a JetStream stream. Subjects are
// the event names under the stream's subject space, e.g. "orders.order.paid".
type NatsPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// NewNatsPublisher connects to NATS and ensures the order event stream exists.
func NewNatsPublisher(ctx context.Context, url, stream string) (*NatsPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("glowora"))
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats: jetstream: %w", err)
	}

	prefix := "orders"
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{prefix + ".>"},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats: ensure stream %s: %w", stream, err)
	}

	return &NatsPublisher{conn: conn, js: js, prefix: prefix}, nil
}

var _ Publisher = (*NatsPublisher)(nil)

func (p *NatsPublisher) Publish(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, event.Event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}
