package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeGuideLocations delivers every new guide location to handler.
// The consumer is ephemeral: each API instance hosts its own sessions and
// must see every update, starting from the newest one.
func (s *Subscriber) SubscribeGuideLocations(ctx context.Context, handler func(ctx context.Context, loc *domain.GuideLocation) error) error {
	sub, err := s.js.Subscribe(SubjectGuideLocation, func(msg *nats.Msg) {
		var loc domain.GuideLocation
		if err := json.Unmarshal(msg.Data, &loc); err != nil {
			slog.Warn("drop malformed guide location", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &loc); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverLast(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
