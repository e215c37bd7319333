package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// Subjects used on the bus.
const (
	SubjectGuideLocation = "guide.location.updated"
	subjectAlignmentFmt  = "alignment.%s.%s" // session id, event type
)

// AlignmentSubject returns the subject an alignment event is published on.
func AlignmentSubject(ev *domain.AlignmentEvent) string {
	return fmt.Sprintf(subjectAlignmentFmt, ev.SessionID, ev.Type)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      "ALIGNMENT_EVENTS",
			Subjects:  []string{"alignment.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:              "GUIDE_LOCATIONS",
			Subjects:          []string{"guide.>"},
			Retention:         nats.LimitsPolicy,
			MaxAge:            7 * 24 * time.Hour,
			MaxMsgsPerSubject: 100,
			Storage:           nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishAlignmentEvent publishes on alignment.<session>.<entered|exited>.
func (p *Publisher) PublishAlignmentEvent(ctx context.Context, ev *domain.AlignmentEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AlignmentSubject(ev), data, nats.Context(ctx))
	return err
}

// PublishGuideLocation announces a new target to every API instance.
func (p *Publisher) PublishGuideLocation(ctx context.Context, loc *domain.GuideLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectGuideLocation, data, nats.Context(ctx))
	return err
}

// Connected reports whether the connection is currently up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("darshanam"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
