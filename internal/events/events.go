// Package events publishes withdrawal lifecycle events after their
// transaction commits. Delivery is best effort.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	TypeCreated   = "created"
	TypeApproved  = "approved"
	TypeRejected  = "rejected"
	TypeCompleted = "completed"
)

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	RequestID   uint      `json:"request_id"`
	UserID      uint      `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	ActorID     uint      `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func New(eventType string, requestID, userID uint, amountCents int64, status string, actorID uint, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		RequestID:   requestID,
		UserID:      userID,
		AmountCents: amountCents,
		Status:      status,
		ActorID:     actorID,
		OccurredAt:  at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes JSON events on <prefix>.withdrawal.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("ambassador-ledger"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(eventType string) string {
	return Subject(p.prefix, eventType)
}

func (p *NATSPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(e.Type), data)
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

func Subject(prefix, eventType string) string {
	return prefix + ".withdrawal." + eventType
}
