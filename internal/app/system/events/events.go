// internal/app/system/events/events.go

// Package events carries notification events from committed state changes
// to the notification worker.
//
// Services publish only after their transaction commits, and a failed
// publish is logged, never returned: the data change has already happened
// and must not be reported as failed.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind names what happened.
type Kind string

const (
	JoinRequested   Kind = "join_requested"
	JoinApproved    Kind = "join_approved"
	JoinRejected    Kind = "join_rejected"
	LeftGroup       Kind = "left_group"
	TaskCreated     Kind = "task_created"
	TaskGraded      Kind = "task_graded"
	ContactReceived Kind = "contact_received"
	ContactReplied  Kind = "contact_replied"

	EmailVerification Kind = "email_verification"
	PasswordReset     Kind = "password_reset"
	PasswordChanged   Kind = "password_changed"
	AccountCreated    Kind = "account_created"
)

// Event is one notification to deliver to To.
type Event struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	To         string            `json:"to"`
	Data       map[string]string `json:"data"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New stamps a fresh event.
func New(kind Kind, to string, data map[string]string) Event {
	if data == nil {
		data = map[string]string{}
	}
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		To:         to,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Message is a received event with its delivery acknowledgements.
type Message struct {
	Event Event
	Ack   func() error
	Nack  func(requeue bool) error
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber yields events until ctx ends or the transport closes.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Message, error)
}

// Transport is a Publisher and Subscriber pair.
type Transport interface {
	Publisher
	Subscriber
	// Check reports whether the transport can still accept events.
	Check() error
	Close() error
}

var ErrClosed = errors.New("event transport closed")

// PublishAll publishes evs and logs any failure.
func PublishAll(ctx context.Context, pub Publisher, log *zap.Logger, evs ...Event) {
	if pub == nil {
		return
	}
	for _, e := range evs {
		if e.To == "" {
			continue
		}
		if err := pub.Publish(ctx, e); err != nil {
			log.Warn("event publish failed",
				zap.String("event_id", e.ID),
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
	}
}
