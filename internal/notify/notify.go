// Package notify delivers system and email notification events emitted on
// task lifecycle transitions. Delivery is fire-and-forget: a failed
// notification never blocks or rolls back the transition that produced it.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelSystem Channel = "system"
	ChannelEmail  Channel = "email"
)

// Event is one notification to one audience member.
type Event struct {
	Audience uuid.UUID `json:"audience"`
	Email    string    `json:"email,omitempty"`
	Channel  Channel   `json:"channel"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// System builds an in-app notification event.
func System(audience uuid.UUID, subject, body string) Event {
	return Event{Audience: audience, Channel: ChannelSystem, Subject: subject, Body: body}
}

// Email builds an email notification event.
func Email(audience uuid.UUID, email, subject, body string) Event {
	return Event{Audience: audience, Email: email, Channel: ChannelEmail, Subject: subject, Body: body}
}

// Multi fans an event out to every configured channel backend.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// Logger records events through slog only. It is the fallback backend when
// no delivery transport is configured.
type Logger struct{}

func (Logger) Notify(_ context.Context, e Event) {
	slog.Info("notification",
		"audience", e.Audience,
		"channel", e.Channel,
		"subject", e.Subject,
	)
}
