// Package notify delivers complaint lifecycle events to whoever is listening:
// the log, the interactive shell, websocket clients and Redis subscribers.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/joescharf/hostel/internal/models"
)

// EventType identifies what happened to a complaint.
type EventType string

const (
	EventSubmitted     EventType = "submitted"
	EventStatusChanged EventType = "status_changed"
	EventAssigned      EventType = "assigned"
	EventFeedback      EventType = "feedback"
)

// Event describes one change to a complaint.
type Event struct {
	Type        EventType              `json:"type"`
	ComplaintID string                 `json:"complaint_id"`
	StudentID   string                 `json:"student_id"`
	Status      models.ComplaintStatus `json:"status"`
	AssignedTo  string                 `json:"assigned_to,omitempty"`
	Rating      int                    `json:"rating,omitempty"`
	Actor       string                 `json:"actor,omitempty"`
	// Message is the confirmation shown to the user who made the change.
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives lifecycle events. Delivery is best effort: a notifier
// never fails the action that produced the event.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, e Event)

func (f Func) Notify(ctx context.Context, e Event) { f(ctx, e) }

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "complaint event",
		"type", e.Type,
		"complaint_id", e.ComplaintID,
		"status", e.Status,
		"assigned_to", e.AssignedTo,
		"actor", e.Actor,
	)
}
