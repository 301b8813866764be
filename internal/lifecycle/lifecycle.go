// Package lifecycle is the only place complaint status, assignment, feedback
// and their timestamps change.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/store"
)

var (
	// ErrTransitionNotAllowed is returned when the policy rejects a status change.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrFeedbackNotAllowed is returned for feedback on a complaint that is not resolved or closed.
	ErrFeedbackNotAllowed = errors.New("feedback is only accepted once a complaint is resolved")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidRating is returned for a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Controller applies lifecycle changes to complaints held in a store.
type Controller struct {
	store    store.Store
	policy   Policy
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy sets the transition policy. The default is Permissive.
func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithNotifier sets where lifecycle events go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller over s.
func New(s store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:    s,
		policy:   Permissive,
		notifier: notify.Nop{},
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active transition policy.
func (c *Controller) Policy() Policy { return c.policy }

// SetStatus moves a complaint to status. Entering resolved or closed stamps
// ResolvedAt; returning to an open status clears it.
func (c *Controller) SetStatus(ctx context.Context, id string, status models.ComplaintStatus, actor string) (*models.Complaint, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}

	cur, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.policy.Allowed(cur.Status, status) {
		return nil, fmt.Errorf("%w: %s → %s (%s policy)", ErrTransitionNotAllowed, cur.Status, status, c.policy.Name())
	}

	from := cur.Status
	cur.Status = status
	c.touch(cur)
	switch {
	case status.IsFinished() && cur.ResolvedAt == nil:
		t := cur.UpdatedAt
		cur.ResolvedAt = &t
	case !status.IsFinished():
		cur.ResolvedAt = nil
	}

	if err := c.store.Replace(ctx, cur); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	c.logger.Debug("complaint status changed", "id", id, "from", from, "to", status, "actor", actor)
	c.emit(ctx, notify.EventStatusChanged, cur, actor, fmt.Sprintf("Status updated to %s", status))
	return cur, nil
}

// Assign sets the assignee. A submitted complaint moves to assigned; any
// other status is left alone. An empty assignee clears the assignment.
func (c *Controller) Assign(ctx context.Context, id, assignee, actor string) (*models.Complaint, error) {
	assignee = strings.TrimSpace(assignee)

	cur, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cur.AssignedTo = assignee
	if assignee != "" && cur.Status == models.StatusSubmitted {
		if !c.policy.Allowed(cur.Status, models.StatusAssigned) {
			return nil, fmt.Errorf("%w: %s → %s (%s policy)", ErrTransitionNotAllowed, cur.Status, models.StatusAssigned, c.policy.Name())
		}
		cur.Status = models.StatusAssigned
	}
	c.touch(cur)

	if err := c.store.Replace(ctx, cur); err != nil {
		return nil, fmt.Errorf("assign complaint: %w", err)
	}

	msg := fmt.Sprintf("Assigned to %s", assignee)
	if assignee == "" {
		msg = "Assignment cleared"
	}
	c.logger.Debug("complaint assigned", "id", id, "assigned_to", assignee, "status", cur.Status, "actor", actor)
	c.emit(ctx, notify.EventAssigned, cur, actor, msg)
	return cur, nil
}

// RecordFeedback stores the student's rating and comment on a finished complaint.
func (c *Controller) RecordFeedback(ctx context.Context, id string, rating int, text, actor string) (*models.Complaint, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}

	cur, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.Status.IsFinished() {
		return nil, fmt.Errorf("%w (status is %s)", ErrFeedbackNotAllowed, cur.Status)
	}

	cur.Rating = rating
	cur.Feedback = strings.TrimSpace(text)
	c.touch(cur)

	if err := c.store.Replace(ctx, cur); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	c.emit(ctx, notify.EventFeedback, cur, actor, "Thanks for your feedback!")
	return cur, nil
}

// touch sets UpdatedAt to now, never moving it backwards.
func (c *Controller) touch(cur *models.Complaint) {
	now := c.now()
	if now.Before(cur.UpdatedAt) {
		now = cur.UpdatedAt
	}
	cur.UpdatedAt = now
}

func (c *Controller) emit(ctx context.Context, typ notify.EventType, cur *models.Complaint, actor, msg string) {
	c.notifier.Notify(ctx, notify.Event{
		Type:        typ,
		ComplaintID: cur.ID,
		StudentID:   cur.StudentID,
		Status:      cur.Status,
		AssignedTo:  cur.AssignedTo,
		Rating:      cur.Rating,
		Actor:       actor,
		Message:     msg,
		At:          cur.UpdatedAt,
	})
}
