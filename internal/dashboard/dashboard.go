// Package dashboard is the boundary the CLI shell, REST API and MCP server
// call into. Every action takes the caller's session, is authorized against
// its role, and runs to completion before the next one starts.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joescharf/hostel/internal/authz"
	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/lifecycle"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/stats"
	"github.com/joescharf/hostel/internal/store"
)

// SubmittedMessage is the confirmation for a new complaint.
const SubmittedMessage = "Complaint submitted successfully!"

// Config wires a Service.
type Config struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
	Authz     *authz.Enforcer
	Notifier  notify.Notifier
	Staff     []string
	// SubmitLatency delays each submission to mimic a remote call.
	SubmitLatency time.Duration
	Logger        *slog.Logger
}

// Service serializes all dashboard actions.
type Service struct {
	mu sync.Mutex

	store     store.Store
	lifecycle *lifecycle.Controller
	authz     *authz.Enforcer
	notifier  notify.Notifier
	staff     []string
	latency   time.Duration
	logger    *slog.Logger

	validate *validator.Validate
}

// New creates a Service. Store, Lifecycle and Authz are required.
func New(cfg Config) *Service {
	s := &Service{
		store:     cfg.Store,
		lifecycle: cfg.Lifecycle,
		authz:     cfg.Authz,
		notifier:  cfg.Notifier,
		staff:     append([]string(nil), cfg.Staff...),
		latency:   cfg.SubmitLatency,
		logger:    cfg.Logger,
		validate:  newValidator(),
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Snapshot is a filtered view of the complaint list at one store revision.
type Snapshot struct {
	Complaints []*models.Complaint `json:"complaints"`
	// Total is the number of complaints in scope before filtering.
	Total    int         `json:"total"`
	Revision uint64      `json:"revision"`
	View     filter.View `json:"view"`
}

// Submit validates draft and stores it as a new complaint owned by the session user.
func (s *Service) Submit(ctx context.Context, sess *identity.Session, draft models.ComplaintDraft) (*models.Complaint, error) {
	if err := s.authorize(sess, authz.ResourceComplaint, authz.ActionSubmit); err != nil {
		return nil, err
	}

	draft.Title = s.clean(draft.Title)
	draft.Description = s.clean(draft.Description)
	draft.Category = models.ComplaintCategory(strings.TrimSpace(string(draft.Category)))
	draft.Priority = models.ComplaintPriority(strings.TrimSpace(string(draft.Priority)))
	if err := s.validate.Struct(draft); err != nil {
		return nil, toValidationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	owner := sess.User
	c, err := s.store.Create(ctx, draft, &owner)
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint submitted", "id", c.ID, "student", c.StudentID, "category", c.Category, "priority", c.Priority)
	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventSubmitted,
		ComplaintID: c.ID,
		StudentID:   c.StudentID,
		Status:      c.Status,
		Actor:       sess.User.Name,
		Message:     SubmittedMessage,
		At:          c.CreatedAt,
	})
	return c, nil
}

// UpdateStatus changes a complaint's status.
func (s *Service) UpdateStatus(ctx context.Context, sess *identity.Session, id string, status models.ComplaintStatus) (*models.Complaint, error) {
	if err := s.authorize(sess, authz.ResourceComplaint, authz.ActionUpdateStatus); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.SetStatus(ctx, id, status, sess.User.Name)
}

// Assign sets a complaint's assignee. Names outside the staff roster are
// accepted with a warning.
func (s *Service) Assign(ctx context.Context, sess *identity.Session, id, assignee string) (*models.Complaint, error) {
	if err := s.authorize(sess, authz.ResourceComplaint, authz.ActionAssign); err != nil {
		return nil, err
	}
	assignee = s.clean(assignee)

	s.mu.Lock()
	defer s.mu.Unlock()

	if assignee != "" && !s.isStaff(assignee) {
		s.logger.Warn("assignee is not on the staff roster", "id", id, "assignee", assignee)
	}
	return s.lifecycle.Assign(ctx, id, assignee, sess.User.Name)
}

// SubmitFeedback records a rating on one of the student's own finished complaints.
func (s *Service) SubmitFeedback(ctx context.Context, sess *identity.Session, id string, rating int, text string) (*models.Complaint, error) {
	if err := s.authorize(sess, authz.ResourceComplaint, authz.ActionFeedback); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(sess, c) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return s.lifecycle.RecordFeedback(ctx, id, rating, s.clean(text), sess.User.Name)
}

// List returns the session's complaints narrowed by q.
func (s *Service) List(ctx context.Context, sess *identity.Session, q filter.Query) (*Snapshot, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	action := authz.ActionListOwn
	if sess.User.Role == models.RoleWarden {
		action = authz.ActionListAll
	}
	if err := s.authorize(sess, authz.ResourceComplaint, action); err != nil {
		return nil, err
	}

	view := filter.ViewFor(sess.User.Role)
	if err := q.Validate(view); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.List(ctx, store.ScopeFor(&sess.User))
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Complaints: filter.Apply(all, q, view),
		Total:      len(all),
		Revision:   s.store.Revision(),
		View:       view,
	}, nil
}

// Get returns one complaint by id or unique id prefix. Students only see
// their own complaints; anything else is reported as not found.
func (s *Service) Get(ctx context.Context, sess *identity.Session, ref string) (*models.Complaint, error) {
	if err := s.authorize(sess, authz.ResourceComplaint, authz.ActionView); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty id", store.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, ref)
	if err == nil {
		if !owns(sess, c) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
		}
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	all, err := s.store.List(ctx, store.ScopeFor(&sess.User))
	if err != nil {
		return nil, err
	}
	var match *models.Complaint
	upper := strings.ToUpper(ref)
	for _, c := range all {
		if strings.HasPrefix(strings.ToUpper(c.ID), upper) {
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, ref)
			}
			match = c
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	}
	return match, nil
}

// Stats aggregates the session's unfiltered complaint list.
func (s *Service) Stats(ctx context.Context, sess *identity.Session) (stats.Stats, error) {
	if err := s.authorize(sess, authz.ResourceStats, authz.ActionRead); err != nil {
		return stats.Stats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.List(ctx, store.ScopeFor(&sess.User))
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Compute(all), nil
}

// Staff returns the staff roster used for assignment.
func (s *Service) Staff(sess *identity.Session) ([]string, error) {
	if err := s.authorize(sess, authz.ResourceStaff, authz.ActionRead); err != nil {
		return nil, err
	}
	return append([]string(nil), s.staff...), nil
}

// Export returns every complaint and their stats for a warden report.
func (s *Service) Export(ctx context.Context, sess *identity.Session) ([]*models.Complaint, stats.Stats, error) {
	if err := s.authorize(sess, authz.ResourceReport, authz.ActionRead); err != nil {
		return nil, stats.Stats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.List(ctx, store.Scope{})
	if err != nil {
		return nil, stats.Stats{}, err
	}
	return all, stats.Compute(all), nil
}

// Revision returns the store revision, for change detection.
func (s *Service) Revision() uint64 {
	return s.store.Revision()
}

func (s *Service) authorize(sess *identity.Session, resource, action string) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	ok, err := s.authz.Allowed(sess.User.Role, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s cannot %s %s", ErrForbidden, sess.User.Role, action, resource)
	}
	return nil
}

// clean trims surrounding whitespace. Input is plain text and is otherwise
// stored verbatim; HTML output escapes it where it is rendered.
func (s *Service) clean(v string) string {
	return strings.TrimSpace(v)
}

func (s *Service) isStaff(name string) bool {
	for _, n := range s.staff {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// owns reports whether the session may see c.
func owns(sess *identity.Session, c *models.Complaint) bool {
	return sess.User.Role == models.RoleWarden || c.StudentID == sess.User.ID
}
