package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/hostel/internal/models"
)

// ErrNotFound is returned when a complaint id does not exist in the store.
var ErrNotFound = errors.New("complaint not found")

// Scope restricts which complaints List returns.
// A zero Scope returns every complaint (warden view).
type Scope struct {
	StudentID string
}

// ScopeFor returns the list scope for a user: students only see their own complaints.
func ScopeFor(u *models.User) Scope {
	if u != nil && u.Role == models.RoleStudent {
		return Scope{StudentID: u.ID}
	}
	return Scope{}
}

// Store holds the complaint list for a session.
//
// The list is ordered newest first. Complaints handed out by a Store are copies;
// the only way to change a stored complaint is Replace.
type Store interface {
	Create(ctx context.Context, draft models.ComplaintDraft, owner *models.User) (*models.Complaint, error)
	Import(ctx context.Context, c *models.Complaint) error
	Get(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, scope Scope) ([]*models.Complaint, error)
	Replace(ctx context.Context, c *models.Complaint) error

	// Revision increases on every successful mutation.
	Revision() uint64

	Close() error
}

// Owner fallbacks used when the submitting user is missing fields.
const (
	DefaultStudentID   = "1"
	DefaultStudentName = "Student"
	DefaultRoomNumber  = "101"
	DefaultHostelBlock = "Block A"
)

// newULID generates a new ULID string.
func newULID() string {
	return ulid.Make().String()
}

// newComplaint builds a freshly submitted complaint from a draft and its owner.
func newComplaint(draft models.ComplaintDraft, owner *models.User, now time.Time) *models.Complaint {
	draft = draft.WithDefaults()
	c := &models.Complaint{
		ID:          newULID(),
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Priority:    draft.Priority,
		Status:      models.StatusSubmitted,
		StudentID:   DefaultStudentID,
		StudentName: DefaultStudentName,
		RoomNumber:  DefaultRoomNumber,
		HostelBlock: DefaultHostelBlock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if owner != nil {
		c.StudentID = fallback(owner.ID, c.StudentID)
		c.StudentName = fallback(owner.Name, c.StudentName)
		c.RoomNumber = fallback(owner.RoomNumber, c.RoomNumber)
		c.HostelBlock = fallback(owner.HostelBlock, c.HostelBlock)
	}
	return c
}

// prepareImport fills in what seed data may leave out: an id, timestamps and a status.
func prepareImport(c *models.Complaint, now time.Time) {
	if c.ID == "" {
		c.ID = newULID()
	}
	if c.Status == "" {
		c.Status = models.StatusSubmitted
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
