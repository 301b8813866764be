package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joescharf/hostel/internal/models"
)

// MemoryStore keeps complaints in process memory for the lifetime of the session.
//
// Mutations never edit the current slice: they build a new one and swap it in,
// so a slice obtained earlier stays a consistent snapshot.
type MemoryStore struct {
	mu         sync.RWMutex
	complaints []models.Complaint
	revision   uint64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Create(_ context.Context, draft models.ComplaintDraft, owner *models.User) (*models.Complaint, error) {
	c := newComplaint(draft, owner, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Complaint, 0, len(s.complaints)+1)
	next = append(next, *c)
	next = append(next, s.complaints...)
	s.complaints = next
	s.revision++

	return c.Clone(), nil
}

func (s *MemoryStore) Import(_ context.Context, c *models.Complaint) error {
	prepareImport(c, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.complaints {
		if s.complaints[i].ID == c.ID {
			return fmt.Errorf("import complaint: duplicate id %s", c.ID)
		}
	}

	next := make([]models.Complaint, 0, len(s.complaints)+1)
	next = append(next, s.complaints...)
	next = append(next, *c.Clone())
	s.complaints = next
	s.revision++
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.complaints {
		if s.complaints[i].ID == id {
			return s.complaints[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *MemoryStore) List(_ context.Context, scope Scope) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Complaint, 0, len(s.complaints))
	for i := range s.complaints {
		if scope.StudentID != "" && s.complaints[i].StudentID != scope.StudentID {
			continue
		}
		out = append(out, s.complaints[i].Clone())
	}
	return out, nil
}

func (s *MemoryStore) Replace(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.complaints {
		if s.complaints[i].ID == c.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, c.ID)
	}

	next := make([]models.Complaint, len(s.complaints))
	copy(next, s.complaints)
	next[idx] = *c.Clone()
	s.complaints = next
	s.revision++
	return nil
}

func (s *MemoryStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Close is a no-op; the complaints go away with the process.
func (s *MemoryStore) Close() error { return nil }
