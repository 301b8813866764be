// Package identity is a mock login: any non-empty credentials are accepted
// and mapped to a roster user for the requested role.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/joescharf/hostel/internal/models"
)

var (
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrSessionNotFound is returned for an unknown or logged out session.
	ErrSessionNotFound = errors.New("session not found")
)

// Session ties a logged in user to an id. Pass it to every action that
// depends on who is asking.
type Session struct {
	ID        string      `json:"id"`
	User      models.User `json:"user"`
	StartedAt time.Time   `json:"started_at"`
}

// Provider hands out sessions. It is safe for concurrent use.
type Provider struct {
	roster  []models.User
	latency time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Provider.
type Option func(*Provider)

// WithLatency delays every login by d to mimic a remote call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a provider over a roster of known users.
func NewProvider(roster []models.User, opts ...Option) *Provider {
	p := &Provider{
		roster:   append([]models.User(nil), roster...),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Login starts a session for role. The user is the roster entry with the same
// email and role, else the first roster entry with the role, else a
// synthesized user.
func (p *Provider) Login(ctx context.Context, email, password string, role models.UserRole) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q (use: student, warden)", role)
	}

	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		User:      p.resolve(email, role),
		StartedAt: p.now(),
	}

	p.mu.Lock()
	p.sessions[sess.ID] = sess
	p.mu.Unlock()

	cp := *sess
	return &cp, nil
}

// Lookup returns the live session with id.
func (p *Provider) Lookup(id string) (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sess, ok := p.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

// Logout ends a session. Logging out twice returns ErrSessionNotFound.
func (p *Provider) Logout(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(p.sessions, id)
	return nil
}

// Active returns the number of live sessions.
func (p *Provider) Active() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// Roster returns a copy of the known users.
func (p *Provider) Roster() []models.User {
	return append([]models.User(nil), p.roster...)
}

func (p *Provider) resolve(email string, role models.UserRole) models.User {
	for _, u := range p.roster {
		if u.Role == role && strings.EqualFold(u.Email, email) {
			return u
		}
	}
	for _, u := range p.roster {
		if u.Role == role {
			return u
		}
	}
	return synthesize(email, role)
}

func synthesize(email string, role models.UserRole) models.User {
	u := models.User{
		ID:    ulid.Make().String(),
		Email: email,
		Role:  role,
		Name:  "Warden User",
	}
	if role == models.RoleStudent {
		u.Name = "Student User"
		u.RoomNumber = "101"
		u.HostelBlock = "Block A"
	}
	return u
}
