package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hostel/internal/models"
)

var roster = []models.User{
	{ID: "1", Name: "Rahul Sharma", Email: "rahul@hostel.edu", Role: models.RoleStudent, RoomNumber: "204", HostelBlock: "Block A"},
	{ID: "2", Name: "Priya Patel", Email: "priya@hostel.edu", Role: models.RoleStudent, RoomNumber: "115", HostelBlock: "Block B"},
	{ID: "w1", Name: "Mr. Verma", Email: "warden@hostel.edu", Role: models.RoleWarden},
}

func TestLogin_MissingCredentials(t *testing.T) {
	p := NewProvider(roster)
	ctx := context.Background()

	tests := []struct{ email, password string }{
		{"", "secret"},
		{"  ", "secret"},
		{"a@b.c", ""},
		{"", ""},
	}
	for _, tt := range tests {
		_, err := p.Login(ctx, tt.email, tt.password, models.RoleStudent)
		assert.True(t, errors.Is(err, ErrMissingCredentials), "email=%q password=%q", tt.email, tt.password)
	}
	assert.Equal(t, 0, p.Active())
}

func TestLogin_InvalidRole(t *testing.T) {
	p := NewProvider(roster)
	_, err := p.Login(context.Background(), "a@b.c", "x", models.UserRole("admin"))
	assert.Error(t, err)
}

func TestLogin_MatchesEmailThenRole(t *testing.T) {
	p := NewProvider(roster)
	ctx := context.Background()

	sess, err := p.Login(ctx, "PRIYA@hostel.edu", "anything", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "2", sess.User.ID)

	sess, err = p.Login(ctx, "someone@else.edu", "anything", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "1", sess.User.ID, "falls back to the first student")

	// Email belongs to a student but the warden role was requested.
	sess, err = p.Login(ctx, "rahul@hostel.edu", "anything", models.RoleWarden)
	require.NoError(t, err)
	assert.Equal(t, "w1", sess.User.ID)
	assert.Equal(t, models.RoleWarden, sess.User.Role)
}

func TestLogin_SynthesizesUser(t *testing.T) {
	p := NewProvider(nil)
	ctx := context.Background()

	sess, err := p.Login(ctx, "new@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Student User", sess.User.Name)
	assert.Equal(t, "new@hostel.edu", sess.User.Email)
	assert.Equal(t, "101", sess.User.RoomNumber)
	assert.Equal(t, "Block A", sess.User.HostelBlock)
	assert.NotEmpty(t, sess.User.ID)

	sess, err = p.Login(ctx, "boss@hostel.edu", "pw", models.RoleWarden)
	require.NoError(t, err)
	assert.Equal(t, "Warden User", sess.User.Name)
	assert.Empty(t, sess.User.RoomNumber)
	assert.Empty(t, sess.User.HostelBlock)
}

func TestSessionLifecycle(t *testing.T) {
	started := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	p := NewProvider(roster, WithClock(func() time.Time { return started }))

	sess, err := p.Login(context.Background(), "rahul@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, started, sess.StartedAt)
	assert.Equal(t, 1, p.Active())

	got, err := p.Lookup(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.User, got.User)

	require.NoError(t, p.Logout(sess.ID))
	assert.Equal(t, 0, p.Active())

	_, err = p.Lookup(sess.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(p.Logout(sess.ID), ErrSessionNotFound))
}

func TestSessionsAreIndependent(t *testing.T) {
	p := NewProvider(roster)
	ctx := context.Background()

	a, err := p.Login(ctx, "rahul@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	b, err := p.Login(ctx, "warden@hostel.edu", "pw", models.RoleWarden)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, p.Logout(a.ID))
	_, err = p.Lookup(b.ID)
	assert.NoError(t, err)
}

func TestLogin_Latency(t *testing.T) {
	p := NewProvider(roster, WithLatency(20*time.Millisecond))

	start := time.Now()
	_, err := p.Login(context.Background(), "rahul@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestLogin_LatencyCancelled(t *testing.T) {
	p := NewProvider(roster, WithLatency(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Login(ctx, "rahul@hostel.edu", "pw", models.RoleStudent)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, p.Active())
}

func TestRosterIsCopy(t *testing.T) {
	p := NewProvider(roster)
	r := p.Roster()
	r[0].Name = "changed"
	assert.Equal(t, "Rahul Sharma", p.Roster()[0].Name)
}
