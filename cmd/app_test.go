package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hostel/internal/dashboard"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/store"
)

func TestNewApp_SeedsMemoryStore(t *testing.T) {
	testEnv(t)
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	all, err := a.store.List(ctx, store.Scope{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Nil(t, a.hub)
	assert.Nil(t, a.redis)
	assert.Equal(t, "permissive", a.lifecycle.Policy().Name())
}

func TestNewApp_StrictPolicyAndHub(t *testing.T) {
	testEnv(t)
	viper.Set("lifecycle.strict", true)

	a, err := newApp(context.Background(), appOptions{hub: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.hub)
	assert.Equal(t, "strict", a.lifecycle.Policy().Name())
}

func TestNewApp_SQLitePersists(t *testing.T) {
	dir := testEnv(t)
	viper.Set("store.backend", "sqlite")
	viper.Set("store.dsn", filepath.Join(dir, "hostel.db"))
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	require.NoError(t, err)
	sess, err := a.login(ctx, models.RoleStudent, "")
	require.NoError(t, err)
	_, err = a.dash.Submit(ctx, sess, models.ComplaintDraft{Title: "Door hinge", Description: "Squeaks"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// A second run sees the new complaint and is not seeded again.
	b, err := newApp(ctx, appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	all, err := b.store.List(ctx, store.Scope{})
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	testEnv(t)
	viper.Set("store.backend", "postgres")

	_, err := newApp(context.Background(), appOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestApp_LoginPicksRosterUser(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	sess, err := a.login(ctx, models.RoleWarden, "")
	require.NoError(t, err)
	assert.Equal(t, "warden@hostel.edu", sess.User.Email)

	sess, err = a.login(ctx, models.RoleStudent, "priya.patel@hostel.edu")
	require.NoError(t, err)
	assert.Equal(t, "115", sess.User.RoomNumber)
}

func TestComplaintCommands(t *testing.T) {
	testEnv(t)
	var out, errOut bytes.Buffer
	ui.Out = &out
	ui.ErrOut = &errOut

	complaintAs, complaintEmail = "", ""
	complaintSearch, complaintStatus, complaintPriority, complaintTab = "", "all", "all", "all"
	t.Cleanup(func() { complaintAs, complaintEmail = "", "" })

	require.NoError(t, complaintListRun())
	assert.Contains(t, out.String(), "Leaking tap in bathroom")
	assert.Contains(t, out.String(), "Priya Patel")

	require.NoError(t, complaintStatusRun("5", "in_progress"))
	require.NoError(t, complaintAssignRun("5", "Nobody"))
	assert.Contains(t, errOut.String(), "not on the staff roster")

	out.Reset()
	require.NoError(t, complaintShowRun("5"))
	assert.Contains(t, out.String(), "Assigned:   Nobody")

	err := complaintStatusRun("5", "archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	complaintAs = "student"
	err = complaintStatusRun("1", "resolved")
	assert.ErrorIs(t, err, dashboard.ErrForbidden)

	complaintTitle, complaintDesc = "", "no title"
	err = complaintSubmitRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestNewApp_UnreachableRedisStaysLocal(t *testing.T) {
	testEnv(t)
	viper.Set("notify.redis_addr", "127.0.0.1:1")
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.redis, "a publisher that failed its ping is not wired")

	sess, err := a.login(ctx, models.RoleWarden, "")
	require.NoError(t, err)

	start := time.Now()
	_, err = a.dash.UpdateStatus(ctx, sess, "5", models.StatusInProgress)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
