package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hostel/internal/authz"
	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/lifecycle"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/store"
)

type harness struct {
	svc     *Service
	store   store.Store
	logs    *bytes.Buffer
	events  []notify.Event
	student *identity.Session
	other   *identity.Session
	warden  *identity.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{store: store.NewMemoryStore(), logs: &bytes.Buffer{}}

	seed := []*models.Complaint{
		{ID: "01AAA", Title: "Leaking faucet", Description: "d", Status: models.StatusSubmitted, Priority: models.PriorityHigh, Category: models.CategoryPlumbing, StudentID: "s-1", StudentName: "Alice", RoomNumber: "204"},
		{ID: "01AAB", Title: "WiFi down", Description: "d", Status: models.StatusInProgress, Priority: models.PriorityMedium, Category: models.CategoryInternet, StudentID: "s-2", StudentName: "Bob", RoomNumber: "310"},
		{ID: "01BBB", Title: "Broken chair", Description: "d", Status: models.StatusResolved, Priority: models.PriorityLow, Category: models.CategoryRoom, StudentID: "s-1", StudentName: "Alice", RoomNumber: "204"},
	}
	for _, c := range seed {
		require.NoError(t, h.store.Import(ctx, c))
	}

	enf, err := authz.NewEnforcer()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	rec := notify.Func(func(_ context.Context, e notify.Event) { h.events = append(h.events, e) })
	h.svc = New(Config{
		Store:     h.store,
		Lifecycle: lifecycle.New(h.store, lifecycle.WithNotifier(rec), lifecycle.WithLogger(logger)),
		Authz:     enf,
		Notifier:  rec,
		Staff:     []string{"Plumbing Team", "IT Support"},
		Logger:    logger,
	})

	ids := identity.NewProvider([]models.User{
		{ID: "s-1", Name: "Alice", Email: "alice@hostel.edu", Role: models.RoleStudent, RoomNumber: "204", HostelBlock: "Block B"},
		{ID: "s-2", Name: "Bob", Email: "bob@hostel.edu", Role: models.RoleStudent, RoomNumber: "310", HostelBlock: "Block C"},
		{ID: "w-1", Name: "Warden", Email: "warden@hostel.edu", Role: models.RoleWarden},
	})
	h.student, err = ids.Login(ctx, "alice@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	h.other, err = ids.Login(ctx, "bob@hostel.edu", "pw", models.RoleStudent)
	require.NoError(t, err)
	h.warden, err = ids.Login(ctx, "warden@hostel.edu", "pw", models.RoleWarden)
	require.NoError(t, err)
	return h
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	list, err := h.store.List(context.Background(), store.Scope{})
	require.NoError(t, err)
	return len(list)
}

func TestSubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.Submit(ctx, h.student, models.ComplaintDraft{
		Title:       "  Light flickering ",
		Description: "The tube light flickers & buzzes",
		Category:    models.CategoryElectricity,
	})
	require.NoError(t, err)
	assert.Equal(t, "Light flickering", c.Title)
	assert.Equal(t, "The tube light flickers & buzzes", c.Description)
	assert.Equal(t, models.StatusSubmitted, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	assert.Equal(t, "s-1", c.StudentID)
	assert.Equal(t, "Block B", c.HostelBlock)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	snap, err := h.svc.List(ctx, h.student, filter.Query{})
	require.NoError(t, err)
	assert.Equal(t, c.ID, snap.Complaints[0].ID, "new complaint is listed first")

	require.Len(t, h.events, 1)
	assert.Equal(t, notify.EventSubmitted, h.events[0].Type)
	assert.Equal(t, SubmittedMessage, h.events[0].Message)
}

func TestSubmit_ValidationLeavesStoreUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	before := h.count(t)
	rev := h.store.Revision()

	tests := []struct {
		name   string
		draft  models.ComplaintDraft
		fields []string
	}{
		{"empty title", models.ComplaintDraft{Description: "d"}, []string{"title"}},
		{"blank description", models.ComplaintDraft{Title: "t", Description: "   "}, []string{"description"}},
		{"both missing", models.ComplaintDraft{}, []string{"title", "description"}},
		{"bad category", models.ComplaintDraft{Title: "t", Description: "d", Category: "garden"}, []string{"category"}},
		{"bad priority", models.ComplaintDraft{Title: "t", Description: "d", Priority: "urgent"}, []string{"priority"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Submit(ctx, h.student, tt.draft)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	assert.Equal(t, before, h.count(t))
	assert.Equal(t, rev, h.store.Revision())
	assert.Empty(t, h.events)
}

func TestSubmit_KeepsAngleBracketText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		title       string
		description string
	}{
		{"Socket <room 204> sparks", "<stuck>"},
		{"Fan x<y and a>b", "Literal &amp; text"},
		{"<script>x</script>", "<b>bold</b> & plain"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			c, err := h.svc.Submit(ctx, h.student, models.ComplaintDraft{Title: tt.title, Description: tt.description})
			require.NoError(t, err)
			assert.Equal(t, tt.title, c.Title)
			assert.Equal(t, tt.description, c.Description)

			got, err := h.store.Get(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.description, got.Description)
		})
	}

	// The room number inside the brackets stays searchable.
	snap, err := h.svc.List(ctx, h.warden, filter.Query{Search: "<room 204>"})
	require.NoError(t, err)
	require.Len(t, snap.Complaints, 1)
	assert.Equal(t, "Socket <room 204> sparks", snap.Complaints[0].Title)
}

func TestAssign_KeepsAssigneeText(t *testing.T) {
	h := newHarness(t)
	c, err := h.svc.Assign(context.Background(), h.warden, "01AAA", "  R&D <night shift> ")
	require.NoError(t, err)
	assert.Equal(t, "R&D <night shift>", c.AssignedTo)
}

func TestSubmit_WardenForbidden(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Submit(context.Background(), h.warden, models.ComplaintDraft{Title: "t", Description: "d"})
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestSubmit_Latency(t *testing.T) {
	h := newHarness(t)
	h.svc.latency = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := h.count(t)
	_, err := h.svc.Submit(ctx, h.student, models.ComplaintDraft{Title: "t", Description: "d"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, before, h.count(t))
}

func TestUnauthenticated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.List(ctx, nil, filter.Query{})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	_, err = h.svc.Submit(ctx, nil, models.ComplaintDraft{Title: "t", Description: "d"})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	_, err = h.svc.Stats(ctx, nil)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestList_StudentScope(t *testing.T) {
	h := newHarness(t)

	snap, err := h.svc.List(context.Background(), h.student, filter.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, filter.ViewStudent, snap.View)
	for _, c := range snap.Complaints {
		assert.Equal(t, "s-1", c.StudentID)
	}
}

func TestList_WardenFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snap, err := h.svc.List(ctx, h.warden, filter.Query{Tab: filter.TabActive})
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Total)
	require.Len(t, snap.Complaints, 1)
	assert.Equal(t, "01AAB", snap.Complaints[0].ID)

	snap, err = h.svc.List(ctx, h.warden, filter.Query{Search: "alice"})
	require.NoError(t, err)
	assert.Len(t, snap.Complaints, 2)

	_, err = h.svc.List(ctx, h.student, filter.Query{Tab: filter.TabPending})
	assert.Error(t, err, "students have no pending tab")
}

func TestList_RevisionChangesOnMutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.List(ctx, h.warden, filter.Query{})
	require.NoError(t, err)
	_, err = h.svc.UpdateStatus(ctx, h.warden, "01AAA", models.StatusAssigned)
	require.NoError(t, err)
	b, err := h.svc.List(ctx, h.warden, filter.Query{})
	require.NoError(t, err)
	assert.Greater(t, b.Revision, a.Revision)
	assert.Equal(t, b.Revision, h.svc.Revision())
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.UpdateStatus(ctx, h.warden, "01AAA", models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	require.Len(t, h.events, 1)
	assert.Equal(t, "Warden", h.events[0].Actor)

	_, err = h.svc.UpdateStatus(ctx, h.student, "01AAA", models.StatusClosed)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = h.svc.UpdateStatus(ctx, h.warden, "missing", models.StatusClosed)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateStatus_RedisDownDoesNotStall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Redis went away after startup: publishes fail on the action path.
	pub := notify.NewRedisPublisher("10.255.255.1:6379", "", slog.New(slog.NewTextHandler(h.logs, nil)))
	t.Cleanup(func() { _ = pub.Close() })
	enf, err := authz.NewEnforcer()
	require.NoError(t, err)
	svc := New(Config{
		Store:     h.store,
		Lifecycle: lifecycle.New(h.store, lifecycle.WithNotifier(pub)),
		Authz:     enf,
		Notifier:  pub,
	})

	start := time.Now()
	c, err := svc.UpdateStatus(ctx, h.warden, "01AAA", models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Less(t, time.Since(start), 3*notify.PublishTimeout)
}

func TestAssign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.Assign(ctx, h.warden, "01AAA", "Plumbing Team")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, c.Status)
	assert.Equal(t, "Plumbing Team", c.AssignedTo)
	assert.NotContains(t, h.logs.String(), "not on the staff roster")

	c, err = h.svc.Assign(ctx, h.warden, "01AAB", "Random Contractor")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Equal(t, "Random Contractor", c.AssignedTo)
	assert.Contains(t, h.logs.String(), "not on the staff roster")

	_, err = h.svc.Assign(ctx, h.student, "01AAA", "Plumbing Team")
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.SubmitFeedback(ctx, h.student, "01BBB", 5, " fixed in <1 day> ")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Rating)
	assert.Equal(t, "fixed in <1 day>", c.Feedback)

	// Not resolved yet.
	_, err = h.svc.SubmitFeedback(ctx, h.student, "01AAA", 5, "")
	assert.True(t, errors.Is(err, lifecycle.ErrFeedbackNotAllowed))

	// Someone else's complaint looks missing.
	_, err = h.svc.SubmitFeedback(ctx, h.other, "01BBB", 1, "")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = h.svc.SubmitFeedback(ctx, h.warden, "01BBB", 3, "")
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.Get(ctx, h.student, "01AAA")
	require.NoError(t, err)
	assert.Equal(t, "Leaking faucet", c.Title)

	// Unique prefix, case-insensitive.
	c, err = h.svc.Get(ctx, h.warden, "01b")
	require.NoError(t, err)
	assert.Equal(t, "01BBB", c.ID)

	_, err = h.svc.Get(ctx, h.warden, "01AA")
	assert.True(t, errors.Is(err, ErrAmbiguousID))

	// Within Alice's scope the prefix is unique.
	c, err = h.svc.Get(ctx, h.student, "01AA")
	require.NoError(t, err)
	assert.Equal(t, "01AAA", c.ID)

	_, err = h.svc.Get(ctx, h.student, "01AAB")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = h.svc.Get(ctx, h.warden, "zzz")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = h.svc.Get(ctx, h.warden, " ")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	st, err := h.svc.Stats(ctx, h.student)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Resolved)

	st, err = h.svc.Stats(ctx, h.warden)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.UrgentOpen)
}

func TestStaffAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	staff, err := h.svc.Staff(h.warden)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plumbing Team", "IT Support"}, staff)

	_, err = h.svc.Staff(h.student)
	assert.True(t, errors.Is(err, ErrForbidden))

	all, st, err := h.svc.Export(ctx, h.warden)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, st.Total)

	_, _, err = h.svc.Export(ctx, h.student)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "title", Message: "title is required"},
		{Field: "description", Message: "description is required"},
	}}
	assert.Equal(t, "validation failed: title is required; description is required", err.Error())
}
