package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hostel/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestSQLiteStore(t))
	})
	t.Run("sqlite-memory", func(t *testing.T) {
		s, err := NewSQLiteStore(MemoryDSN)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(context.Background()))
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

var alice = &models.User{
	ID:          "s-1",
	Name:        "Alice",
	Email:       "alice@hostel.edu",
	Role:        models.RoleStudent,
	RoomNumber:  "204",
	HostelBlock: "Block B",
}

var bob = &models.User{
	ID:          "s-2",
	Name:        "Bob",
	Email:       "bob@hostel.edu",
	Role:        models.RoleStudent,
	RoomNumber:  "310",
	HostelBlock: "Block C",
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestCreate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		c, err := s.Create(ctx, models.ComplaintDraft{
			Title:       "Leaking faucet",
			Description: "Bathroom tap drips all night",
			Category:    models.CategoryPlumbing,
			Priority:    models.PriorityHigh,
		}, alice)
		require.NoError(t, err)

		assert.NotEmpty(t, c.ID)
		assert.Equal(t, models.StatusSubmitted, c.Status)
		assert.Equal(t, c.CreatedAt, c.UpdatedAt)
		assert.Equal(t, "s-1", c.StudentID)
		assert.Equal(t, "Alice", c.StudentName)
		assert.Equal(t, "204", c.RoomNumber)
		assert.Equal(t, "Block B", c.HostelBlock)
		assert.Empty(t, c.AssignedTo)
		assert.Nil(t, c.ResolvedAt)

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Title, got.Title)
		assert.Equal(t, models.CategoryPlumbing, got.Category)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	})
}

func TestCreate_DefaultsAndFallbacks(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		c, err := s.Create(context.Background(), models.ComplaintDraft{
			Title:       "Noise",
			Description: "Loud music",
		}, &models.User{Role: models.RoleStudent})
		require.NoError(t, err)

		assert.Equal(t, models.CategoryOther, c.Category)
		assert.Equal(t, models.PriorityMedium, c.Priority)
		assert.Equal(t, DefaultStudentID, c.StudentID)
		assert.Equal(t, DefaultStudentName, c.StudentName)
		assert.Equal(t, DefaultRoomNumber, c.RoomNumber)
		assert.Equal(t, DefaultHostelBlock, c.HostelBlock)
	})
}

func TestCreate_UniqueIDsNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seen := map[string]bool{}
		var ids []string
		for i := 0; i < 5; i++ {
			c, err := s.Create(ctx, models.ComplaintDraft{Title: "t", Description: "d"}, alice)
			require.NoError(t, err)
			assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
			ids = append(ids, c.ID)
		}

		list, err := s.List(ctx, Scope{})
		require.NoError(t, err)
		require.Len(t, list, 5)
		for i, c := range list {
			assert.Equal(t, ids[len(ids)-1-i], c.ID, "newest complaint should come first")
		}
	})
}

func TestImport_KeepsOrderAfterCreated(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

		require.NoError(t, s.Import(ctx, &models.Complaint{ID: "seed-1", Title: "A", StudentID: "s-1", CreatedAt: base}))
		require.NoError(t, s.Import(ctx, &models.Complaint{ID: "seed-2", Title: "B", StudentID: "s-2", CreatedAt: base}))

		created, err := s.Create(ctx, models.ComplaintDraft{Title: "C", Description: "d"}, alice)
		require.NoError(t, err)

		list, err := s.List(ctx, Scope{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, created.ID, list[0].ID)
		assert.Equal(t, "seed-1", list[1].ID)
		assert.Equal(t, "seed-2", list[2].ID)

		assert.Equal(t, models.StatusSubmitted, list[1].Status, "import fills a missing status")
		assert.False(t, list[1].UpdatedAt.Before(list[1].CreatedAt))
	})
}

func TestImport_DuplicateID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Import(ctx, &models.Complaint{ID: "dup", Title: "A", StudentID: "s-1"}))
		err := s.Import(ctx, &models.Complaint{ID: "dup", Title: "B", StudentID: "s-1"})
		assert.Error(t, err)

		list, err := s.List(ctx, Scope{})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestList_StudentScope(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Create(ctx, models.ComplaintDraft{Title: "mine", Description: "d"}, alice)
		require.NoError(t, err)
		_, err = s.Create(ctx, models.ComplaintDraft{Title: "theirs", Description: "d"}, bob)
		require.NoError(t, err)

		mine, err := s.List(ctx, ScopeFor(alice))
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "mine", mine[0].Title)

		warden := &models.User{ID: "w-1", Role: models.RoleWarden}
		all, err := s.List(ctx, ScopeFor(warden))
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestList_Empty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		list, err := s.List(context.Background(), Scope{})
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestReplace(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first, err := s.Create(ctx, models.ComplaintDraft{Title: "one", Description: "d"}, alice)
		require.NoError(t, err)
		second, err := s.Create(ctx, models.ComplaintDraft{Title: "two", Description: "d"}, alice)
		require.NoError(t, err)

		resolved := first.UpdatedAt.Add(time.Hour)
		first.Status = models.StatusResolved
		first.AssignedTo = "Plumbing Team"
		first.UpdatedAt = resolved
		first.ResolvedAt = &resolved
		first.Rating = 4
		first.Feedback = "quick fix"
		require.NoError(t, s.Replace(ctx, first))

		got, err := s.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, got.Status)
		assert.Equal(t, "Plumbing Team", got.AssignedTo)
		require.NotNil(t, got.ResolvedAt)
		assert.True(t, resolved.Equal(*got.ResolvedAt))
		assert.Equal(t, 4, got.Rating)
		assert.Equal(t, "quick fix", got.Feedback)

		// Order is preserved by Replace.
		list, err := s.List(ctx, Scope{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		// Clearing resolvedAt round-trips as nil.
		got.ResolvedAt = nil
		got.Status = models.StatusInProgress
		require.NoError(t, s.Replace(ctx, got))
		again, err := s.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Nil(t, again.ResolvedAt)
	})
}

func TestNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Get(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))

		err = s.Replace(ctx, &models.Complaint{ID: "missing"})
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestRevision(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.Equal(t, uint64(0), s.Revision())

		c, err := s.Create(ctx, models.ComplaintDraft{Title: "t", Description: "d"}, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), s.Revision())

		require.NoError(t, s.Replace(ctx, c))
		assert.Equal(t, uint64(2), s.Revision())

		// Failed mutations leave the revision alone.
		_ = s.Replace(ctx, &models.Complaint{ID: "missing"})
		assert.Equal(t, uint64(2), s.Revision())
	})
}

func TestReturnedComplaintsAreCopies(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, err := s.Create(ctx, models.ComplaintDraft{Title: "original", Description: "d"}, alice)
		require.NoError(t, err)

		c.Title = "changed"
		list, err := s.List(ctx, Scope{})
		require.NoError(t, err)
		list[0].Status = models.StatusClosed

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", got.Title)
		assert.Equal(t, models.StatusSubmitted, got.Status)
	})
}

func TestMemoryStore_SnapshotUnaffectedByReplace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c, err := s.Create(ctx, models.ComplaintDraft{Title: "t", Description: "d"}, alice)
	require.NoError(t, err)

	s.mu.RLock()
	before := s.complaints
	s.mu.RUnlock()

	c.Status = models.StatusResolved
	require.NoError(t, s.Replace(ctx, c))

	assert.Equal(t, models.StatusSubmitted, before[0].Status, "earlier slice must not be edited in place")
}
