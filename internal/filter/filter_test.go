package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hostel/internal/models"
)

func sample() []*models.Complaint {
	return []*models.Complaint{
		{ID: "1", Title: "Leaking faucet", StudentName: "Alice", RoomNumber: "204", Status: models.StatusSubmitted, Priority: models.PriorityHigh},
		{ID: "2", Title: "WiFi down", StudentName: "Bob", RoomNumber: "310", Status: models.StatusAssigned, Priority: models.PriorityMedium},
		{ID: "3", Title: "Broken chair", StudentName: "Chandra", RoomNumber: "101", Status: models.StatusInProgress, Priority: models.PriorityLow},
		{ID: "4", Title: "Dirty corridor", StudentName: "Alice", RoomNumber: "204", Status: models.StatusResolved, Priority: models.PriorityMedium},
		{ID: "5", Title: "Fan noise", StudentName: "Dana", RoomNumber: "415", Status: models.StatusClosed, Priority: models.PriorityHigh},
	}
}

func ids(cs []*models.Complaint) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestApply_Search(t *testing.T) {
	in := []*models.Complaint{
		{ID: "a", Title: "Leaking faucet"},
		{ID: "b", Title: "WiFi down"},
	}
	got := Apply(in, Query{Search: "leak"}, ViewStudent)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestApply_SearchFields(t *testing.T) {
	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"title case-insensitive", "WIFI", []string{"2"}},
		{"student name", "alice", []string{"1", "4"}},
		{"room number", "31", []string{"2"}},
		{"spaces are literal", "broken chair", []string{"3"}},
		{"trailing space is not trimmed", "leak ", []string{}},
		{"padded needle misses", "  chair ", []string{}},
		{"no match", "elevator", []string{}},
		{"empty matches all", "", []string{"1", "2", "3", "4", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), Query{Search: tt.search}, ViewWarden)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_SearchDoesNotMatchDescription(t *testing.T) {
	in := []*models.Complaint{{ID: "a", Title: "Fan", Description: "makes a leak sound"}}
	assert.Empty(t, Apply(in, Query{Search: "leak"}, ViewStudent))
}

func TestApply_StatusAndPriority(t *testing.T) {
	got := Apply(sample(), Query{Status: "in_progress"}, ViewWarden)
	assert.Equal(t, []string{"3"}, ids(got))

	got = Apply(sample(), Query{Priority: "high"}, ViewWarden)
	assert.Equal(t, []string{"1", "5"}, ids(got))

	got = Apply(sample(), Query{Status: All, Priority: All}, ViewWarden)
	assert.Len(t, got, 5)

	got = Apply(sample(), Query{Search: "alice", Priority: "medium"}, ViewWarden)
	assert.Equal(t, []string{"4"}, ids(got))
}

func TestApply_Tabs(t *testing.T) {
	tests := []struct {
		view View
		tab  Tab
		want []string
	}{
		{ViewStudent, TabAll, []string{"1", "2", "3", "4", "5"}},
		{ViewStudent, TabActive, []string{"1", "2", "3"}},
		{ViewStudent, TabResolved, []string{"4", "5"}},
		{ViewWarden, TabPending, []string{"1"}},
		{ViewWarden, TabActive, []string{"2", "3"}},
		{ViewWarden, TabResolved, []string{"4", "5"}},
		// Student view has no pending tab: nothing matches.
		{ViewStudent, TabPending, []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.view)+"/"+string(tt.tab), func(t *testing.T) {
			got := Apply(sample(), Query{Tab: tt.tab}, tt.view)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_EveryResultSatisfiesAllPredicates(t *testing.T) {
	queries := []Query{
		{Search: "a", Tab: TabActive},
		{Search: "20", Status: "resolved"},
		{Priority: "high", Tab: TabResolved},
		{Search: "o", Priority: "medium", Tab: TabAll},
	}
	for _, view := range []View{ViewStudent, ViewWarden} {
		for _, q := range queries {
			got := Apply(sample(), q, view)
			tabSet, _ := TabStatuses(view, q.Tab)
			last := -1
			for _, c := range got {
				if q.Status != "" && q.Status != All {
					assert.Equal(t, q.Status, string(c.Status))
				}
				if q.Priority != "" && q.Priority != All {
					assert.Equal(t, q.Priority, string(c.Priority))
				}
				assert.Contains(t, tabSet, c.Status)

				// Order preserved relative to input.
				idx := -1
				for i, s := range sample() {
					if s.ID == c.ID {
						idx = i
					}
				}
				assert.Greater(t, idx, last)
				last = idx
			}
		}
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := sample()
	_ = Apply(in, Query{Tab: TabResolved}, ViewStudent)
	assert.Len(t, in, 5)
	assert.Equal(t, "1", in[0].ID)
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, Query{}.Validate(ViewStudent))
	assert.NoError(t, Query{Status: "all", Priority: "all", Tab: TabAll}.Validate(ViewWarden))
	assert.NoError(t, Query{Tab: TabPending}.Validate(ViewWarden))

	err := Query{Tab: TabPending}.Validate(ViewStudent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student view")
	assert.ErrorIs(t, err, ErrInvalidQuery)

	assert.ErrorIs(t, Query{Status: "done"}.Validate(ViewWarden), ErrInvalidQuery)
	assert.Error(t, Query{Priority: "urgent"}.Validate(ViewWarden))
	assert.Error(t, Query{Tab: "archived"}.Validate(ViewWarden))
}

func TestViewFor(t *testing.T) {
	assert.Equal(t, ViewWarden, ViewFor(models.RoleWarden))
	assert.Equal(t, ViewStudent, ViewFor(models.RoleStudent))
}

func TestTabs(t *testing.T) {
	assert.Equal(t, []Tab{TabAll, TabActive, TabResolved}, Tabs(ViewStudent))
	assert.Equal(t, []Tab{TabAll, TabPending, TabActive, TabResolved}, Tabs(ViewWarden))
}
