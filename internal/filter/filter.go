// Package filter narrows a complaint list down to what a dashboard shows.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/joescharf/hostel/internal/models"
)

// View is the dashboard a list is shown in. Each view has its own tabs.
type View string

const (
	ViewStudent View = "student"
	ViewWarden  View = "warden"
)

// ViewFor returns the dashboard view for a role.
func ViewFor(role models.UserRole) View {
	if role == models.RoleWarden {
		return ViewWarden
	}
	return ViewStudent
}

// Tab is a named group of statuses.
type Tab string

const (
	TabAll      Tab = "all"
	TabPending  Tab = "pending"
	TabActive   Tab = "active"
	TabResolved Tab = "resolved"
)

// All is the wildcard for the status and priority filters.
const All = "all"

// ErrInvalidQuery is returned by Validate for unknown filter values.
var ErrInvalidQuery = errors.New("invalid filter")

var tabStatuses = map[View]map[Tab][]models.ComplaintStatus{
	ViewStudent: {
		TabActive:   {models.StatusSubmitted, models.StatusAssigned, models.StatusInProgress},
		TabResolved: {models.StatusResolved, models.StatusClosed},
	},
	ViewWarden: {
		TabPending:  {models.StatusSubmitted},
		TabActive:   {models.StatusAssigned, models.StatusInProgress},
		TabResolved: {models.StatusResolved, models.StatusClosed},
	},
}

// Tabs returns the tabs of a view in display order.
func Tabs(v View) []Tab {
	if v == ViewWarden {
		return []Tab{TabAll, TabPending, TabActive, TabResolved}
	}
	return []Tab{TabAll, TabActive, TabResolved}
}

// TabStatuses returns the statuses a tab covers in a view.
// TabAll returns every status. ok is false when the view has no such tab.
func TabStatuses(v View, t Tab) (statuses []models.ComplaintStatus, ok bool) {
	if t == TabAll || t == "" {
		return models.AllStatuses, true
	}
	tabs, ok := tabStatuses[v]
	if !ok {
		return nil, false
	}
	statuses, ok = tabs[t]
	return statuses, ok
}

// Query holds the dashboard filter inputs. Empty fields match everything.
type Query struct {
	Search   string `json:"q,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Tab      Tab    `json:"tab,omitempty"`
}

// Validate rejects statuses, priorities and tabs that do not exist for the view.
func (q Query) Validate(v View) error {
	if q.Status != "" && q.Status != All {
		if _, err := models.ParseStatus(q.Status); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}
	if q.Priority != "" && q.Priority != All {
		if _, err := models.ParsePriority(q.Priority); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}
	if _, ok := TabStatuses(v, q.Tab); !ok {
		names := make([]string, 0, 4)
		for _, t := range Tabs(v) {
			names = append(names, string(t))
		}
		return fmt.Errorf("%w: tab %q is not part of the %s view (use: %s)", ErrInvalidQuery, q.Tab, v, strings.Join(names, ", "))
	}
	return nil
}

// Apply returns the complaints matching every predicate of q, in input order.
// The input slice is not modified.
func Apply(complaints []*models.Complaint, q Query, v View) []*models.Complaint {
	// A Caser keeps state, so each call gets its own.
	folder := cases.Fold()
	needle := folder.String(q.Search)

	var status models.ComplaintStatus
	if q.Status != "" && q.Status != All {
		status, _ = models.ParseStatus(q.Status)
		if status == "" {
			status = models.ComplaintStatus(q.Status)
		}
	}

	var tab map[models.ComplaintStatus]bool
	if q.Tab != "" && q.Tab != TabAll {
		statuses, ok := TabStatuses(v, q.Tab)
		tab = make(map[models.ComplaintStatus]bool, len(statuses))
		if ok {
			for _, s := range statuses {
				tab[s] = true
			}
		}
	}

	out := make([]*models.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if needle != "" && !matchesSearch(folder, c, needle) {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		if q.Priority != "" && q.Priority != All && string(c.Priority) != q.Priority {
			continue
		}
		if tab != nil && !tab[c.Status] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesSearch(folder cases.Caser, c *models.Complaint, needle string) bool {
	for _, field := range []string{c.Title, c.StudentName, c.RoomNumber} {
		if strings.Contains(folder.String(field), needle) {
			return true
		}
	}
	return false
}
