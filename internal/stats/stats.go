// Package stats derives dashboard counts from a complaint list.
package stats

import (
	"time"

	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/models"
)

// CategoryCount is one entry of the category distribution.
type CategoryCount struct {
	Category models.ComplaintCategory `json:"category"`
	Count    int                      `json:"count"`
}

// Resolution holds metrics computed from resolved complaints.
type Resolution struct {
	// Rate is Resolved / Total, 0 for an empty list.
	Rate float64 `json:"rate"`
	// Measured is how many complaints carried a ResolvedAt timestamp.
	Measured int           `json:"measured"`
	Average  time.Duration `json:"average_ns"`
	Fastest  time.Duration `json:"fastest_ns"`
	Slowest  time.Duration `json:"slowest_ns"`
}

// Stats is the aggregate view of a role-scoped, unfiltered complaint list.
type Stats struct {
	Total      int                              `json:"total"`
	ByStatus   map[models.ComplaintStatus]int   `json:"by_status"`
	ByPriority map[models.ComplaintPriority]int `json:"by_priority"`
	Active     int                              `json:"active"`
	Pending    int                              `json:"pending"`
	InProgress int                              `json:"in_progress"`
	Resolved   int                              `json:"resolved"`
	UrgentOpen int                              `json:"urgent_open"`
	Categories []CategoryCount                  `json:"categories"`
	Resolution Resolution                       `json:"resolution"`
}

// Compute aggregates complaints in a single pass.
func Compute(complaints []*models.Complaint) Stats {
	s := Stats{
		Total:      len(complaints),
		ByStatus:   make(map[models.ComplaintStatus]int, len(models.AllStatuses)),
		ByPriority: make(map[models.ComplaintPriority]int, len(models.AllPriorities)),
		Categories: []CategoryCount{},
	}
	for _, st := range models.AllStatuses {
		s.ByStatus[st] = 0
	}
	for _, p := range models.AllPriorities {
		s.ByPriority[p] = 0
	}

	categoryIdx := map[models.ComplaintCategory]int{}
	var total time.Duration
	for _, c := range complaints {
		s.ByStatus[c.Status]++
		s.ByPriority[c.Priority]++

		if c.Priority == models.PriorityHigh && !c.Status.IsFinished() {
			s.UrgentOpen++
		}

		if i, ok := categoryIdx[c.Category]; ok {
			s.Categories[i].Count++
		} else {
			categoryIdx[c.Category] = len(s.Categories)
			s.Categories = append(s.Categories, CategoryCount{Category: c.Category, Count: 1})
		}

		if c.ResolvedAt != nil {
			d := c.ResolvedAt.Sub(c.CreatedAt)
			if d < 0 {
				d = 0
			}
			if s.Resolution.Measured == 0 || d < s.Resolution.Fastest {
				s.Resolution.Fastest = d
			}
			if d > s.Resolution.Slowest {
				s.Resolution.Slowest = d
			}
			total += d
			s.Resolution.Measured++
		}
	}

	s.Active = s.bucket(filter.ViewStudent, filter.TabActive)
	s.Pending = s.bucket(filter.ViewWarden, filter.TabPending)
	s.InProgress = s.bucket(filter.ViewWarden, filter.TabActive)
	s.Resolved = s.bucket(filter.ViewWarden, filter.TabResolved)

	if s.Total > 0 {
		s.Resolution.Rate = float64(s.Resolved) / float64(s.Total)
	}
	if s.Resolution.Measured > 0 {
		s.Resolution.Average = total / time.Duration(s.Resolution.Measured)
	}
	return s
}

// bucket sums ByStatus over the statuses of a dashboard tab.
func (s Stats) bucket(v filter.View, t filter.Tab) int {
	statuses, _ := filter.TabStatuses(v, t)
	n := 0
	for _, st := range statuses {
		n += s.ByStatus[st]
	}
	return n
}

// Card is one headline number on a dashboard.
type Card struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Cards returns the headline numbers shown on a view's dashboard.
func (s Stats) Cards(v filter.View) []Card {
	if v == filter.ViewWarden {
		return []Card{
			{Label: "Total Complaints", Value: s.Total},
			{Label: "Pending Review", Value: s.Pending},
			{Label: "In Progress", Value: s.InProgress},
			{Label: "Resolved", Value: s.Resolved},
			{Label: "High Priority", Value: s.UrgentOpen},
		}
	}
	return []Card{
		{Label: "Total Complaints", Value: s.Total},
		{Label: "Active", Value: s.Active},
		{Label: "Resolved", Value: s.Resolved},
		{Label: "Pending Review", Value: s.Pending},
	}
}
