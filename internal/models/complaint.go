package models

import (
	"fmt"
	"time"
)

// ComplaintStatus represents where a complaint is in its lifecycle.
type ComplaintStatus string

const (
	StatusSubmitted  ComplaintStatus = "submitted"
	StatusAssigned   ComplaintStatus = "assigned"
	StatusInProgress ComplaintStatus = "in-progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusClosed     ComplaintStatus = "closed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ComplaintStatus{
	StatusSubmitted,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
}

// Label returns the human readable status name.
func (s ComplaintStatus) Label() string {
	switch s {
	case StatusSubmitted:
		return "Submitted"
	case StatusAssigned:
		return "Assigned"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsFinished reports whether the complaint has been dealt with (resolved or closed).
func (s ComplaintStatus) IsFinished() bool {
	return s == StatusResolved || s == StatusClosed
}

// ParseStatus converts a string into a ComplaintStatus.
// "in_progress" is accepted as an alias for "in-progress".
func ParseStatus(v string) (ComplaintStatus, error) {
	if v == "in_progress" {
		v = string(StatusInProgress)
	}
	s := ComplaintStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q (use: submitted, assigned, in-progress, resolved, closed)", v)
	}
	return s, nil
}

// ComplaintPriority represents the urgency of a complaint.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
)

// AllPriorities lists every priority from lowest to highest.
var AllPriorities = []ComplaintPriority{PriorityLow, PriorityMedium, PriorityHigh}

// Label returns the human readable priority name.
func (p ComplaintPriority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return string(p)
}

// Valid reports whether p is one of the known priorities.
func (p ComplaintPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts a string into a ComplaintPriority.
func ParsePriority(v string) (ComplaintPriority, error) {
	p := ComplaintPriority(v)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (use: low, medium, high)", v)
	}
	return p, nil
}

// ComplaintCategory is the kind of maintenance issue being reported.
type ComplaintCategory string

const (
	CategoryPlumbing    ComplaintCategory = "plumbing"
	CategoryElectricity ComplaintCategory = "electricity"
	CategoryCleanliness ComplaintCategory = "cleanliness"
	CategoryInternet    ComplaintCategory = "internet"
	CategoryRoom        ComplaintCategory = "room"
	CategoryOther       ComplaintCategory = "other"
)

// AllCategories lists every category in display order.
var AllCategories = []ComplaintCategory{
	CategoryPlumbing,
	CategoryElectricity,
	CategoryCleanliness,
	CategoryInternet,
	CategoryRoom,
	CategoryOther,
}

// Label returns the human readable category name.
func (c ComplaintCategory) Label() string {
	switch c {
	case CategoryPlumbing:
		return "Plumbing"
	case CategoryElectricity:
		return "Electricity"
	case CategoryCleanliness:
		return "Cleanliness"
	case CategoryInternet:
		return "Internet"
	case CategoryRoom:
		return "Room"
	case CategoryOther:
		return "Other"
	}
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c ComplaintCategory) Valid() bool {
	switch c {
	case CategoryPlumbing, CategoryElectricity, CategoryCleanliness, CategoryInternet, CategoryRoom, CategoryOther:
		return true
	}
	return false
}

// ParseCategory converts a string into a ComplaintCategory.
func ParseCategory(v string) (ComplaintCategory, error) {
	c := ComplaintCategory(v)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q (use: plumbing, electricity, cleanliness, internet, room, other)", v)
	}
	return c, nil
}

// Complaint is a maintenance issue reported by a student.
type Complaint struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Category    ComplaintCategory `json:"category" yaml:"category"`
	Priority    ComplaintPriority `json:"priority" yaml:"priority"`
	Status      ComplaintStatus   `json:"status" yaml:"status"`
	StudentID   string            `json:"student_id" yaml:"student_id"`
	StudentName string            `json:"student_name" yaml:"student_name"`
	RoomNumber  string            `json:"room_number" yaml:"room_number"`
	HostelBlock string            `json:"hostel_block" yaml:"hostel_block"`
	AssignedTo  string            `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	Feedback    string            `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Rating      int               `json:"rating,omitempty" yaml:"rating,omitempty"` // 0 = not rated
}

// Clone returns a deep copy so callers never share ResolvedAt with the store.
func (c *Complaint) Clone() *Complaint {
	cp := *c
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

// WithDefaults returns a copy with an empty category or priority filled in.
func (c Complaint) WithDefaults() Complaint {
	if c.Category == "" {
		c.Category = CategoryOther
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	return c
}

// ComplaintDraft is the payload a student fills in when submitting a complaint.
type ComplaintDraft struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"required,max=4000"`
	Category    ComplaintCategory `json:"category" validate:"omitempty,oneof=plumbing electricity cleanliness internet room other"`
	Priority    ComplaintPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// WithDefaults fills in the form defaults for category and priority.
func (d ComplaintDraft) WithDefaults() ComplaintDraft {
	if d.Category == "" {
		d.Category = CategoryOther
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	return d
}
