package lifecycle

import "github.com/joescharf/hostel/internal/models"

// Policy decides which status changes are allowed.
type Policy interface {
	Name() string
	Allowed(from, to models.ComplaintStatus) bool
}

type permissive struct{}

// Permissive allows every status to move to every other status.
var Permissive Policy = permissive{}

func (permissive) Name() string { return "permissive" }

func (permissive) Allowed(_, to models.ComplaintStatus) bool { return to.Valid() }

type transitionTable map[models.ComplaintStatus]map[models.ComplaintStatus]struct{}

// Strict follows the usual flow forward and allows reopening a finished complaint.
var Strict Policy = transitionTable{
	models.StatusSubmitted: {
		models.StatusAssigned:   {},
		models.StatusInProgress: {},
		models.StatusClosed:     {},
	},
	models.StatusAssigned: {
		models.StatusSubmitted:  {},
		models.StatusInProgress: {},
		models.StatusResolved:   {},
		models.StatusClosed:     {},
	},
	models.StatusInProgress: {
		models.StatusAssigned: {},
		models.StatusResolved: {},
		models.StatusClosed:   {},
	},
	models.StatusResolved: {
		models.StatusInProgress: {},
		models.StatusClosed:     {},
	},
	models.StatusClosed: {
		models.StatusInProgress: {},
	},
}

func (transitionTable) Name() string { return "strict" }

// Allowed reports whether from → to is in the table. Staying in the same
// status is always allowed.
func (t transitionTable) Allowed(from, to models.ComplaintStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	next, ok := t[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// PolicyFor returns Strict when strict is set, Permissive otherwise.
func PolicyFor(strict bool) Policy {
	if strict {
		return Strict
	}
	return Permissive
}
