// Package authz decides which role may perform which dashboard action.
package authz

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/joescharf/hostel/internal/models"
)

//go:embed model.conf
var modelText string

//go:embed policy.csv
var policyText string

// Resources.
const (
	ResourceComplaint = "complaint"
	ResourceStats     = "stats"
	ResourceStaff     = "staff"
	ResourceReport    = "report"
)

// Actions.
const (
	ActionSubmit       = "submit"
	ActionListOwn      = "list_own"
	ActionListAll      = "list_all"
	ActionView         = "view"
	ActionFeedback     = "feedback"
	ActionUpdateStatus = "update_status"
	ActionAssign       = "assign"
	ActionRead         = "read"
)

// Enforcer checks role permissions against the built-in policy.
type Enforcer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// NewEnforcer loads the built-in model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(policyText))
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	return &Enforcer{enforcer: e}, nil
}

// Allowed reports whether role may perform action on resource.
func (e *Enforcer) Allowed(role models.UserRole, resource, action string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ok, err := e.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return ok, nil
}

// Permissions lists the (resource, action) pairs granted to role.
func (e *Enforcer) Permissions(role models.UserRole) ([][]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules, err := e.enforcer.GetFilteredPolicy(0, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	out := make([][]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r[1:])
	}
	return out, nil
}
