package models

import "fmt"

// UserRole determines what a user can see and do.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleWarden  UserRole = "warden"
)

// Valid reports whether r is student or warden.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleWarden
}

// ParseRole converts a string into a UserRole.
func ParseRole(v string) (UserRole, error) {
	r := UserRole(v)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q (use: student, warden)", v)
	}
	return r, nil
}

// User is the identity attached to a session.
// RoomNumber and HostelBlock are only set for students.
type User struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Email       string   `json:"email" yaml:"email"`
	Role        UserRole `json:"role" yaml:"role"`
	RoomNumber  string   `json:"room_number,omitempty" yaml:"room_number,omitempty"`
	HostelBlock string   `json:"hostel_block,omitempty" yaml:"hostel_block,omitempty"`
}
