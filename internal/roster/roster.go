// Package roster loads the users, staff and starting complaints a session
// begins with.
package roster

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/store"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the content of a seed file.
type Seed struct {
	Users      []models.User      `yaml:"users"`
	Staff      []string           `yaml:"staff"`
	Complaints []models.Complaint `yaml:"complaints"`
}

// Default returns the built-in seed.
func Default() (*Seed, error) {
	return Parse(defaultSeed)
}

// Load reads a seed file. An empty path returns the built-in seed.
func Load(path string) (*Seed, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML.
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	for i, u := range s.Users {
		if u.ID == "" {
			return fmt.Errorf("seed user %d: missing id", i)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("seed user %s: invalid role %q", u.ID, u.Role)
		}
	}
	ids := make(map[string]bool, len(s.Complaints))
	for i, c := range s.Complaints {
		if c.Title == "" {
			return fmt.Errorf("seed complaint %d: missing title", i)
		}
		if c.ID != "" {
			if ids[c.ID] {
				return fmt.Errorf("seed complaint %s: duplicate id", c.ID)
			}
			ids[c.ID] = true
		}
		if c.Status != "" && !c.Status.Valid() {
			return fmt.Errorf("seed complaint %s: invalid status %q", c.ID, c.Status)
		}
		if c.Category != "" && !c.Category.Valid() {
			return fmt.Errorf("seed complaint %s: invalid category %q", c.ID, c.Category)
		}
		if c.Priority != "" && !c.Priority.Valid() {
			return fmt.Errorf("seed complaint %s: invalid priority %q", c.ID, c.Priority)
		}
	}
	return nil
}

// Populate imports the seed complaints into st, keeping their order.
func (s *Seed) Populate(ctx context.Context, st store.Store) error {
	for i := range s.Complaints {
		c := s.Complaints[i].WithDefaults()
		if err := st.Import(ctx, &c); err != nil {
			return fmt.Errorf("seed complaint %s: %w", c.ID, err)
		}
	}
	return nil
}

// IsStaff reports whether name is on the staff roster.
func (s *Seed) IsStaff(name string) bool {
	for _, n := range s.Staff {
		if n == name {
			return true
		}
	}
	return false
}
