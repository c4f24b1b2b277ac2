package member

import (
	"encoding/json"
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrNotFound = errors.New("member not found or inactive")
)

// Member is one person on the club roster.
type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Email  string `json:"email,omitempty"`
}

// UnmarshalJSON treats a missing "active" field as active.
func (m *Member) UnmarshalJSON(data []byte) error {
	type plain Member
	aux := struct {
		*plain
		Active *bool `json:"active"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Active = aux.Active == nil || *aux.Active
	return nil
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: ID must not be empty; Email, when set, must contain '@'
func (m *Member) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("member id cannot be empty")
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	return nil
}

// DisplayName returns Name, or the id when no name is set.
func (m *Member) DisplayName() string {
	if strings.TrimSpace(m.Name) == "" {
		return m.ID
	}
	return m.Name
}

// Roster is the stored member list.
type Roster struct {
	Members []Member `json:"members"`
}

// Active returns the active members in roster order.
// INVARIANT: Roster is not mutated
func (r Roster) Active() []Member {
	out := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

// FindActive looks up an active member by id.
// POST: Returns ErrNotFound if the id is unknown or inactive
func (r Roster) FindActive(id string) (Member, error) {
	for _, m := range r.Members {
		if m.ID == id {
			if !m.Active {
				return Member{}, ErrNotFound
			}
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}
