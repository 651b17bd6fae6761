package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Role is the hidden allegiance dealt to a seat.
type Role string

const (
	RoleLord     Role = "lord"
	RoleLoyalist Role = "loyalist"
	RoleTraitor  Role = "traitor"
	RoleRebel    Role = "rebel"
)

// Seat count bounds accepted by ValidateComposition.
const (
	MinSeats = 2
	MaxSeats = 10
)

var (
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidSeatCount    = errors.New("invalid seat count")
	ErrInvalidTraitorCount = errors.New("invalid traitor count")
)

// ParseRole converts a stored role value back into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLord, RoleLoyalist, RoleTraitor, RoleRebel:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// GenerateRoles returns the role multiset for n seats in a fixed order:
// one lord, n/2 rebels, traitors, then (n-1)/2-traitors loyalists.
// Loyalists are never padded, so the result is only n long when
// ValidateComposition(n, traitors) succeeds. Callers shuffle separately.
func GenerateRoles(n, traitors int) []Role {
	roles := make([]Role, 0, max(n, 1))
	roles = append(roles, RoleLord)
	for i := 0; i < n/2; i++ {
		roles = append(roles, RoleRebel)
	}
	for i := 0; i < traitors; i++ {
		roles = append(roles, RoleTraitor)
	}
	for i := 0; i < (n-1)/2-traitors; i++ {
		roles = append(roles, RoleLoyalist)
	}
	return roles
}

// ValidateComposition rejects seat and traitor counts for which
// GenerateRoles would not produce exactly n roles.
func ValidateComposition(n, traitors int) error {
	if n < MinSeats || n > MaxSeats {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidSeatCount, n, MinSeats, MaxSeats)
	}
	if traitors < 0 || traitors > (n-1)/2 {
		return fmt.Errorf("%w: %d traitors for %d seats", ErrInvalidTraitorCount, traitors, n)
	}
	return nil
}

// ShuffleRoles shuffles roles in place.
func ShuffleRoles(roles []Role) {
	rand.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
}
