package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRoles(roles []Role) map[Role]int {
	counts := make(map[Role]int)
	for _, r := range roles {
		counts[r]++
	}
	return counts
}

func TestGenerateRoles_OneLord(t *testing.T) {
	for n := MinSeats; n <= MaxSeats; n++ {
		for traitors := 0; traitors <= 5; traitors++ {
			roles := GenerateRoles(n, traitors)
			assert.Equal(t, 1, countRoles(roles)[RoleLord], "n=%d traitors=%d", n, traitors)
			assert.Equal(t, n/2, countRoles(roles)[RoleRebel], "n=%d traitors=%d", n, traitors)
		}
	}
}

func TestGenerateRoles_ValidCompositionsFillEverySeat(t *testing.T) {
	for n := MinSeats; n <= MaxSeats; n++ {
		for traitors := 0; traitors <= (n-1)/2; traitors++ {
			require.NoError(t, ValidateComposition(n, traitors))
			roles := GenerateRoles(n, traitors)
			assert.Len(t, roles, n, "n=%d traitors=%d", n, traitors)
			assert.Equal(t, traitors, countRoles(roles)[RoleTraitor])
		}
	}
}

func TestGenerateRoles_NegativeSeatsDoNotPanic(t *testing.T) {
	var roles []Role
	assert.NotPanics(t, func() { roles = GenerateRoles(-3, 1) })
	assert.Error(t, ValidateComposition(-3, 1))
	assert.Equal(t, 1, countRoles(roles)[RoleLord])
}

func TestGenerateRoles_Composition(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		traitors int
		expected map[Role]int
	}{
		{
			name:     "five seats",
			n:        5,
			traitors: 1,
			expected: map[Role]int{RoleLord: 1, RoleRebel: 2, RoleTraitor: 1, RoleLoyalist: 1},
		},
		{
			name:     "eight seats two traitors",
			n:        8,
			traitors: 2,
			expected: map[Role]int{RoleLord: 1, RoleRebel: 4, RoleTraitor: 2, RoleLoyalist: 1},
		},
		{
			name:     "no traitors",
			n:        4,
			traitors: 0,
			expected: map[Role]int{RoleLord: 1, RoleRebel: 2, RoleLoyalist: 1},
		},
		{
			name:     "loyalists are not padded",
			n:        3,
			traitors: 1,
			expected: map[Role]int{RoleLord: 1, RoleRebel: 1, RoleTraitor: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, countRoles(GenerateRoles(tt.n, tt.traitors)))
		})
	}
}

func TestValidateComposition(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		traitors int
		wantErr  error
	}{
		{name: "too few seats", n: 1, traitors: 0, wantErr: ErrInvalidSeatCount},
		{name: "too many seats", n: 11, traitors: 1, wantErr: ErrInvalidSeatCount},
		{name: "negative traitors", n: 5, traitors: -1, wantErr: ErrInvalidTraitorCount},
		{name: "traitors crowd out seats", n: 5, traitors: 3, wantErr: ErrInvalidTraitorCount},
		{name: "two seats one traitor", n: 2, traitors: 1, wantErr: ErrInvalidTraitorCount},
		{name: "valid", n: 10, traitors: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComposition(tt.n, tt.traitors)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleLord, RoleLoyalist, RoleTraitor, RoleRebel} {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseRole("spy")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestShuffleRoles_KeepsMultiset(t *testing.T) {
	roles := GenerateRoles(9, 2)
	before := countRoles(roles)
	ShuffleRoles(roles)
	assert.Equal(t, before, countRoles(roles))
}
