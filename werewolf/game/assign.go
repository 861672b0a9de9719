package game

import (
	"fmt"
	"math/rand"
)

const (
	// MinSeats fits one wolf plus one of each special role.
	MinSeats       = 4
	MaxSeats       = 20
	CanonicalSeats = 10
)

var specialRoles = []Role{RoleSeer, RoleWitch, RoleHunter}

// RoleCounts returns the role table for n seats.
func RoleCounts(n int) (map[Role]int, error) {
	if n < MinSeats || n > MaxSeats {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidSeatCount, n, MinSeats, MaxSeats)
	}
	wolves := n / 4
	if n >= CanonicalSeats && wolves < 3 {
		wolves = 3
	}
	if wolves < 1 {
		wolves = 1
	}
	counts := map[Role]int{RoleWolf: wolves}
	for _, r := range specialRoles {
		counts[r] = 1
	}
	counts[RoleVillager] = n - wolves - len(specialRoles)
	return counts, nil
}

// AssignRoles builds the role list for n seats and shuffles it with rng.
// Index i of the result belongs to seat i+1.
func AssignRoles(n int, rng *rand.Rand) ([]Role, error) {
	counts, err := RoleCounts(n)
	if err != nil {
		return nil, err
	}
	roles := make([]Role, 0, n)
	for _, r := range []Role{RoleWolf, RoleSeer, RoleWitch, RoleHunter, RoleVillager} {
		for i := 0; i < counts[r]; i++ {
			roles = append(roles, r)
		}
	}
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	return roles, nil
}
