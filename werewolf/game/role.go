package game

// Team represents the alignment of a role.
type Team string

const (
	TeamNone    Team = ""
	TeamWolf    Team = "wolf"
	TeamVillage Team = "village"
)

// Capability is the single active ability a role carries.
type Capability int

const (
	CapNone Capability = iota
	CapKill
	CapInspect
	CapCurePoison
	CapRetaliate
)

func (c Capability) String() string {
	switch c {
	case CapKill:
		return "kill"
	case CapInspect:
		return "inspect"
	case CapCurePoison:
		return "cure+poison"
	case CapRetaliate:
		return "retaliate"
	default:
		return "none"
	}
}

// Role is the hidden assignment a seat holds for the whole match.
type Role string

const (
	RoleWolf     Role = "wolf"
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleHunter   Role = "hunter"
	RoleVillager Role = "villager"
)

type roleTraits struct {
	team Team
	cap  Capability
}

var roleTable = map[Role]roleTraits{
	RoleWolf:     {team: TeamWolf, cap: CapKill},
	RoleSeer:     {team: TeamVillage, cap: CapInspect},
	RoleWitch:    {team: TeamVillage, cap: CapCurePoison},
	RoleHunter:   {team: TeamVillage, cap: CapRetaliate},
	RoleVillager: {team: TeamVillage, cap: CapNone},
}

// Team returns the team the role plays for.
func (r Role) Team() Team { return roleTable[r].team }

// Capability returns the role's ability.
func (r Role) Capability() Capability { return roleTable[r].cap }

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}
