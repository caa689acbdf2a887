package game

import "arena-survival/internal/game/mathx"

// PassiveKind identifies a player modifier.
type PassiveKind uint8

const (
	PassiveMight PassiveKind = iota
	PassiveHaste
	PassiveSwiftness
	PassiveMagnetism
	PassiveVitality
	PassiveRegeneration
	PassivePiercing
	PassiveRevival
	passiveCount
)

// MaxPassiveStacks caps stacked passives.
const MaxPassiveStacks = 5

var passiveNames = [passiveCount]string{
	PassiveMight:        "Might",
	PassiveHaste:        "Haste",
	PassiveSwiftness:    "Swiftness",
	PassiveMagnetism:    "Magnetism",
	PassiveVitality:     "Vitality",
	PassiveRegeneration: "Regeneration",
	PassivePiercing:     "Piercing",
	PassiveRevival:      "Revival",
}

// String returns the display name.
func (k PassiveKind) String() string {
	if k >= passiveCount {
		return "Unknown"
	}
	return passiveNames[k]
}

// Boolean reports whether the passive is on/off rather than stacked.
func (k PassiveKind) Boolean() bool {
	switch k {
	case PassiveRegeneration, PassivePiercing, PassiveRevival:
		return true
	default:
		return false
	}
}

func (k PassiveKind) maxStacks() int {
	if k.Boolean() {
		return 1
	}
	return MaxPassiveStacks
}

// PassiveSet is the player's modifier set; a fixed array so copying it into a
// snapshot never allocates.
type PassiveSet struct {
	stacks [passiveCount]uint8
}

// Add grants one stack. It reports false when the passive is already maxed.
func (s *PassiveSet) Add(k PassiveKind) bool {
	if k >= passiveCount || int(s.stacks[k]) >= k.maxStacks() {
		return false
	}
	s.stacks[k]++
	return true
}

// Stacks returns the stack count (0 or 1 for boolean passives).
func (s *PassiveSet) Stacks(k PassiveKind) int {
	if k >= passiveCount {
		return 0
	}
	return int(s.stacks[k])
}

// Has reports whether the passive is owned at all.
func (s *PassiveSet) Has(k PassiveKind) bool { return s.Stacks(k) > 0 }

// Maxed reports whether another stack can be offered.
func (s *PassiveSet) Maxed(k PassiveKind) bool { return s.Stacks(k) >= k.maxStacks() }

// Clear drops every passive.
func (s *PassiveSet) Clear() { s.stacks = [passiveCount]uint8{} }

// DamageMult scales outgoing damage (+10% per Might stack).
func (s *PassiveSet) DamageMult() float64 {
	return 1 + 0.1*float64(s.Stacks(PassiveMight))
}

// FireRateMult shrinks weapon fire intervals (8% per Haste stack, compounding).
func (s *PassiveSet) FireRateMult() float64 {
	return mathx.IPow(0.92, s.Stacks(PassiveHaste))
}

// SpeedMult scales movement (+8% per Swiftness stack).
func (s *PassiveSet) SpeedMult() float64 {
	return 1 + 0.08*float64(s.Stacks(PassiveSwiftness))
}

// AttractMult scales pickup attraction range (+25% per Magnetism stack).
func (s *PassiveSet) AttractMult() float64 {
	return 1 + 0.25*float64(s.Stacks(PassiveMagnetism))
}

// BonusHealth is the max health granted by Vitality.
func (s *PassiveSet) BonusHealth() float64 {
	return 20 * float64(s.Stacks(PassiveVitality))
}

// PassiveState is the HUD view of one owned passive.
type PassiveState struct {
	Kind    PassiveKind `json:"kind"`
	Name    string      `json:"name"`
	Stacks  int         `json:"stacks"`
	Boolean bool        `json:"boolean"`
}

// appendStates appends every owned passive to dst.
func (s *PassiveSet) appendStates(dst []PassiveState) []PassiveState {
	for k := PassiveKind(0); k < passiveCount; k++ {
		if n := s.Stacks(k); n > 0 {
			dst = append(dst, PassiveState{Kind: k, Name: k.String(), Stacks: n, Boolean: k.Boolean()})
		}
	}
	return dst
}
