// pkg/core/attack.go
package core

// AttackRequest is one resolved attack against one combatant.
type AttackRequest struct {
	Roll   int     // location die, 0..9 with 0 meaning 10
	Damage float64 // raw damage, must be positive
	Face   bool    // head hits land on the face (mooks only)

	BypassArmor     bool
	DestroyArmor    bool
	DoubleDecrement bool

	// Zero multipliers are treated as 1.
	ArmorMultiplier  float64
	DamageMultiplier float64

	HitType HitType // mooks only; empty means lethal
}

// HitOutcome reports what a resolved attack did.
type HitOutcome struct {
	CombatantID string
	Location    Location

	Raw         float64
	ArmorBefore int
	ArmorAfter  int

	// Absorbed is the damage left after armor; Final is the damage after
	// multipliers, modifiers and floors; Applied is what was added to the
	// damage taken.
	Absorbed      float64
	Final         int
	Applied       int
	FullyAbsorbed bool

	Notification string
	StunTarget   int // set when the notification asks for a stun save

	Log []string
}

// CreateParams carries the optional values used to create a combatant.
// Nil fields fall back to the archetype defaults.
type CreateParams struct {
	Kind          Kind
	Name          string
	Initiative    *int
	InitiativeMod *int

	Stun      *int
	DeathSave *int
	BTM       *int

	Shots    *int
	ShotsMax *int
	Mags     *int

	Armor       map[Location]int
	SP          *int
	SDP         *int
	DamageTaken *int
}
