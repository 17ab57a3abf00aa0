// Package wound maps a mook's cumulative damage to its wound state and the
// penalties that follow from it.
package wound

import "github.com/redtable/combat-tracker/pkg/core"

// bandWidth is the damage range covered by each state above Healthy.
const bandWidth = 4

// FromDamage returns the wound state for cumulative damage dmg.
// Negative damage is treated as none.
func FromDamage(dmg int) core.WoundState {
	if dmg <= 0 {
		return core.Healthy
	}
	// 1-4 Light, 5-8 Serious, ... 37-40 Mortal 6, then Dead.
	band := (dmg + bandWidth - 1) / bandWidth
	if band >= len(core.WoundStates)-1 {
		return core.Dead
	}
	return core.WoundStates[band]
}

var stunPenalties = map[core.WoundState]int{
	core.Healthy:  0,
	core.Light:    0,
	core.Serious:  -1,
	core.Critical: -2,
	core.Mortal0:  -3,
	core.Mortal1:  -4,
	core.Mortal2:  -5,
	core.Mortal3:  -6,
	core.Mortal4:  -7,
	core.Mortal5:  -8,
	core.Mortal6:  -9,
	core.Dead:     -9,
}

var deathSavePenalties = map[core.WoundState]int{
	core.Mortal0: 0,
	core.Mortal1: -1,
	core.Mortal2: -2,
	core.Mortal3: -3,
	core.Mortal4: -4,
	core.Mortal5: -5,
	core.Mortal6: -6,
	core.Dead:    -6,
}

const (
	skillNone    = "None"
	skillSerious = "-2 REF/DEX"
	skillHalved  = "REF/DEX/INT/CL at 1/2"
	skillThirded = "REF/DEX/INT/CL at 1/3"
)

var skillPenalties = map[core.WoundState]string{
	core.Healthy:  skillNone,
	core.Light:    skillNone,
	core.Serious:  skillSerious,
	core.Critical: skillHalved,
	core.Mortal0:  skillThirded,
	core.Mortal1:  skillThirded,
	core.Mortal2:  skillThirded,
	core.Mortal3:  skillThirded,
	core.Mortal4:  skillThirded,
	core.Mortal5:  skillThirded,
	core.Mortal6:  skillThirded,
	core.Dead:     skillThirded,
}

// StunPenalty returns the stun save modifier for w. Unknown labels yield 0.
func StunPenalty(w core.WoundState) int {
	return stunPenalties[w]
}

// DeathSavePenalty returns the death save modifier for w. States below
// Mortal 0 and unknown labels yield 0.
func DeathSavePenalty(w core.WoundState) int {
	return deathSavePenalties[w]
}

// SkillPenalty returns the skill penalty text for w. Unknown labels yield "None".
func SkillPenalty(w core.WoundState) string {
	if s, ok := skillPenalties[w]; ok {
		return s
	}
	return skillNone
}

// Apply sets dmg as the mook's damage taken and recomputes every field
// derived from it. Base stun and death save values are left alone.
func Apply(m *core.MookStats, dmg int) {
	if dmg < 0 {
		dmg = 0
	}
	m.DamageTaken = dmg
	m.WoundState = FromDamage(dmg)
	m.StunPenalty = StunPenalty(m.WoundState)
	m.DeathSavePenalty = DeathSavePenalty(m.WoundState)
	m.SkillPenalty = SkillPenalty(m.WoundState)
}

// StunTarget is the stun save target the mook would have at damage dmg.
func StunTarget(m *core.MookStats, dmg int) int {
	return m.Stun + StunPenalty(FromDamage(dmg))
}

// NeedsStunSave reports whether w calls for a stun save rather than a death save.
func NeedsStunSave(w core.WoundState) bool {
	return w == core.Light || w == core.Serious || w == core.Critical
}
