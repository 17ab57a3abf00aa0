// pkg/core/combatant.go
package core

import "slices"

// Combatant is one entry in the turn order. Stats holds the archetype
// specific fields and always matches Kind.
type Combatant struct {
	ID            string
	Kind          Kind
	Initiative    int
	InitiativeMod int
	Name          string
	Acting        bool
	Stunned       bool

	// UI state, persisted alongside the rules state.
	Expanded    bool
	HitExpanded bool

	Stats Stats
}

// Stats is implemented by the per-archetype stat blocks.
type Stats interface {
	Kind() Kind
	clone() Stats
}

// Clone returns a deep copy of c.
func (c Combatant) Clone() Combatant {
	if c.Stats != nil {
		c.Stats = c.Stats.clone()
	}
	return c
}

// Mook returns the mook stats, or nil if c is another archetype.
func (c *Combatant) Mook() *MookStats {
	s, _ := c.Stats.(*MookStats)
	return s
}

// Drone returns the drone stats, or nil if c is another archetype.
func (c *Combatant) Drone() *DroneStats {
	s, _ := c.Stats.(*DroneStats)
	return s
}

// Robot returns the robot stats, or nil if c is another archetype.
func (c *Combatant) Robot() *RobotStats {
	s, _ := c.Stats.(*RobotStats)
	return s
}

// AmmoState returns the ammunition counters of c, or nil for a player.
func (c *Combatant) AmmoState() *Ammo {
	switch s := c.Stats.(type) {
	case *MookStats:
		return &s.Ammo
	case *DroneStats:
		return &s.Ammo
	case *RobotStats:
		return &s.Ammo
	}
	return nil
}

// Ammo counts remaining shots and spare magazines.
type Ammo struct {
	Shots    int
	ShotsMax int
	Mags     int
}

// ArmorTable maps a location to its current stopping power. A location
// missing from the table has no armor configured.
type ArmorTable map[Location]int

// Get returns the armor at loc and whether it is configured.
func (t ArmorTable) Get(loc Location) (int, bool) {
	v, ok := t[loc]
	return v, ok
}

func (t ArmorTable) clone() ArmorTable {
	if t == nil {
		return nil
	}
	out := make(ArmorTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// NewArmorTable returns a table with every location in locs set to sp.
func NewArmorTable(locs []Location, sp int) ArmorTable {
	t := make(ArmorTable, len(locs))
	for _, l := range locs {
		t[l] = sp
	}
	return t
}

// MookStats holds location armor and wound tracking.
type MookStats struct {
	Armor       ArmorTable
	DamageTaken int
	LastDamage  int
	BTM         int

	// Base values; displayed values add the current penalty.
	Stun      int
	DeathSave int

	// Derived from DamageTaken.
	WoundState       WoundState
	StunPenalty      int
	DeathSavePenalty int
	SkillPenalty     string

	Notification string

	Ammo
}

func (*MookStats) Kind() Kind { return KindMook }

func (s *MookStats) clone() Stats {
	cp := *s
	cp.Armor = s.Armor.clone()
	return &cp
}

// EffectiveStun is the stun save target shown to the table.
func (s *MookStats) EffectiveStun() int { return s.Stun + s.StunPenalty }

// EffectiveDeathSave is the death save target shown to the table.
func (s *MookStats) EffectiveDeathSave() int { return s.DeathSave + s.DeathSavePenalty }

// PlayerStats is empty; players are tracked for turn order only.
type PlayerStats struct{}

func (*PlayerStats) Kind() Kind { return KindPlayer }

func (*PlayerStats) clone() Stats { return &PlayerStats{} }

// DroneStats is a single armor value over a structural damage pool.
type DroneStats struct {
	SP           int
	SDP          int
	DamageTaken  int
	Condition    string
	Notification string

	Ammo
}

func (*DroneStats) Kind() Kind { return KindDrone }

func (s *DroneStats) clone() Stats {
	cp := *s
	return &cp
}

// RobotStats tracks armor and damage per part.
type RobotStats struct {
	Armor         ArmorTable
	Damage        map[Location]int
	Notifications []string

	Ammo
}

func (*RobotStats) Kind() Kind { return KindRobot }

func (s *RobotStats) clone() Stats {
	cp := *s
	cp.Armor = s.Armor.clone()
	cp.Damage = make(map[Location]int, len(s.Damage))
	for k, v := range s.Damage {
		cp.Damage[k] = v
	}
	cp.Notifications = slices.Clone(s.Notifications)
	return &cp
}
