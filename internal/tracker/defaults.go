package tracker

import (
	"fmt"

	"github.com/redtable/combat-tracker/internal/drone"
	"github.com/redtable/combat-tracker/internal/robot"
	"github.com/redtable/combat-tracker/internal/wound"
	"github.com/redtable/combat-tracker/pkg/core"
)

// Archetype defaults.
const (
	DefaultInitiative = 99
	DefaultArmor      = 12
	DefaultStun       = 6
	DefaultDeathSave  = 7
	DefaultBTM        = -2
	DefaultMookShots  = 30
	DefaultMookMax    = 35
	DefaultMookMags   = 2
)

func pick(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

// newCombatant builds a combatant from p, filling gaps with the archetype
// defaults. seq numbers the fallback name.
func newCombatant(id string, p core.CreateParams, seq int) (core.Combatant, error) {
	kind := p.Kind
	if kind == "" {
		kind = core.KindMook
	}
	if _, ok := core.ParseKind(string(kind)); !ok {
		return core.Combatant{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, kind)
	}

	c := core.Combatant{
		ID:            id,
		Kind:          kind,
		Initiative:    pick(p.Initiative, DefaultInitiative),
		InitiativeMod: pick(p.InitiativeMod, 0),
		Name:          p.Name,
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("Character %d", seq)
	}
	c.Stats = defaultStats(kind, p)
	return c, nil
}

func defaultStats(kind core.Kind, p core.CreateParams) core.Stats {
	switch kind {
	case core.KindDrone:
		shotsMax := pick(p.ShotsMax, 0)
		d := &core.DroneStats{
			SP:          pick(p.SP, 0),
			SDP:         pick(p.SDP, 0),
			DamageTaken: pick(p.DamageTaken, 0),
			Condition:   core.ConditionFunctional,
			Ammo: core.Ammo{
				Shots:    pick(p.Shots, shotsMax),
				ShotsMax: shotsMax,
				Mags:     pick(p.Mags, 0),
			},
		}
		drone.Refresh(d)
		return d

	case core.KindRobot:
		shotsMax := pick(p.ShotsMax, 0)
		r := &core.RobotStats{
			Armor:  armorFrom(core.RobotParts, p.Armor),
			Damage: make(map[core.Location]int, len(core.RobotParts)),
			Ammo: core.Ammo{
				Shots:    pick(p.Shots, shotsMax),
				ShotsMax: shotsMax,
				Mags:     pick(p.Mags, 0),
			},
		}
		for _, part := range core.RobotParts {
			r.Damage[part] = 0
		}
		robot.RefreshAll(r)
		return r

	case core.KindPlayer:
		return &core.PlayerStats{}
	}

	stun := pick(p.Stun, DefaultStun)
	m := &core.MookStats{
		Armor:        armorFrom(core.MookLocations, p.Armor),
		BTM:          pick(p.BTM, DefaultBTM),
		Stun:         stun,
		DeathSave:    pick(p.DeathSave, DefaultDeathSave),
		Notification: core.NoteNone,
		Ammo: core.Ammo{
			ShotsMax: pick(p.ShotsMax, DefaultMookMax),
			Mags:     pick(p.Mags, DefaultMookMags),
		},
	}
	switch {
	case p.Shots != nil:
		m.Shots = *p.Shots
	case p.ShotsMax != nil:
		m.Shots = *p.ShotsMax
	default:
		m.Shots = DefaultMookShots
	}
	wound.Apply(m, pick(p.DamageTaken, 0))
	return m
}

func armorFrom(locs []core.Location, given map[core.Location]int) core.ArmorTable {
	t := core.NewArmorTable(locs, DefaultArmor)
	for loc, sp := range given {
		if _, ok := t[loc]; ok {
			t[loc] = max(0, sp)
		}
	}
	return t
}
