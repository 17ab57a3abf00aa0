// Package convert provides functions to convert between persisted records and core combatants
package convert

import (
	"errors"
	"fmt"

	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/pkg/core"
)

// ErrUnknownType is returned for a record whose type names no archetype.
var ErrUnknownType = errors.New("unknown combatant type")

func armorKey(loc core.Location) string  { return string(loc) + "Sp" }
func damageKey(loc core.Location) string { return string(loc) + "DmgTaken" }

// CombatantToRecord flattens c into its field bag.
func CombatantToRecord(c core.Combatant) model.Record {
	r := model.Record{
		"id":            c.ID,
		"type":          string(c.Kind),
		"init":          c.Initiative,
		"initMod":       c.InitiativeMod,
		"name":          c.Name,
		"isHighlighted": c.Acting,
		"isStunned":     c.Stunned,
		"expanded":      c.Expanded,
		"hitExpanded":   c.HitExpanded,
	}

	switch s := c.Stats.(type) {
	case *core.MookStats:
		for loc, sp := range s.Armor {
			r[armorKey(loc)] = sp
		}
		r["stun"] = s.Stun
		r["deathSave"] = s.DeathSave
		r["btm"] = s.BTM
		r["dmgTaken"] = s.DamageTaken
		r["lastDmg"] = s.LastDamage
		r["woundState"] = string(s.WoundState)
		r["saveStunPenalty"] = s.StunPenalty
		r["deathSavePenalty"] = s.DeathSavePenalty
		r["skillPenalty"] = s.SkillPenalty
		r["notification"] = s.Notification
		putAmmo(r, s.Ammo)

	case *core.DroneStats:
		r["sp"] = s.SP
		r["sdp"] = s.SDP
		r["dmgTaken"] = s.DamageTaken
		r["condition"] = s.Condition
		r["notification"] = s.Notification
		putAmmo(r, s.Ammo)

	case *core.RobotStats:
		for loc, sp := range s.Armor {
			r[armorKey(loc)] = sp
		}
		for loc, dmg := range s.Damage {
			r[damageKey(loc)] = dmg
		}
		notes := s.Notifications
		if notes == nil {
			notes = []string{}
		}
		r["notifications"] = append([]string(nil), notes...)
		putAmmo(r, s.Ammo)
	}
	return r
}

func putAmmo(r model.Record, a core.Ammo) {
	r["numShots"] = a.Shots
	r["numShotsMax"] = a.ShotsMax
	r["mags"] = a.Mags
}

func readAmmo(r model.Record) core.Ammo {
	return core.Ammo{
		Shots:    r.IntOr("numShots", 0),
		ShotsMax: r.IntOr("numShotsMax", 0),
		Mags:     r.IntOr("mags", 0),
	}
}

// readArmor only sets the locations present in r; an absent key is an
// unconfigured location.
func readArmor(r model.Record, locs []core.Location) core.ArmorTable {
	t := make(core.ArmorTable, len(locs))
	for _, loc := range locs {
		if sp, ok := r.Int(armorKey(loc)); ok {
			t[loc] = sp
		}
	}
	return t
}

// RecordToCombatant rebuilds a combatant from its field bag. Derived
// fields are taken as stored. A record without a type is a mook.
func RecordToCombatant(r model.Record) (core.Combatant, error) {
	kind := core.KindMook
	if t := r.String("type"); t != "" {
		k, ok := core.ParseKind(t)
		if !ok {
			return core.Combatant{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		kind = k
	}

	c := core.Combatant{
		ID:            r.String("id"),
		Kind:          kind,
		Initiative:    r.IntOr("init", 0),
		InitiativeMod: r.IntOr("initMod", 0),
		Name:          r.String("name"),
		Acting:        r.Bool("isHighlighted"),
		Stunned:       r.Bool("isStunned"),
		Expanded:      r.Bool("expanded"),
		HitExpanded:   r.Bool("hitExpanded"),
	}

	switch kind {
	case core.KindMook:
		c.Stats = &core.MookStats{
			Armor:            readArmor(r, core.MookLocations),
			DamageTaken:      r.IntOr("dmgTaken", 0),
			LastDamage:       r.IntOr("lastDmg", 0),
			BTM:              r.IntOr("btm", 0),
			Stun:             r.IntOr("stun", 0),
			DeathSave:        r.IntOr("deathSave", 0),
			WoundState:       core.WoundState(r.String("woundState")),
			StunPenalty:      r.IntOr("saveStunPenalty", 0),
			DeathSavePenalty: r.IntOr("deathSavePenalty", 0),
			SkillPenalty:     r.String("skillPenalty"),
			Notification:     r.String("notification"),
			Ammo:             readAmmo(r),
		}

	case core.KindDrone:
		c.Stats = &core.DroneStats{
			SP:           r.IntOr("sp", 0),
			SDP:          r.IntOr("sdp", 0),
			DamageTaken:  r.IntOr("dmgTaken", 0),
			Condition:    r.String("condition"),
			Notification: r.String("notification"),
			Ammo:         readAmmo(r),
		}

	case core.KindRobot:
		rs := &core.RobotStats{
			Armor:         readArmor(r, core.RobotParts),
			Damage:        make(map[core.Location]int, len(core.RobotParts)),
			Notifications: r.Strings("notifications"),
			Ammo:          readAmmo(r),
		}
		for _, part := range core.RobotParts {
			rs.Damage[part] = r.IntOr(damageKey(part), 0)
		}
		c.Stats = rs

	default:
		c.Stats = &core.PlayerStats{}
	}
	return c, nil
}

// CombatantsToRecords flattens a turn order.
func CombatantsToRecords(list []core.Combatant) []model.Record {
	out := make([]model.Record, len(list))
	for i, c := range list {
		out[i] = CombatantToRecord(c)
	}
	return out
}

// RecordsToCombatants rebuilds a turn order, stopping at the first bad record.
func RecordsToCombatants(records []model.Record) ([]core.Combatant, error) {
	out := make([]core.Combatant, 0, len(records))
	for i, r := range records {
		c, err := RecordToCombatant(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
