package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redtable/combat-tracker/internal/ammo"
	"github.com/redtable/combat-tracker/internal/drone"
	"github.com/redtable/combat-tracker/internal/robot"
	"github.com/redtable/combat-tracker/internal/wound"
	"github.com/redtable/combat-tracker/pkg/core"
)

// FieldType tells the rendering layer which input to show.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldText   FieldType = "text"
)

// Field describes one stat of an archetype.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	ReadOnly bool      `json:"readOnly"`
}

type accessor struct {
	Field
	get     func(c *core.Combatant) any
	setInt  func(c *core.Combatant, v int)
	setText func(c *core.Combatant, v string)
}

func numberField(key, label string, get func(*core.Combatant) int, set func(*core.Combatant, int)) accessor {
	return accessor{
		Field:  Field{Key: key, Label: label, Type: FieldNumber},
		get:    func(c *core.Combatant) any { return get(c) },
		setInt: set,
	}
}

func derivedField(key, label string, t FieldType, get func(*core.Combatant) any) accessor {
	return accessor{
		Field: Field{Key: key, Label: label, Type: t, ReadOnly: true},
		get:   get,
	}
}

var commonFields = []accessor{
	{
		Field:   Field{Key: "name", Label: "Name", Type: FieldText},
		get:     func(c *core.Combatant) any { return c.Name },
		setText: func(c *core.Combatant, v string) { c.Name = v },
	},
	numberField("init", "Init",
		func(c *core.Combatant) int { return c.Initiative },
		func(c *core.Combatant, v int) { c.Initiative = v }),
	numberField("initMod", "Init Mod",
		func(c *core.Combatant) int { return c.InitiativeMod },
		func(c *core.Combatant, v int) { c.InitiativeMod = v }),
}

func ammoFields() []accessor {
	return []accessor{
		numberField("numShots", "Shots",
			func(c *core.Combatant) int { return c.AmmoState().Shots },
			func(c *core.Combatant, v int) {
				a := c.AmmoState()
				a.Shots = v
				ammo.Clamp(a)
			}),
		numberField("numShotsMax", "Shots Max",
			func(c *core.Combatant) int { return c.AmmoState().ShotsMax },
			func(c *core.Combatant, v int) {
				a := c.AmmoState()
				a.ShotsMax = v
				ammo.Clamp(a)
			}),
		numberField("mags", "Mags",
			func(c *core.Combatant) int { return c.AmmoState().Mags },
			func(c *core.Combatant, v int) { c.AmmoState().Mags = max(0, v) }),
	}
}

func armorField(loc core.Location) accessor {
	return numberField(string(loc)+"Sp", loc.Title()+" SP",
		func(c *core.Combatant) int { return armorOf(c)[loc] },
		func(c *core.Combatant, v int) { armorOf(c)[loc] = max(0, v) })
}

func armorOf(c *core.Combatant) core.ArmorTable {
	switch s := c.Stats.(type) {
	case *core.MookStats:
		return s.Armor
	case *core.RobotStats:
		return s.Armor
	}
	return nil
}

func mookFields() []accessor {
	m := func(c *core.Combatant) *core.MookStats { return c.Mook() }
	fs := []accessor{
		numberField("stun", "Stun",
			func(c *core.Combatant) int { return m(c).Stun },
			func(c *core.Combatant, v int) { m(c).Stun = v }),
		numberField("deathSave", "Death Save",
			func(c *core.Combatant) int { return m(c).DeathSave },
			func(c *core.Combatant, v int) { m(c).DeathSave = v }),
		numberField("btm", "BTM",
			func(c *core.Combatant) int { return m(c).BTM },
			func(c *core.Combatant, v int) { m(c).BTM = v }),
		numberField("dmgTaken", "DMG Taken",
			func(c *core.Combatant) int { return m(c).DamageTaken },
			func(c *core.Combatant, v int) { wound.Apply(m(c), v) }),
		numberField("lastDmg", "Last DMG",
			func(c *core.Combatant) int { return m(c).LastDamage },
			func(c *core.Combatant, v int) { m(c).LastDamage = v }),
	}
	for _, loc := range core.MookLocations {
		fs = append(fs, armorField(loc))
	}
	fs = append(fs, ammoFields()...)
	return append(fs,
		derivedField("woundState", "Wound State", FieldText,
			func(c *core.Combatant) any { return string(m(c).WoundState) }),
		derivedField("saveStunPenalty", "Stun Penalty", FieldNumber,
			func(c *core.Combatant) any { return m(c).StunPenalty }),
		derivedField("deathSavePenalty", "Death Save Penalty", FieldNumber,
			func(c *core.Combatant) any { return m(c).DeathSavePenalty }),
		derivedField("skillPenalty", "Skill Penalty", FieldText,
			func(c *core.Combatant) any { return m(c).SkillPenalty }),
		derivedField("notification", "Notification", FieldText,
			func(c *core.Combatant) any { return m(c).Notification }),
	)
}

func droneFields() []accessor {
	d := func(c *core.Combatant) *core.DroneStats { return c.Drone() }
	fs := []accessor{
		numberField("sp", "SP",
			func(c *core.Combatant) int { return d(c).SP },
			func(c *core.Combatant, v int) { d(c).SP = max(0, v) }),
		numberField("sdp", "SDP",
			func(c *core.Combatant) int { return d(c).SDP },
			func(c *core.Combatant, v int) {
				d(c).SDP = v
				drone.Refresh(d(c))
			}),
		numberField("dmgTaken", "DMG Taken",
			func(c *core.Combatant) int { return d(c).DamageTaken },
			func(c *core.Combatant, v int) {
				d(c).DamageTaken = max(0, v)
				drone.Refresh(d(c))
			}),
	}
	fs = append(fs, ammoFields()...)
	return append(fs,
		derivedField("condition", "Condition", FieldText,
			func(c *core.Combatant) any { return d(c).Condition }),
		derivedField("notification", "Notification", FieldText,
			func(c *core.Combatant) any { return d(c).Notification }),
	)
}

func robotFields() []accessor {
	var fs []accessor
	for _, part := range core.RobotParts {
		fs = append(fs, armorField(part))
	}
	for _, part := range core.RobotParts {
		fs = append(fs, numberField(string(part)+"DmgTaken", part.Title()+" DMG",
			func(c *core.Combatant) int { return c.Robot().Damage[part] },
			func(c *core.Combatant, v int) {
				r := c.Robot()
				r.Damage[part] = max(0, v)
				robot.Refresh(r, part)
			}))
	}
	fs = append(fs, ammoFields()...)
	return append(fs,
		derivedField("notifications", "Notifications", FieldText,
			func(c *core.Combatant) any { return append([]string(nil), c.Robot().Notifications...) }))
}

var fieldTables = map[core.Kind][]accessor{
	core.KindPlayer: commonFields,
	core.KindMook:   append(append([]accessor(nil), commonFields...), mookFields()...),
	core.KindDrone:  append(append([]accessor(nil), commonFields...), droneFields()...),
	core.KindRobot:  append(append([]accessor(nil), commonFields...), robotFields()...),
}

func lookupField(kind core.Kind, key string) (accessor, bool) {
	for _, a := range fieldTables[kind] {
		if a.Key == key {
			return a, true
		}
	}
	return accessor{}, false
}

// Fields lists the stats of an archetype in display order.
func Fields(kind core.Kind) []Field {
	table := fieldTables[kind]
	out := make([]Field, len(table))
	for i, a := range table {
		out[i] = a.Field
	}
	return out
}

// FieldValue reads one stat of c.
func FieldValue(c core.Combatant, key string) (any, error) {
	a, ok := lookupField(c.Kind, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, c.Kind, key)
	}
	return a.get(&c), nil
}

// parseNumber accepts any finite number and floors it to an integer.
func parseNumber(raw string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
	}
	return int(math.Floor(f)), nil
}

// Edit sets one stat from user input and recomputes whatever depends on
// it. Derived stats cannot be edited.
func (s *Store) Edit(id, key, raw string) (core.Combatant, error) {
	i, err := s.index(id)
	if err != nil {
		return core.Combatant{}, err
	}
	a, ok := lookupField(s.combatants[i].Kind, key)
	if !ok {
		return core.Combatant{}, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, s.combatants[i].Kind, key)
	}
	if a.ReadOnly {
		return core.Combatant{}, fmt.Errorf("%w: %s", ErrReadOnlyField, key)
	}

	c := s.combatants[i].Clone()
	switch a.Type {
	case FieldText:
		a.setText(&c, strings.TrimSpace(raw))
	default:
		n, err := parseNumber(raw)
		if err != nil {
			return core.Combatant{}, err
		}
		a.setInt(&c, n)
	}

	s.combatants[i] = c
	if key == "init" {
		s.sort()
	}
	s.logger.Debug("Field edited", "id", id, "field", key, "value", raw)
	return c.Clone(), nil
}
