package tracker

import (
	"fmt"
	"math"

	"github.com/redtable/combat-tracker/internal/damage"
	"github.com/redtable/combat-tracker/internal/drone"
	"github.com/redtable/combat-tracker/internal/location"
	"github.com/redtable/combat-tracker/internal/robot"
	"github.com/redtable/combat-tracker/pkg/core"
)

func validateAttack(req core.AttackRequest) error {
	if math.IsNaN(req.Damage) || math.IsInf(req.Damage, 0) || req.Damage <= 0 {
		return fmt.Errorf("%w: damage must be a positive number", ErrInvalidInput)
	}
	for _, m := range []float64{req.ArmorMultiplier, req.DamageMultiplier} {
		if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
			return fmt.Errorf("%w: multiplier must be a non-negative number", ErrInvalidInput)
		}
	}
	if _, ok := core.ParseHitType(string(req.HitType)); !ok {
		return fmt.Errorf("%w: unknown hit type %q", ErrInvalidInput, req.HitType)
	}
	return nil
}

// ApplyHit resolves one attack against a combatant. The combatant is only
// changed if the whole resolution succeeds.
func (s *Store) ApplyHit(id string, req core.AttackRequest) (core.HitOutcome, error) {
	i, err := s.index(id)
	if err != nil {
		return core.HitOutcome{}, err
	}
	if err := validateAttack(req); err != nil {
		return core.HitOutcome{}, err
	}
	req.HitType, _ = core.ParseHitType(string(req.HitType))

	c := s.combatants[i].Clone()
	out := core.HitOutcome{CombatantID: id, Raw: req.Damage}
	opts := damage.OptionsFrom(req)

	switch st := c.Stats.(type) {
	case *core.MookStats:
		err = hitMook(st, req, opts, &out)
	case *core.DroneStats:
		hitDrone(st, req, opts, &out)
	case *core.RobotStats:
		err = hitRobot(st, req, opts, &out)
	default:
		err = fmt.Errorf("%w: %s", ErrNoRules, c.Kind)
	}
	if err != nil {
		s.logger.Warn("Hit rejected", "id", id, "error", err)
		return core.HitOutcome{}, err
	}

	s.combatants[i] = c
	s.logger.Debug("Hit resolved",
		"id", id,
		"location", out.Location,
		"raw", out.Raw,
		"final", out.Final,
		"applied", out.Applied,
		"notification", out.Notification,
		"steps", out.Log)
	return out, nil
}

func hitMook(m *core.MookStats, req core.AttackRequest, opts damage.Options, out *core.HitOutcome) error {
	loc := location.ResolveMook(req.Roll, req.Face)
	armor, ok := m.Armor.Get(loc)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingArmor, loc)
	}
	out.Location = loc
	out.ArmorBefore = armor
	out.Log = append(out.Log, fmt.Sprintf("Location %d: %s (SP %d)", req.Roll, loc.Title(), armor))

	res := damage.ResolveMook(damage.MookInput{
		Raw:      req.Damage,
		Armor:    armor,
		Location: loc,
		BTM:      m.BTM,
		Options:  opts,
	})
	m.Armor[loc] = res.NewArmor
	out.ArmorAfter = res.NewArmor
	out.Absorbed = res.Absorbed
	out.Log = append(out.Log, res.Log...)

	if res.FullyAbsorbed {
		out.FullyAbsorbed = true
		out.Notification = m.Notification
		return nil
	}
	out.Final = res.Damage

	app := damage.ApplyMook(m, loc, res.Damage, req.HitType)
	out.Applied = app.Applied
	out.Notification = app.Notification
	out.StunTarget = app.StunTarget
	out.Log = append(out.Log, app.Log...)
	return nil
}

func hitDrone(d *core.DroneStats, req core.AttackRequest, opts damage.Options, out *core.HitOutcome) {
	out.ArmorBefore = d.SP
	out.Log = append(out.Log, fmt.Sprintf("Drone hit (SP %d)", d.SP))

	res := damage.ResolveStructural(req.Damage, d.SP, opts)
	d.SP = res.NewArmor
	out.ArmorAfter = res.NewArmor
	out.Absorbed = res.Absorbed
	out.Final = res.Damage
	out.Applied = res.Damage
	out.FullyAbsorbed = res.Damage == 0
	out.Log = append(out.Log, res.Log...)

	d.DamageTaken += res.Damage
	drone.Refresh(d)
	out.Notification = d.Notification
	out.Log = append(out.Log, fmt.Sprintf("Damage taken %d of %d: %s", d.DamageTaken, d.SDP, d.Condition))
}

func hitRobot(r *core.RobotStats, req core.AttackRequest, opts damage.Options, out *core.HitOutcome) error {
	part := location.Resolve(req.Roll)
	armor, ok := r.Armor.Get(part)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingArmor, part)
	}
	out.Location = part
	out.ArmorBefore = armor
	out.Log = append(out.Log, fmt.Sprintf("Location %d: %s (SP %d)", req.Roll, part.Title(), armor))

	res := damage.ResolveStructural(req.Damage, armor, opts)
	r.Armor[part] = res.NewArmor
	out.ArmorAfter = res.NewArmor
	out.Absorbed = res.Absorbed
	out.Final = res.Damage
	out.Applied = res.Damage
	out.FullyAbsorbed = res.Damage == 0
	out.Log = append(out.Log, res.Log...)

	r.Damage[part] += res.Damage
	robot.Refresh(r, part)
	if st := robot.PartStatus(part, r.Damage[part]); st != "" {
		out.Notification = st
	}
	out.Log = append(out.Log, fmt.Sprintf("%s damage %d", part.Title(), r.Damage[part]))
	return nil
}
