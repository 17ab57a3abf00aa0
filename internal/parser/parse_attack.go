package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/location"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/internal/util"
	"github.com/redtable/combat-tracker/pkg/core"
)

// Attack is a parsed hit command.
type Attack struct {
	ID      string
	Request core.AttackRequest

	// Rolled is set when the damage was given as a dice expression.
	Rolled *dice.Result
}

// ParseAttack parses [id, roll, damage, flags...].
//
// The roll is the location die, 0..9 with "10" read as 0; anything else
// lands on the torso. Damage is a number or a dice expression such as "3d6+2". Flags:
//
//	face                  a head hit lands on the face
//	bypass                ignore armor
//	destroy               armor is destroyed by the raw damage
//	double                armor degrades by 2
//	armor*=X, damage*=X   multipliers
//	lethal, nonlethal, half
func (p *Parser) ParseAttack(data []string) (Attack, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 3, "[id, roll, damage, flags...]"); err != nil {
		return Attack{}, err
	}

	atk := Attack{ID: data[0]}
	atk.Request.Roll = location.ParseRoll(data[1])

	dmg, rolled, err := p.parseDamage(data[2])
	if err != nil {
		return Attack{}, err
	}
	atk.Request.Damage = dmg
	atk.Rolled = rolled

	for _, flag := range data[3:] {
		if err := applyFlag(&atk.Request, flag); err != nil {
			return Attack{}, err
		}
	}
	return atk, nil
}

func (p *Parser) parseDamage(s string) (float64, *dice.Result, error) {
	if s == "" {
		return 0, nil, fmt.Errorf("%w: damage", tracker.ErrInvalidInput)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return 0, nil, fmt.Errorf("%w: damage must be positive", tracker.ErrInvalidInput)
		}
		return f, nil, nil
	}
	if !dice.IsExpr(s) {
		return 0, nil, fmt.Errorf("%w: %q is not a damage value", tracker.ErrInvalidInput, s)
	}
	res, err := p.roller.Roll(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", tracker.ErrInvalidInput, err)
	}
	if res.Total <= 0 {
		return 0, nil, fmt.Errorf("%w: %s rolled %d", tracker.ErrInvalidInput, s, res.Total)
	}
	p.logger.Debug("Damage rolled", "expr", s, "rolls", res.Rolls, "total", res.Total)
	return float64(res.Total), &res, nil
}

func applyFlag(req *core.AttackRequest, flag string) error {
	f := strings.ToLower(flag)
	switch {
	case f == "":
		return nil
	case f == "face":
		req.Face = true
	case f == "bypass":
		req.BypassArmor = true
	case f == "destroy":
		req.DestroyArmor = true
	case f == "double":
		req.DoubleDecrement = true
	case strings.HasPrefix(f, "armor*="):
		m, err := parseMultiplier(f[len("armor*="):])
		if err != nil {
			return err
		}
		req.ArmorMultiplier = m
	case strings.HasPrefix(f, "damage*="):
		m, err := parseMultiplier(f[len("damage*="):])
		if err != nil {
			return err
		}
		req.DamageMultiplier = m
	default:
		ht, ok := core.ParseHitType(flag)
		if !ok {
			ht, ok = core.ParseHitType(f)
		}
		if !ok {
			return fmt.Errorf("%w: unknown flag %q", tracker.ErrInvalidInput, flag)
		}
		req.HitType = ht
	}
	return nil
}

func parseMultiplier(s string) (float64, error) {
	m, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 0, fmt.Errorf("%w: multiplier %q", tracker.ErrInvalidInput, s)
	}
	return m, nil
}
