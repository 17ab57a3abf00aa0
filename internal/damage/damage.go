// Package damage resolves a single attack against a single location:
// armor absorption, armor degradation, multipliers, modifiers and floors.
//
// The functions here are pure. They take the current armor and damage
// values and return the new ones; callers commit the result.
package damage

import (
	"fmt"
	"math"

	"github.com/redtable/combat-tracker/pkg/core"
)

// Options are the armor handling switches and multipliers of one attack.
type Options struct {
	BypassArmor     bool
	DestroyArmor    bool
	DoubleDecrement bool

	// Zero means 1.
	ArmorMultiplier  float64
	DamageMultiplier float64
}

// OptionsFrom extracts the pipeline options from an attack request.
func OptionsFrom(req core.AttackRequest) Options {
	return Options{
		BypassArmor:      req.BypassArmor,
		DestroyArmor:     req.DestroyArmor,
		DoubleDecrement:  req.DoubleDecrement,
		ArmorMultiplier:  req.ArmorMultiplier,
		DamageMultiplier: req.DamageMultiplier,
	}
}

func (o Options) armorMult() float64 {
	if o.ArmorMultiplier == 0 {
		return 1
	}
	return o.ArmorMultiplier
}

func (o Options) damageMult() float64 {
	if o.DamageMultiplier == 0 {
		return 1
	}
	return o.DamageMultiplier
}

func (o Options) decrement() int {
	if o.DoubleDecrement {
		return 2
	}
	return 1
}

// Absorption is the outcome of running damage through armor.
type Absorption struct {
	Absorbed float64 // damage that got through
	NewArmor int
	Log      []string
}

// Absorb runs raw damage through armor. Absorption always uses the armor
// value from before this attack, scaled by the armor multiplier; the
// multiplier never changes how much the armor itself degrades.
func Absorb(raw float64, armor int, o Options) Absorption {
	eff := float64(armor) * o.armorMult()
	res := Absorption{NewArmor: armor}

	switch {
	case o.DestroyArmor:
		res.NewArmor = max(0, armor-int(math.Ceil(raw)))
		res.Absorbed = math.Max(0, raw-eff)
		res.Log = append(res.Log,
			fmt.Sprintf("Armor destroyed by %s: SP %d -> %d", fmtNum(raw), armor, res.NewArmor),
			fmt.Sprintf("Absorption: %s - SP %s = %s", fmtNum(raw), fmtNum(eff), fmtNum(res.Absorbed)))
	case !o.BypassArmor:
		res.Absorbed = math.Max(0, raw-eff)
		res.Log = append(res.Log,
			fmt.Sprintf("Absorption: %s - SP %s = %s", fmtNum(raw), fmtNum(eff), fmtNum(res.Absorbed)))
		if raw >= float64(armor) {
			res.NewArmor = max(0, armor-o.decrement())
			res.Log = append(res.Log, fmt.Sprintf("Armor degraded: SP %d -> %d", armor, res.NewArmor))
		}
	default:
		res.Absorbed = raw
		res.Log = append(res.Log, fmt.Sprintf("Armor bypassed: %s gets through", fmtNum(raw)))
	}
	return res
}

// MookInput is a hit against one mook location.
type MookInput struct {
	Raw      float64
	Armor    int
	Location core.Location
	BTM      int
	Options
}

// MookResult is the damage a mook takes from one hit, before hit type
// handling.
type MookResult struct {
	Absorption
	FullyAbsorbed bool
	Damage        int
}

// ResolveMook computes the damage of a hit on a mook. A hit that armor
// stops completely returns FullyAbsorbed with zero Damage; otherwise the
// damage is at least 1.
func ResolveMook(in MookInput) MookResult {
	res := MookResult{Absorption: Absorb(in.Raw, in.Armor, in.Options)}
	dmg := res.Absorbed
	if dmg <= 0 {
		res.FullyAbsorbed = true
		res.Log = append(res.Log, "Fully absorbed: no damage")
		return res
	}

	if in.Location.IsHead() {
		dmg *= 2
		res.Log = append(res.Log, fmt.Sprintf("Head hit: doubled to %s", fmtNum(dmg)))
	}
	if m := in.damageMult(); m != 1 {
		dmg *= m
		res.Log = append(res.Log, fmt.Sprintf("Damage multiplier x%s: %s", fmtNum(m), fmtNum(dmg)))
	}
	if in.BTM != 0 {
		dmg += float64(in.BTM)
		res.Log = append(res.Log, fmt.Sprintf("BTM %+d: %s", in.BTM, fmtNum(dmg)))
	}
	if dmg < 1 {
		dmg = 1
		res.Log = append(res.Log, "Minimum damage: 1")
	}
	res.Damage = int(math.Round(dmg))
	res.Log = append(res.Log, fmt.Sprintf("Final damage: %d", res.Damage))
	return res
}

// StructuralResult is the damage a drone or robot part takes from one hit.
type StructuralResult struct {
	Absorption
	Damage int
}

// ResolveStructural computes the damage of a hit on a drone or a robot
// part. There is no location doubling, modifier or minimum.
func ResolveStructural(raw float64, armor int, o Options) StructuralResult {
	res := StructuralResult{Absorption: Absorb(raw, armor, o)}
	dmg := res.Absorbed
	if m := o.damageMult(); m != 1 {
		dmg *= m
		res.Log = append(res.Log, fmt.Sprintf("Damage multiplier x%s: %s", fmtNum(m), fmtNum(dmg)))
	}
	res.Damage = max(0, int(math.Round(dmg)))
	res.Log = append(res.Log, fmt.Sprintf("Final damage: %d", res.Damage))
	return res
}

func fmtNum(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}
