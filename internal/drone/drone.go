// Package drone classifies a drone's condition from its structural damage.
package drone

import "github.com/redtable/combat-tracker/pkg/core"

// Condition returns the condition label for dmg taken out of an sdp pool.
// sdp must be positive.
func Condition(dmg, sdp int) string {
	if dmg >= sdp {
		return core.ConditionDestroyed
	}
	pct := float64(dmg) / float64(sdp) * 100
	switch {
	case pct > 80:
		return core.ConditionDamaged
	case pct > 50:
		return core.ConditionBattered
	default:
		return core.ConditionFunctional
	}
}

// Refresh recomputes the condition and notification of d. A drone without
// a configured pool keeps its current condition.
func Refresh(d *core.DroneStats) {
	if d.SDP <= 0 {
		return
	}
	d.Condition = Condition(d.DamageTaken, d.SDP)
	if d.Condition == core.ConditionDestroyed {
		d.Notification = core.NoteDestroyed
	} else {
		d.Notification = ""
	}
}
