package damage

import (
	"fmt"
	"math"

	"github.com/redtable/combat-tracker/internal/wound"
	"github.com/redtable/combat-tracker/pkg/core"
)

const (
	// SevereDamage is the single-hit damage that kills on a head hit and
	// dismembers anywhere else.
	SevereDamage = 8

	// KillDamage is the damage taken a head kill sets, whatever the total was.
	KillDamage = 99
)

// MookApplication describes what applying a hit did to a mook.
type MookApplication struct {
	Applied      int
	Notification string
	StunTarget   int
	Log          []string
}

// StunSaveNote is the notification asking for a stun save against target.
func StunSaveNote(target int) string {
	return fmt.Sprintf("%s (Stun %d)", core.NoteStunSave, target)
}

// ApplyMook commits dmg from a hit at loc to m according to the hit type
// and recomputes the wound state. dmg must come from a hit that was not
// fully absorbed.
func ApplyMook(m *core.MookStats, loc core.Location, dmg int, ht core.HitType) MookApplication {
	switch ht {
	case core.HitNonLethal:
		target := wound.StunTarget(m, m.DamageTaken+dmg)
		m.Notification = StunSaveNote(target)
		return MookApplication{
			Notification: m.Notification,
			StunTarget:   target,
			Log:          []string{fmt.Sprintf("Non-lethal: %d damage discarded, stun save at %d", dmg, target)},
		}

	case core.HitHalfAndHalf:
		target := wound.StunTarget(m, m.DamageTaken+dmg)
		half := max(1, int(math.Round(float64(dmg)/2)))
		wound.Apply(m, m.DamageTaken+half)
		m.LastDamage = half
		m.Notification = StunSaveNote(target)
		return MookApplication{
			Applied:      half,
			Notification: m.Notification,
			StunTarget:   target,
			Log:          []string{fmt.Sprintf("Half and half: %d of %d applied, stun save at %d", half, dmg, target)},
		}
	}

	app := MookApplication{Applied: dmg}
	m.LastDamage = dmg
	switch {
	case dmg >= SevereDamage && loc.IsHead():
		wound.Apply(m, KillDamage)
		m.Notification = core.NoteDead
	case dmg >= SevereDamage:
		wound.Apply(m, m.DamageTaken+dmg)
		m.Notification = core.NoteDismemberment
	default:
		wound.Apply(m, m.DamageTaken+dmg)
		if wound.NeedsStunSave(m.WoundState) {
			m.Notification = core.NoteStunSave
			app.StunTarget = m.EffectiveStun()
		} else {
			m.Notification = core.NoteDeathSave
		}
	}
	app.Notification = m.Notification
	app.Log = append(app.Log, fmt.Sprintf("Lethal: damage taken %d (%s) -> %s", m.DamageTaken, m.WoundState, m.Notification))
	return app
}
