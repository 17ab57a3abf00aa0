package convert

import (
	"time"

	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/pkg/core"
)

// OutcomeToHitEvent records what a resolved attack did to target.
func OutcomeToHitEvent(target core.Combatant, out core.HitOutcome, at time.Time) model.HitEvent {
	return model.HitEvent{
		Time:         at.UTC(),
		CombatantID:  out.CombatantID,
		Kind:         string(target.Kind),
		Name:         target.Name,
		Location:     string(out.Location),
		Raw:          out.Raw,
		ArmorBefore:  out.ArmorBefore,
		ArmorAfter:   out.ArmorAfter,
		Final:        out.Final,
		Applied:      out.Applied,
		Absorbed:     out.FullyAbsorbed,
		Notification: out.Notification,
	}
}
