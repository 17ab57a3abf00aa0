package worker

import (
	"log/slog"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/model/convert"
	"github.com/redtable/combat-tracker/pkg/core"
)

// Manager turns dispatcher events into tracker operations.
type Manager struct {
	svc    *handlers.Service
	logger *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(svc *handlers.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		svc:    svc,
		logger: logger.With("component", "worker"),
	}
}

// RemoveResult is returned by :REMOVE:.
type RemoveResult struct {
	ID string `json:"id"`
}

// RollResult is returned by :ROLL: and :ROLL:INIT: for one combatant.
type RollResult struct {
	ID   string `json:"id,omitempty"`
	Roll int    `json:"roll"`
}

// TurnResult is returned by :NEXT: and :PREV:. Acting is nil when the
// turn order is empty.
type TurnResult struct {
	Acting model.Record `json:"acting"`
	Round  int          `json:"round"`
}

// HitResult is returned by :HIT:.
type HitResult struct {
	Combatant    model.Record `json:"combatant"`
	Location     string       `json:"location"`
	Raw          float64      `json:"raw"`
	ArmorBefore  int          `json:"armorBefore"`
	ArmorAfter   int          `json:"armorAfter"`
	Final        int          `json:"final"`
	Applied      int          `json:"applied"`
	Absorbed     bool         `json:"absorbed"`
	Notification string       `json:"notification"`
	StunTarget   int          `json:"stunTarget,omitempty"`
	Log          []string     `json:"log"`
	Rolled       *dice.Result `json:"rolled,omitempty"`
}

func newHitResult(c core.Combatant, out core.HitOutcome, rolled *dice.Result) HitResult {
	return HitResult{
		Combatant:    convert.CombatantToRecord(c),
		Location:     string(out.Location),
		Raw:          out.Raw,
		ArmorBefore:  out.ArmorBefore,
		ArmorAfter:   out.ArmorAfter,
		Final:        out.Final,
		Applied:      out.Applied,
		Absorbed:     out.FullyAbsorbed,
		Notification: out.Notification,
		StunTarget:   out.StunTarget,
		Log:          out.Log,
		Rolled:       rolled,
	}
}

// AmmoResult is returned by :FIRE: and :RELOAD:. OK is false when the
// request could not be met and nothing changed.
type AmmoResult struct {
	ID       string `json:"id"`
	Shots    int    `json:"numShots"`
	ShotsMax int    `json:"numShotsMax"`
	Mags     int    `json:"mags"`
	OK       bool   `json:"ok"`
}

func newAmmoResult(id string, a core.Ammo, ok bool) AmmoResult {
	return AmmoResult{ID: id, Shots: a.Shots, ShotsMax: a.ShotsMax, Mags: a.Mags, OK: ok}
}

// StunResult is returned by :STUN:.
type StunResult struct {
	ID      string `json:"id"`
	Stunned bool   `json:"isStunned"`
}
