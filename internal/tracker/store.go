// Package tracker owns the ordered list of combatants in an encounter and
// is the only place that mutates them. Every mutation recomputes derived
// fields before it returns, and either commits completely or not at all.
package tracker

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/redtable/combat-tracker/internal/ammo"
	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/pkg/core"
)

// Store holds the combatants in turn order, highest initiative first.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	combatants []core.Combatant
	roller     *dice.Roller
	logger     *slog.Logger
	newID      func() string
}

// New creates an empty store.
func New(logger *slog.Logger, roller *dice.Roller) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if roller == nil {
		roller = dice.New(0)
	}
	return &Store{
		roller: roller,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Len returns the number of combatants.
func (s *Store) Len() int {
	return len(s.combatants)
}

// Snapshot returns copies of all combatants in turn order.
func (s *Store) Snapshot() []core.Combatant {
	out := make([]core.Combatant, len(s.combatants))
	for i, c := range s.combatants {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a copy of the combatant with the given ID.
func (s *Store) Get(id string) (core.Combatant, error) {
	i, err := s.index(id)
	if err != nil {
		return core.Combatant{}, err
	}
	return s.combatants[i].Clone(), nil
}

// Load replaces the store contents with previously persisted combatants.
// Stored derived fields are kept as they are.
func (s *Store) Load(list []core.Combatant) {
	s.combatants = make([]core.Combatant, 0, len(list))
	for _, c := range list {
		c = c.Clone()
		if c.ID == "" {
			c.ID = s.newID()
		}
		if a := c.AmmoState(); a != nil {
			ammo.Clamp(a)
		}
		s.combatants = append(s.combatants, c)
	}
	s.sort()
	s.logger.Debug("Encounter loaded", "combatants", len(s.combatants))
}

func (s *Store) index(id string) (int, error) {
	i := slices.IndexFunc(s.combatants, func(c core.Combatant) bool { return c.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return i, nil
}

// sort restores the turn order invariant. Ties keep their relative order.
func (s *Store) sort() {
	slices.SortStableFunc(s.combatants, func(a, b core.Combatant) int {
		return cmp.Compare(b.Initiative, a.Initiative)
	})
}

// Insert creates a combatant from p and places it in turn order ahead of
// any combatant with the same initiative. The first combatant added to an
// empty store is the acting one.
func (s *Store) Insert(p core.CreateParams) (core.Combatant, error) {
	c, err := newCombatant(s.newID(), p, len(s.combatants)+1)
	if err != nil {
		return core.Combatant{}, err
	}
	if a := c.AmmoState(); a != nil {
		ammo.Clamp(a)
	}
	c.Acting = len(s.combatants) == 0

	s.combatants = slices.Insert(s.combatants, 0, c)
	s.sort()
	s.logger.Info("Combatant added", "id", c.ID, "name", c.Name, "type", c.Kind, "init", c.Initiative)
	return c.Clone(), nil
}

// Remove deletes a combatant. If it was acting, the turn passes to the
// combatant that takes its place, or to the new last one.
func (s *Store) Remove(id string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	wasActing := s.combatants[i].Acting
	s.combatants = slices.Delete(s.combatants, i, i+1)

	if wasActing && len(s.combatants) > 0 {
		next := min(i, len(s.combatants)-1)
		s.combatants[next].Acting = true
	}
	s.logger.Info("Combatant removed", "id", id)
	return nil
}

// Copy duplicates a combatant under a new ID. The copy is never acting.
func (s *Store) Copy(id string) (core.Combatant, error) {
	i, err := s.index(id)
	if err != nil {
		return core.Combatant{}, err
	}
	c := s.combatants[i].Clone()
	c.ID = s.newID()
	c.Name = c.Name + " (Copy)"
	c.Acting = false

	s.combatants = append(s.combatants, c)
	s.sort()
	s.logger.Info("Combatant copied", "from", id, "id", c.ID)
	return c.Clone(), nil
}

// ChangeKind switches a combatant to another archetype. Common fields are
// kept and the stats are reset to the new archetype's defaults.
func (s *Store) ChangeKind(id string, kind core.Kind) (core.Combatant, error) {
	i, err := s.index(id)
	if err != nil {
		return core.Combatant{}, err
	}
	if _, ok := core.ParseKind(string(kind)); !ok {
		return core.Combatant{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, kind)
	}
	c := &s.combatants[i]
	c.Kind = kind
	c.Stats = defaultStats(kind, core.CreateParams{})
	c.Expanded = false
	c.HitExpanded = false
	return c.Clone(), nil
}

// SetInitiative sets a combatant's initiative and re-sorts.
func (s *Store) SetInitiative(id string, init int) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.combatants[i].Initiative = init
	s.sort()
	return nil
}

// SetInitiativeMod sets the modifier added to initiative rolls.
func (s *Store) SetInitiativeMod(id string, mod int) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.combatants[i].InitiativeMod = mod
	return nil
}

// RollInitiative rolls d10 plus the combatant's modifier as its new
// initiative and returns the total.
func (s *Store) RollInitiative(id string) (int, error) {
	i, err := s.index(id)
	if err != nil {
		return 0, err
	}
	c := &s.combatants[i]
	c.Initiative = s.roller.D10() + c.InitiativeMod
	total := c.Initiative
	s.sort()
	return total, nil
}

// RollAllInitiative rerolls initiative for every combatant.
func (s *Store) RollAllInitiative() {
	for i := range s.combatants {
		c := &s.combatants[i]
		c.Initiative = s.roller.D10() + c.InitiativeMod
	}
	s.sort()
}

// RollD10 rolls a bare d10 for the table.
func (s *Store) RollD10() int {
	return s.roller.D10()
}

// Next passes the turn to the following combatant, wrapping around.
// It returns the new acting combatant, or false if nobody is acting.
func (s *Store) Next() (core.Combatant, bool) {
	return s.advance(1)
}

// Previous passes the turn back to the preceding combatant, wrapping around.
func (s *Store) Previous() (core.Combatant, bool) {
	return s.advance(-1)
}

func (s *Store) advance(step int) (core.Combatant, bool) {
	cur := slices.IndexFunc(s.combatants, func(c core.Combatant) bool { return c.Acting })
	if cur < 0 {
		return core.Combatant{}, false
	}
	n := len(s.combatants)
	next := ((cur+step)%n + n) % n
	s.combatants[cur].Acting = false
	s.combatants[next].Acting = true
	return s.combatants[next].Clone(), true
}

// ToggleStunned flips the stunned marker and returns the new value.
func (s *Store) ToggleStunned(id string) (bool, error) {
	i, err := s.index(id)
	if err != nil {
		return false, err
	}
	s.combatants[i].Stunned = !s.combatants[i].Stunned
	return s.combatants[i].Stunned, nil
}

// ClearNotification resets a mook's or drone's notification, as when the
// hit form is opened for a new attack.
func (s *Store) ClearNotification(id string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	c := &s.combatants[i]
	switch {
	case c.Mook() != nil:
		c.Mook().Notification = core.NoteNone
	case c.Drone() != nil:
		c.Drone().Notification = core.NoteNone
	default:
		return ErrNoRules
	}
	return nil
}

// SetExpanded records the display expansion flags.
func (s *Store) SetExpanded(id string, expanded, hitExpanded bool) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.combatants[i].Expanded = expanded
	s.combatants[i].HitExpanded = hitExpanded
	return nil
}
