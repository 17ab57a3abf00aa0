package tracker

import (
	"fmt"

	"github.com/redtable/combat-tracker/internal/ammo"
	"github.com/redtable/combat-tracker/pkg/core"
)

func (s *Store) ammoOf(id string) (*core.Combatant, *core.Ammo, error) {
	i, err := s.index(id)
	if err != nil {
		return nil, nil, err
	}
	c := &s.combatants[i]
	a := c.AmmoState()
	if a == nil {
		return nil, nil, fmt.Errorf("%w: %s has no ammunition", ErrNoRules, c.Kind)
	}
	return c, a, nil
}

// ApplyAmmoDelta fires n shots. It reports false, leaving the counters as
// they were, when fewer than n shots remain.
func (s *Store) ApplyAmmoDelta(id string, n int) (core.Ammo, bool, error) {
	if n < 0 {
		return core.Ammo{}, false, fmt.Errorf("%w: shots must not be negative", ErrInvalidInput)
	}
	_, a, err := s.ammoOf(id)
	if err != nil {
		return core.Ammo{}, false, err
	}
	ok := ammo.Fire(a, n)
	if !ok {
		s.logger.Debug("Not enough shots", "id", id, "requested", n, "shots", a.Shots)
	}
	return *a, ok, nil
}

// Reload swaps in a magazine. It reports false when none are left.
func (s *Store) Reload(id string) (core.Ammo, bool, error) {
	_, a, err := s.ammoOf(id)
	if err != nil {
		return core.Ammo{}, false, err
	}
	ok := ammo.Reload(a)
	return *a, ok, nil
}

// ValidateShots clamps the shot count into range and returns the result
// and whether it had to change.
func (s *Store) ValidateShots(id string) (int, bool, error) {
	_, a, err := s.ammoOf(id)
	if err != nil {
		return 0, false, err
	}
	changed := ammo.Clamp(a)
	return a.Shots, changed, nil
}
