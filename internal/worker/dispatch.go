package worker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redtable/combat-tracker/internal/dispatcher"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/model/convert"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/pkg/core"
)

// RegisterHandlers registers all tracker commands with the dispatcher.
// Every command is synchronous: the caller renders its result.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Turn order
	d.Register(":ADD:", m.handleAdd, dispatcher.Logged())
	d.Register(":REMOVE:", m.handleRemove, dispatcher.Logged())
	d.Register(":COPY:", m.handleCopy, dispatcher.Logged())
	d.Register(":KIND:", m.handleKind, dispatcher.Logged())
	d.Register(":LIST:", m.handleList, dispatcher.Logged())
	d.Register(":FIELDS:", m.handleFields, dispatcher.Logged())

	// Initiative and turns
	d.Register(":INIT:", m.handleInit, dispatcher.Logged())
	d.Register(":INIT:MOD:", m.handleInitMod, dispatcher.Logged())
	d.Register(":ROLL:INIT:", m.handleRollInit, dispatcher.Logged())
	d.Register(":ROLL:", m.handleRoll, dispatcher.Logged())
	d.Register(":NEXT:", m.handleNext, dispatcher.Logged())
	d.Register(":PREV:", m.handlePrev, dispatcher.Logged())

	// Combat
	d.Register(":HIT:", m.handleHit, dispatcher.Logged())
	d.Register(":FIRE:", m.handleFire, dispatcher.Logged())
	d.Register(":RELOAD:", m.handleReload, dispatcher.Logged())
	d.Register(":STUN:", m.handleStun, dispatcher.Logged())
	d.Register(":CLEAR:", m.handleClear, dispatcher.Logged())

	// Stat block
	d.Register(":EDIT:", m.handleEdit, dispatcher.Logged())
	d.Register(":EXPAND:", m.handleExpand, dispatcher.Logged())
}

func (m *Manager) update(fn func(*tracker.Store, *parser.Parser) error) error {
	return m.svc.Update(context.Background(), fn)
}

// record returns the persisted form of one combatant after a change.
func record(st *tracker.Store, id string) (model.Record, error) {
	c, err := st.Get(id)
	if err != nil {
		return nil, err
	}
	return convert.CombatantToRecord(c), nil
}

func (m *Manager) handleAdd(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		params, err := p.ParseAddBlock(strings.Join(e.Args, "\n"))
		if err != nil {
			return err
		}
		c, err := st.Insert(params)
		if err != nil {
			return err
		}
		out = convert.CombatantToRecord(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add combatant: %w", err)
	}
	return out, nil
}

func (m *Manager) handleRemove(e dispatcher.Event) (any, error) {
	var out RemoveResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		out.ID = arg.ID
		return st.Remove(arg.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove combatant: %w", err)
	}
	return out, nil
}

func (m *Manager) handleCopy(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		c, err := st.Copy(arg.ID)
		if err != nil {
			return err
		}
		out = convert.CombatantToRecord(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy combatant: %w", err)
	}
	return out, nil
}

func (m *Manager) handleKind(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseKindArg(e.Args)
		if err != nil {
			return err
		}
		c, err := st.ChangeKind(arg.ID, arg.Kind)
		if err != nil {
			return err
		}
		out = convert.CombatantToRecord(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change type: %w", err)
	}
	return out, nil
}

func (m *Manager) handleList(dispatcher.Event) (any, error) {
	return m.svc.Records(), nil
}

func (m *Manager) handleFields(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%w: expected [type]", tracker.ErrInvalidInput)
	}
	kind, ok := core.ParseKind(strings.ToLower(strings.TrimSpace(e.Args[0])))
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", tracker.ErrInvalidInput, e.Args[0])
	}
	return tracker.Fields(kind), nil
}

func (m *Manager) handleInit(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseIntArg(e.Args)
		if err != nil {
			return err
		}
		if err := st.SetInitiative(arg.ID, arg.Value); err != nil {
			return err
		}
		out, err = record(st, arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set initiative: %w", err)
	}
	return out, nil
}

func (m *Manager) handleInitMod(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseIntArg(e.Args)
		if err != nil {
			return err
		}
		if err := st.SetInitiativeMod(arg.ID, arg.Value); err != nil {
			return err
		}
		out, err = record(st, arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set initiative modifier: %w", err)
	}
	return out, nil
}

// handleRollInit rerolls one combatant's initiative, or everybody's when
// no ID is given.
func (m *Manager) handleRollInit(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		var out []model.Record
		err := m.update(func(st *tracker.Store, _ *parser.Parser) error {
			st.RollAllInitiative()
			out = convert.CombatantsToRecords(st.Snapshot())
			return nil
		})
		return out, err
	}

	var out RollResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		out.ID = arg.ID
		out.Roll, err = st.RollInitiative(arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to roll initiative: %w", err)
	}
	return out, nil
}

func (m *Manager) handleRoll(dispatcher.Event) (any, error) {
	var out RollResult
	m.svc.View(func(st *tracker.Store) {
		out.Roll = st.RollD10()
	})
	return out, nil
}

func (m *Manager) handleNext(dispatcher.Event) (any, error) {
	return m.turn(1)
}

func (m *Manager) handlePrev(dispatcher.Event) (any, error) {
	return m.turn(-1)
}

// turn passes the turn forward or back. Wrapping past the top of the
// order starts a new round; wrapping back past it returns to the last one.
func (m *Manager) turn(step int) (TurnResult, error) {
	enc := m.svc.Encounter()
	var out TurnResult
	err := m.update(func(st *tracker.Store, _ *parser.Parser) error {
		before := actingIndex(st)
		var (
			c  core.Combatant
			ok bool
		)
		if step > 0 {
			c, ok = st.Next()
		} else {
			c, ok = st.Previous()
		}
		if !ok {
			out.Round = enc.Round()
			return nil
		}
		after := actingIndex(st)
		switch {
		case step > 0 && after <= before:
			enc.AdvanceRound()
		case step < 0 && after >= before:
			enc.RewindRound()
		}
		out.Acting = convert.CombatantToRecord(c)
		out.Round = enc.Round()
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}
	m.logger.Debug("Turn passed", "round", out.Round, "acting", enc.Acting())
	return out, nil
}

func actingIndex(st *tracker.Store) int {
	return slices.IndexFunc(st.Snapshot(), func(c core.Combatant) bool { return c.Acting })
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	var out HitResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		atk, err := p.ParseAttack(e.Args)
		if err != nil {
			return err
		}
		outcome, err := st.ApplyHit(atk.ID, atk.Request)
		if err != nil {
			return err
		}
		target, err := st.Get(atk.ID)
		if err != nil {
			return err
		}
		m.svc.RecordHit(context.Background(), target, outcome)
		out = newHitResult(target, outcome, atk.Rolled)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply hit: %w", err)
	}
	return out, nil
}

// handleFire takes [id] for one shot or [id, shots].
func (m *Manager) handleFire(e dispatcher.Event) (any, error) {
	args := e.Args
	if len(args) == 1 {
		args = []string{args[0], "1"}
	}
	var out AmmoResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseIntArg(args)
		if err != nil {
			return err
		}
		a, ok, err := st.ApplyAmmoDelta(arg.ID, arg.Value)
		if err != nil {
			return err
		}
		out = newAmmoResult(arg.ID, a, ok)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fire: %w", err)
	}
	return out, nil
}

func (m *Manager) handleReload(e dispatcher.Event) (any, error) {
	var out AmmoResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		a, ok, err := st.Reload(arg.ID)
		if err != nil {
			return err
		}
		out = newAmmoResult(arg.ID, a, ok)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reload: %w", err)
	}
	return out, nil
}

func (m *Manager) handleStun(e dispatcher.Event) (any, error) {
	var out StunResult
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		out.ID = arg.ID
		out.Stunned, err = st.ToggleStunned(arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle stun: %w", err)
	}
	return out, nil
}

func (m *Manager) handleClear(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseID(e.Args)
		if err != nil {
			return err
		}
		if err := st.ClearNotification(arg.ID); err != nil {
			return err
		}
		out, err = record(st, arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear notification: %w", err)
	}
	return out, nil
}

func (m *Manager) handleEdit(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseEdit(e.Args)
		if err != nil {
			return err
		}
		c, err := st.Edit(arg.ID, arg.Field, arg.Value)
		if err != nil {
			return err
		}
		out = convert.CombatantToRecord(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to edit combatant: %w", err)
	}
	return out, nil
}

func (m *Manager) handleExpand(e dispatcher.Event) (any, error) {
	var out model.Record
	err := m.update(func(st *tracker.Store, p *parser.Parser) error {
		arg, err := p.ParseExpand(e.Args)
		if err != nil {
			return err
		}
		if err := st.SetExpanded(arg.ID, arg.Expanded, arg.HitExpanded); err != nil {
			return err
		}
		out, err = record(st, arg.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update display state: %w", err)
	}
	return out, nil
}
