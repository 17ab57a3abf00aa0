package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/internal/util"
	"github.com/redtable/combat-tracker/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.7") and floors it.
// Values typed into a form often arrive with a decimal part.
func parseIntFromFloat(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", tracker.ErrInvalidInput, s)
	}
	return int(math.Floor(f)), nil
}

// requireArgs checks that data holds at least n arguments.
func requireArgs(data []string, n int, usage string) error {
	if len(data) < n {
		return fmt.Errorf("%w: expected %s", tracker.ErrInvalidInput, usage)
	}
	return nil
}

// Parser provides pure []string -> command struct conversion.
// Dice expressions in damage arguments are rolled with its roller.
type Parser struct {
	logger *slog.Logger
	roller *dice.Roller
}

// NewParser creates a new parser
func NewParser(logger *slog.Logger, roller *dice.Roller) *Parser {
	if roller == nil {
		roller = dice.New(0)
	}
	return &Parser{
		logger: logger,
		roller: roller,
	}
}

// IDArg is a command that targets one combatant.
type IDArg struct {
	ID string
}

// ParseID parses [id].
func (p *Parser) ParseID(data []string) (IDArg, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 1, "[id]"); err != nil {
		return IDArg{}, err
	}
	if data[0] == "" {
		return IDArg{}, fmt.Errorf("%w: combatant id", tracker.ErrInvalidInput)
	}
	return IDArg{ID: data[0]}, nil
}

// IntArg is a command that sets one number on a combatant.
type IntArg struct {
	ID    string
	Value int
}

// ParseIntArg parses [id, number] as used by initiative and fire commands.
func (p *Parser) ParseIntArg(data []string) (IntArg, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 2, "[id, number]"); err != nil {
		return IntArg{}, err
	}
	n, err := parseIntFromFloat(data[1])
	if err != nil {
		return IntArg{}, err
	}
	return IntArg{ID: data[0], Value: n}, nil
}

// EditArg sets one field from user input.
type EditArg struct {
	ID    string
	Field string
	Value string
}

// ParseEdit parses [id, field, value...]. A value made of several
// arguments is joined back with spaces.
func (p *Parser) ParseEdit(data []string) (EditArg, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 3, "[id, field, value]"); err != nil {
		return EditArg{}, err
	}
	return EditArg{
		ID:    data[0],
		Field: data[1],
		Value: strings.Join(data[2:], " "),
	}, nil
}

// KindArg switches a combatant's archetype.
type KindArg struct {
	ID   string
	Kind core.Kind
}

// ParseKindArg parses [id, type].
func (p *Parser) ParseKindArg(data []string) (KindArg, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 2, "[id, type]"); err != nil {
		return KindArg{}, err
	}
	kind, ok := core.ParseKind(strings.ToLower(data[1]))
	if !ok {
		return KindArg{}, fmt.Errorf("%w: unknown type %q", tracker.ErrInvalidInput, data[1])
	}
	return KindArg{ID: data[0], Kind: kind}, nil
}

// ExpandArg carries the display expansion flags of a combatant.
type ExpandArg struct {
	ID          string
	Expanded    bool
	HitExpanded bool
}

// ParseExpand parses [id, expanded, hitExpanded?].
func (p *Parser) ParseExpand(data []string) (ExpandArg, error) {
	data = util.CleanArgs(data)
	if err := requireArgs(data, 2, "[id, expanded, hitExpanded]"); err != nil {
		return ExpandArg{}, err
	}
	out := ExpandArg{ID: data[0]}
	var err error
	if out.Expanded, err = strconv.ParseBool(data[1]); err != nil {
		return ExpandArg{}, fmt.Errorf("%w: %q is not true or false", tracker.ErrInvalidInput, data[1])
	}
	if len(data) > 2 {
		if out.HitExpanded, err = strconv.ParseBool(data[2]); err != nil {
			return ExpandArg{}, fmt.Errorf("%w: %q is not true or false", tracker.ErrInvalidInput, data[2])
		}
	}
	return out, nil
}
