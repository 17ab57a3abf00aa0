package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/pkg/core"
)

var addLineRe = regexp.MustCompile(`^(\w+):\s*(.+)$`)

// ParseAddBlock reads a "key: value" block describing a new combatant:
//
//	type: mook
//	name: Tyger Claw
//	init: 14
//	headSp: 11
//
// Lines that are not "key: value" and keys that name no field are skipped.
func (p *Parser) ParseAddBlock(text string) (core.CreateParams, error) {
	var params core.CreateParams

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		m := addLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		key, raw := m[1], strings.TrimSpace(m[2])

		var value any = raw
		var decoded map[string]any
		if err := yaml.Unmarshal([]byte(key+": "+raw), &decoded); err == nil {
			if v, ok := decoded[key]; ok && v != nil {
				value = v
			}
		}

		if err := p.setAddField(&params, key, value); err != nil {
			return core.CreateParams{}, err
		}
	}
	return params, nil
}

func (p *Parser) setAddField(params *core.CreateParams, key string, value any) error {
	switch key {
	case "type":
		k, ok := core.ParseKind(fmt.Sprint(value))
		if !ok {
			return fmt.Errorf("%w: unknown type %v", tracker.ErrInvalidInput, value)
		}
		params.Kind = k
		return nil
	case "name":
		params.Name = fmt.Sprint(value)
		return nil
	}

	if loc, ok := armorLocation(key); ok {
		n, err := toInt(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if params.Armor == nil {
			params.Armor = make(map[core.Location]int)
		}
		params.Armor[loc] = n
		return nil
	}

	target := intTarget(params, key)
	if target == nil {
		p.logger.Debug("Ignoring unknown add field", "key", key)
		return nil
	}
	n, err := toInt(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = &n
	return nil
}

func intTarget(params *core.CreateParams, key string) **int {
	switch key {
	case "init":
		return &params.Initiative
	case "initMod":
		return &params.InitiativeMod
	case "stun":
		return &params.Stun
	case "deathSave":
		return &params.DeathSave
	case "btm":
		return &params.BTM
	case "numShots":
		return &params.Shots
	case "numShotsMax":
		return &params.ShotsMax
	case "mags":
		return &params.Mags
	case "sp":
		return &params.SP
	case "sdp":
		return &params.SDP
	case "dmgTaken":
		return &params.DamageTaken
	}
	return nil
}

// armorLocation maps "headSp", "faceSp", ... to the location.
func armorLocation(key string) (core.Location, bool) {
	name, ok := strings.CutSuffix(key, "Sp")
	if !ok {
		return "", false
	}
	for _, loc := range core.MookLocations {
		if string(loc) == name {
			return loc, true
		}
	}
	return "", false
}

// toInt accepts the scalar types yaml decodes numbers into, and numeric text.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			break
		}
		return int(math.Floor(n)), nil
	case string:
		return parseIntFromFloat(n)
	}
	return 0, fmt.Errorf("%w: %v is not a number", tracker.ErrInvalidInput, v)
}
