// Package location maps a d10 location roll to the body location it hits.
package location

import (
	"strconv"
	"strings"

	"github.com/redtable/combat-tracker/pkg/core"
)

// Resolve returns the location for roll, where 0 stands for a rolled 10.
// Rolls outside 0..9 hit the torso.
func Resolve(roll int) core.Location {
	switch roll {
	case 1:
		return core.LocHead
	case 2, 3, 4:
		return core.LocTorso
	case 5:
		return core.LocRightArm
	case 6:
		return core.LocLeftArm
	case 7, 8:
		return core.LocRightLeg
	case 9, 0:
		return core.LocLeftLeg
	default:
		return core.LocTorso
	}
}

// ResolveMook applies the face override on top of Resolve.
func ResolveMook(roll int, face bool) core.Location {
	loc := Resolve(roll)
	if loc == core.LocHead && face {
		return core.LocFace
	}
	return loc
}

// ParseRoll reads a location roll as typed by a player. "10" is accepted as 0.
// Anything that is not a number in range yields -1, which Resolve maps to torso.
func ParseRoll(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	if n == 10 {
		return 0
	}
	if n < 0 || n > 9 {
		return -1
	}
	return n
}
