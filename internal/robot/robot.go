// Package robot derives per-part status notifications for robots.
package robot

import (
	"slices"
	"strings"

	"github.com/redtable/combat-tracker/pkg/core"
)

// Damage thresholds. The torso is sturdier than the limbs and head.
const (
	torsoDisabled  = 30
	torsoDestroyed = 40
	partDisabled   = 20
	partDestroyed  = 30
)

// PartStatus returns the notification for part at dmg damage, or "" when
// the part is still working.
func PartStatus(part core.Location, dmg int) string {
	disabled, destroyed := partDisabled, partDestroyed
	if part == core.LocTorso {
		disabled, destroyed = torsoDisabled, torsoDestroyed
	}
	switch {
	case dmg >= destroyed:
		return part.Title() + " destroyed"
	case dmg >= disabled:
		return part.Title() + " disabled"
	}
	return ""
}

// partOf returns the part a notification refers to.
func partOf(note string) (core.Location, bool) {
	for _, p := range core.RobotParts {
		if strings.HasPrefix(note, p.Title()+" ") {
			return p, true
		}
	}
	return "", false
}

// SortNotifications orders notes head, torso, right arm, left arm, right leg,
// left leg. Notes naming no part go last.
func SortNotifications(notes []string) {
	rank := func(n string) int {
		p, ok := partOf(n)
		if !ok {
			return len(core.RobotParts)
		}
		return slices.Index(core.RobotParts, p)
	}
	slices.SortStableFunc(notes, func(a, b string) int {
		return rank(a) - rank(b)
	})
}

// UpdateNotifications replaces the entry for part with status (dropping it
// when status is empty) and returns the re-sorted set.
func UpdateNotifications(notes []string, part core.Location, status string) []string {
	out := make([]string, 0, len(notes)+1)
	for _, n := range notes {
		if p, ok := partOf(n); ok && p == part {
			continue
		}
		out = append(out, n)
	}
	if status != "" {
		out = append(out, status)
	}
	SortNotifications(out)
	return out
}

// Refresh recomputes the status of part from r's accumulator.
func Refresh(r *core.RobotStats, part core.Location) {
	r.Notifications = UpdateNotifications(r.Notifications, part, PartStatus(part, r.Damage[part]))
}

// RefreshAll rebuilds every part status, used after direct edits.
func RefreshAll(r *core.RobotStats) {
	for _, p := range core.RobotParts {
		Refresh(r, p)
	}
}
