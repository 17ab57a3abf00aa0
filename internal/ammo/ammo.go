// Package ammo implements the shot counter and magazine reloads.
package ammo

import "github.com/redtable/combat-tracker/pkg/core"

// Fire spends n shots. It does nothing and returns false unless at least n
// shots remain.
func Fire(a *core.Ammo, n int) bool {
	if n < 0 || a.Shots < n {
		return false
	}
	a.Shots -= n
	Clamp(a)
	return true
}

// Reload swaps in a fresh magazine if one is left.
func Reload(a *core.Ammo) bool {
	if a.Mags <= 0 {
		return false
	}
	a.Mags--
	a.Shots = a.ShotsMax
	Clamp(a)
	return true
}

// Clamp forces the shot count into [0, ShotsMax] and reports whether it
// had to change anything.
func Clamp(a *core.Ammo) bool {
	before := a.Shots
	if a.ShotsMax < 0 {
		a.ShotsMax = 0
	}
	a.Shots = min(max(a.Shots, 0), a.ShotsMax)
	return a.Shots != before
}
