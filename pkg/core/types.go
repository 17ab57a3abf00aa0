// pkg/core/types.go
package core

// Kind is the archetype tag of a combatant.
type Kind string

const (
	KindMook   Kind = "mook"
	KindPlayer Kind = "player"
	KindDrone  Kind = "drone"
	KindRobot  Kind = "robot"
)

// ParseKind returns the Kind for s, or false if s names no archetype.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMook, KindPlayer, KindDrone, KindRobot:
		return Kind(s), true
	}
	return "", false
}

// Location is a body location that can be hit.
type Location string

const (
	LocHead     Location = "head"
	LocFace     Location = "face"
	LocTorso    Location = "torso"
	LocRightArm Location = "rightArm"
	LocLeftArm  Location = "leftArm"
	LocRightLeg Location = "rightLeg"
	LocLeftLeg  Location = "leftLeg"
)

// MookLocations lists every armored location of a mook in display order.
var MookLocations = []Location{LocHead, LocFace, LocTorso, LocRightArm, LocLeftArm, LocRightLeg, LocLeftLeg}

// RobotParts lists the robot parts in canonical notification order.
var RobotParts = []Location{LocHead, LocTorso, LocRightArm, LocLeftArm, LocRightLeg, LocLeftLeg}

// IsHead reports whether l takes the head multiplier.
func (l Location) IsHead() bool {
	return l == LocHead || l == LocFace
}

// Title returns the display name used in notifications, e.g. "Right Arm".
func (l Location) Title() string {
	switch l {
	case LocHead:
		return "Head"
	case LocFace:
		return "Face"
	case LocTorso:
		return "Torso"
	case LocRightArm:
		return "Right Arm"
	case LocLeftArm:
		return "Left Arm"
	case LocRightLeg:
		return "Right Leg"
	case LocLeftLeg:
		return "Left Leg"
	}
	return string(l)
}

// WoundState is a severity label derived from a mook's cumulative damage.
type WoundState string

const (
	Healthy  WoundState = "Healthy"
	Light    WoundState = "Light"
	Serious  WoundState = "Serious"
	Critical WoundState = "Critical"
	Mortal0  WoundState = "Mortal 0"
	Mortal1  WoundState = "Mortal 1"
	Mortal2  WoundState = "Mortal 2"
	Mortal3  WoundState = "Mortal 3"
	Mortal4  WoundState = "Mortal 4"
	Mortal5  WoundState = "Mortal 5"
	Mortal6  WoundState = "Mortal 6"
	Dead     WoundState = "Dead"
)

// WoundStates lists every wound state from least to most severe.
var WoundStates = []WoundState{
	Healthy, Light, Serious, Critical,
	Mortal0, Mortal1, Mortal2, Mortal3, Mortal4, Mortal5, Mortal6,
	Dead,
}

// Severity returns the index of w in WoundStates, or -1 for an unknown label.
func (w WoundState) Severity() int {
	for i, s := range WoundStates {
		if s == w {
			return i
		}
	}
	return -1
}

// HitType selects how a mook takes damage.
type HitType string

const (
	HitLethal      HitType = "lethal"
	HitNonLethal   HitType = "nonLethal"
	HitHalfAndHalf HitType = "halfAndHalf"
)

// ParseHitType accepts the canonical names and the short forms used in commands.
func ParseHitType(s string) (HitType, bool) {
	switch s {
	case "", "lethal":
		return HitLethal, true
	case "nonLethal", "nonlethal", "non-lethal":
		return HitNonLethal, true
	case "halfAndHalf", "half", "half-and-half":
		return HitHalfAndHalf, true
	}
	return "", false
}

// Notification labels shown by the rendering layer.
const (
	NoteNone          = "None"
	NoteDead          = "Dead!"
	NoteDismemberment = "Dismemberment!"
	NoteStunSave      = "Roll Stun Save"
	NoteDeathSave     = "Roll Death Save"
	NoteDestroyed     = "Destroyed!"
)

// Drone condition labels.
const (
	ConditionFunctional = "Functional"
	ConditionBattered   = "Battered"
	ConditionDamaged    = "Damaged"
	ConditionDestroyed  = "Destroyed"
)
