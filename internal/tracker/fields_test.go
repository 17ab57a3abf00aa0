package tracker

import (
	"testing"

	"github.com/redtable/combat-tracker/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdit_DamageRecomputesWound(t *testing.T) {
	s := newTestStore()
	a, _ := s.Insert(core.CreateParams{})

	c, err := s.Edit(a.ID, "dmgTaken", "13.7")
	require.NoError(t, err)

	m := c.Mook()
	assert.Equal(t, 13, m.DamageTaken)
	assert.Equal(t, core.Mortal0, m.WoundState)
	assert.Equal(t, -3, m.StunPenalty)
	assert.Equal(t, 0, m.DeathSavePenalty)
}

func TestEdit_ShotsClamped(t *testing.T) {
	s := newTestStore()
	a, _ := s.Insert(core.CreateParams{})

	c, err := s.Edit(a.ID, "numShots", "99")
	require.NoError(t, err)
	assert.Equal(t, 35, c.Mook().Shots)

	c, err = s.Edit(a.ID, "numShots", "-3")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Mook().Shots)
}

func TestEdit_InitResorts(t *testing.T) {
	s := newTestStore()
	a, _ := s.Insert(core.CreateParams{Name: "A", Initiative: intPtr(1)})
	_, _ = s.Insert(core.CreateParams{Name: "B", Initiative: intPtr(5)})

	_, err := s.Edit(a.ID, "init", "12")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(s))
}

func TestEdit_Robot(t *testing.T) {
	s := newTestStore()
	r, _ := s.Insert(core.CreateParams{Kind: core.KindRobot})

	c, err := s.Edit(r.ID, "leftArmDmgTaken", "25")
	require.NoError(t, err)
	assert.Equal(t, []string{"Left Arm disabled"}, c.Robot().Notifications)

	c, err = s.Edit(r.ID, "leftArmDmgTaken", "0")
	require.NoError(t, err)
	assert.Empty(t, c.Robot().Notifications)
}

func TestEdit_Drone(t *testing.T) {
	s := newTestStore()
	d, _ := s.Insert(core.CreateParams{Kind: core.KindDrone})

	c, err := s.Edit(d.ID, "dmgTaken", "10")
	require.NoError(t, err)
	assert.Equal(t, core.ConditionFunctional, c.Drone().Condition, "no pool configured")

	c, err = s.Edit(d.ID, "sdp", "12")
	require.NoError(t, err)
	assert.Equal(t, core.ConditionDamaged, c.Drone().Condition)
}

func TestEdit_Rejected(t *testing.T) {
	s := newTestStore()
	a, _ := s.Insert(core.CreateParams{})
	p, _ := s.Insert(core.CreateParams{Kind: core.KindPlayer})

	_, err := s.Edit(a.ID, "woundState", "Dead")
	assert.ErrorIs(t, err, ErrReadOnlyField)

	_, err = s.Edit(a.ID, "sdp", "4")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = s.Edit(p.ID, "stun", "4")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = s.Edit(a.ID, "stun", "lots")
	assert.ErrorIs(t, err, ErrInvalidInput)

	c, _ := s.Get(a.ID)
	assert.Equal(t, 6, c.Mook().Stun)
}

func TestFields(t *testing.T) {
	keys := func(k core.Kind) []string {
		var out []string
		for _, f := range Fields(k) {
			out = append(out, f.Key)
		}
		return out
	}

	assert.Equal(t, []string{"name", "init", "initMod"}, keys(core.KindPlayer))
	assert.Contains(t, keys(core.KindMook), "faceSp")
	assert.NotContains(t, keys(core.KindRobot), "faceSp")
	assert.Contains(t, keys(core.KindRobot), "torsoDmgTaken")
	assert.Contains(t, keys(core.KindDrone), "condition")

	for _, f := range Fields(core.KindMook) {
		if f.Key == "skillPenalty" {
			assert.True(t, f.ReadOnly)
		}
	}
}

func TestFieldValue(t *testing.T) {
	s := newTestStore()
	a, _ := s.Insert(core.CreateParams{Name: "Ganger"})

	v, err := FieldValue(a, "name")
	require.NoError(t, err)
	assert.Equal(t, "Ganger", v)

	v, err = FieldValue(a, "headSp")
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	_, err = FieldValue(a, "nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}
