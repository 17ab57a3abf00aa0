package encounter

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContext(t *testing.T) {
	c := NewContext("")
	assert.Equal(t, "Encounter", c.Name())
	assert.Equal(t, 1, c.Round())
	assert.Empty(t, c.Acting())

	assert.Equal(t, "Warehouse", NewContext("Warehouse").Name())
}

func TestRounds(t *testing.T) {
	c := NewContext("Warehouse")

	assert.Equal(t, 2, c.AdvanceRound())
	assert.Equal(t, 3, c.AdvanceRound())
	assert.Equal(t, 2, c.RewindRound())
	assert.Equal(t, 1, c.RewindRound())
	assert.Equal(t, 1, c.RewindRound())
}

func TestLogAttrs(t *testing.T) {
	c := NewContext("Warehouse")
	assert.Equal(t, []slog.Attr{slog.String("encounter", "Warehouse"), slog.Int("round", 1)}, c.LogAttrs())

	c.SetActing("Ganger")
	attrs := c.LogAttrs()
	assert.Len(t, attrs, 3)
	assert.Equal(t, slog.String("acting", "Ganger"), attrs[2])
}

func TestContext_ConcurrentAccess(t *testing.T) {
	c := NewContext("Warehouse")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); c.AdvanceRound() }()
		go func() { defer wg.Done(); _ = c.LogAttrs() }()
	}
	wg.Wait()
	assert.Equal(t, 21, c.Round())
}
