package encounter

import (
	"log/slog"
	"sync"
)

// Context holds the running encounter's name, round and acting combatant.
// It is read by the log handler on every record, so access is locked.
type Context struct {
	mu     sync.RWMutex
	name   string
	round  int
	acting string
}

// NewContext starts an encounter at round 1.
func NewContext(name string) *Context {
	if name == "" {
		name = "Encounter"
	}
	return &Context{name: name, round: 1}
}

func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Context) Round() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

func (c *Context) Acting() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acting
}

// SetActing records whose turn it is.
func (c *Context) SetActing(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acting = name
}

// AdvanceRound moves to the next round when the turn wraps to the top.
func (c *Context) AdvanceRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round++
	return c.round
}

// RewindRound steps back a round, never below 1.
func (c *Context) RewindRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round > 1 {
		c.round--
	}
	return c.round
}

// LogAttrs is a logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := []slog.Attr{
		slog.String("encounter", c.name),
		slog.Int("round", c.round),
	}
	if c.acting != "" {
		attrs = append(attrs, slog.String("acting", c.acting))
	}
	return attrs
}
