package discord

import (
	"sync"
	"time"
)

type cooldownKey struct {
	Command string
	UserID  string
}

// Cooldowns tracks per-user, per-command cooldown windows in memory.
// Entries expire with a single-shot timer and do not survive a restart.
type Cooldowns struct {
	mu      sync.Mutex
	entries map[cooldownKey]time.Time
	now     func() time.Time
}

// NewCooldowns creates an empty cooldown table
func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		entries: make(map[cooldownKey]time.Time),
		now:     time.Now,
	}
}

// Remaining returns how long the user must still wait, zero when free
func (c *Cooldowns) Remaining(command, userID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires, ok := c.entries[cooldownKey{command, userID}]
	if !ok {
		return 0
	}
	left := expires.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return left
}

// Start records a new window for the user
func (c *Cooldowns) Start(command, userID string, d time.Duration) {
	if d <= 0 {
		return
	}
	key := cooldownKey{command, userID}
	expires := c.now().Add(d)

	c.mu.Lock()
	c.entries[key] = expires
	c.mu.Unlock()

	time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.entries[key].Equal(expires) {
			delete(c.entries, key)
		}
	})
}

// Len returns the number of tracked windows
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
