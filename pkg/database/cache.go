package database

import (
	"container/list"
	"sync"

	"github.com/PancyStudios/SentinelGo/pkg/models"
)

const defaultGuildCacheSize = 256

// guildCache es un LRU en memoria delante de la tabla guilds.
// Guarda copias para que nadie mute la entrada cacheada.
//
// Cada invalidación avanza la generación del servidor; una lectura solo se
// cachea si la generación no cambió mientras se consultaba la fila.
type guildCache struct {
	entries map[string]*list.Element
	order   *list.List
	max     int
	mu      sync.Mutex

	seq      uint64
	gens     map[string]uint64
	purgedAt uint64
}

type guildEntry struct {
	key   string
	value models.GuildConfig
}

func newGuildCache(max int) *guildCache {
	return &guildCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		max:     max,
		gens:    make(map[string]uint64),
	}
}

// generation must be read before querying the row that is later passed to put
func (c *guildCache) generation(guildID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(guildID)
}

func (c *guildCache) generationLocked(guildID string) uint64 {
	return max(c.gens[guildID], c.purgedAt)
}

func (c *guildCache) get(guildID string) (*models.GuildConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[guildID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	cfg := elem.Value.(*guildEntry).value
	return &cfg, true
}

// put stores cfg unless the guild was invalidated after gen was read
func (c *guildCache) put(cfg *models.GuildConfig, gen uint64) bool {
	if cfg == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationLocked(cfg.GuildID) != gen {
		return false
	}

	if elem, ok := c.entries[cfg.GuildID]; ok {
		elem.Value.(*guildEntry).value = *cfg
		c.order.MoveToFront(elem)
		return true
	}

	c.entries[cfg.GuildID] = c.order.PushFront(&guildEntry{key: cfg.GuildID, value: *cfg})

	if c.max > 0 && c.order.Len() > c.max {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.entries, oldest.Value.(*guildEntry).key)
			c.order.Remove(oldest)
		}
	}
	return true
}

func (c *guildCache) invalidate(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.gens[guildID] = c.seq
	if elem, ok := c.entries[guildID]; ok {
		c.order.Remove(elem)
		delete(c.entries, guildID)
	}
}

func (c *guildCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.purgedAt = c.seq
	clear(c.gens)
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *guildCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
