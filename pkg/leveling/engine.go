// Package leveling awards message xp and detects level ups.
package leveling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/models"
)

const (
	DefaultXPMin      = 15
	DefaultXPMax      = 25
	DefaultXPPerLevel = 100
)

// Store is the persistence the engine relies on
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	AddXP(ctx context.Context, userID, guildID string, amount, xpPerLevel int64) (*models.UserRecord, int64, error)
}

// Config holds the xp rules
type Config struct {
	XPMin      int64
	XPMax      int64
	XPPerLevel int64
}

// Gain describes the xp awarded for one message
type Gain struct {
	Amount        int64
	Record        *models.UserRecord
	PreviousLevel int64
	LevelUp       bool
}

// Engine awards xp per message
type Engine struct {
	store Store
	cfg   Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Engine
type Option func(*Engine)

// WithRand replaces the random source used to draw xp
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// NewEngine creates an Engine; zero values in cfg take the defaults
func NewEngine(store Store, cfg Config, opts ...Option) *Engine {
	if cfg.XPPerLevel <= 0 {
		cfg.XPPerLevel = DefaultXPPerLevel
	}
	if cfg.XPMin <= 0 && cfg.XPMax <= 0 {
		cfg.XPMin, cfg.XPMax = DefaultXPMin, DefaultXPMax
	}
	if cfg.XPMax < cfg.XPMin {
		cfg.XPMax = cfg.XPMin
	}
	e := &Engine{
		store: store,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// XPPerLevel returns the xp needed per level
func (e *Engine) XPPerLevel() int64 {
	return e.cfg.XPPerLevel
}

func (e *Engine) draw() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.XPMin + e.rng.Int63n(e.cfg.XPMax-e.cfg.XPMin+1)
}

// Process awards xp for one message. It returns nil when leveling is
// disabled for the guild.
func (e *Engine) Process(ctx context.Context, guildID, userID string) (*Gain, error) {
	cfg, err := e.store.GetGuildConfig(ctx, guildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if cfg != nil && !cfg.LevelingEnabled {
		return nil, nil
	}

	amount := e.draw()
	record, prev, err := e.store.AddXP(ctx, userID, guildID, amount, e.cfg.XPPerLevel)
	if err != nil {
		return nil, err
	}

	return &Gain{
		Amount:        amount,
		Record:        record,
		PreviousLevel: prev,
		LevelUp:       record.Level > prev,
	}, nil
}

// Progress returns the xp earned inside the current level and the xp the
// level spans.
func (e *Engine) Progress(xp int64) (current, needed int64) {
	return xp % e.cfg.XPPerLevel, e.cfg.XPPerLevel
}

// LevelUpMessage is posted when a member reaches a new level
func LevelUpMessage(userID string, level int64) string {
	return fmt.Sprintf("🎉 Congratulations <@%s>! You've reached **Level %d**!", userID, level)
}

// ProgressBar renders a ten-slot bar
func ProgressBar(current, needed int64) string {
	const slots = 10
	filled := 0
	if needed > 0 {
		filled = int(current * slots / needed)
	}
	bar := make([]rune, slots)
	for i := range bar {
		if i < filled {
			bar[i] = '▰'
		} else {
			bar[i] = '▱'
		}
	}
	return string(bar)
}
