// Package verification runs the button challenge that grants the verified
// role. Each challenge ends in exactly one outcome: verified, failed or expired.
package verification

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is how long a challenge stays answerable
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotConfigured is returned when the guild has no verification channel and role
	ErrNotConfigured = errors.New("verification is not configured, an administrator must run /setup-verification")
	// ErrAlreadyVerified is returned when the member already holds the role
	ErrAlreadyVerified = errors.New("you are already verified")
)

// WrongChannelError is returned outside the configured channel
type WrongChannelError struct {
	ChannelID string
}

func (e *WrongChannelError) Error() string {
	return fmt.Sprintf("verification is only available in <#%s>", e.ChannelID)
}

// State of a challenge
type State string

const (
	StateIssued   State = "issued"
	StateVerified State = "verified"
	StateFailed   State = "failed"
	StateExpired  State = "expired"
)

// ConfigStore reads the guild verification settings
type ConfigStore interface {
	GetVerificationConfig(ctx context.Context, guildID string) (*models.VerificationConfig, error)
}

// RoleGranter adds a role to a member
type RoleGranter interface {
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}

// Publisher receives every terminal outcome
type Publisher interface {
	PublishVerification(guildID, userID string, state State) error
}

// Challenge is a snapshot of one issued challenge
type Challenge struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	RoleID    string
	Correct   Option
	Order     []Option
	State     State
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Outcome is the result of the first valid click
type Outcome struct {
	Challenge Challenge
	Selected  Option
	State     State
	Err       error
}

// IssueRequest describes who asks for a challenge and where
type IssueRequest struct {
	GuildID     string
	ChannelID   string
	UserID      string
	MemberRoles []string
}

type challengeKey struct {
	GuildID string
	UserID  string
}

type challenge struct {
	Challenge
	timer    *time.Timer
	onExpire func(Challenge)
}

func (c *challenge) snapshot() Challenge {
	s := c.Challenge
	s.Order = append([]Option(nil), c.Order...)
	return s
}

// Manager owns the outstanding challenges
type Manager struct {
	store     ConfigStore
	granter   RoleGranter
	publisher Publisher
	timeout   time.Duration

	mu         sync.Mutex
	rng        *rand.Rand
	challenges map[challengeKey]*challenge
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithPublisher forwards outcomes to p
func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

// WithRand replaces the random source used to pick and order options
func WithRand(r *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rng = r }
}

// NewManager creates a Manager. A zero timeout uses DefaultTimeout.
func NewManager(store ConfigStore, granter RoleGranter, timeout time.Duration, opts ...ManagerOption) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{
		store:      store,
		granter:    granter,
		timeout:    timeout,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		challenges: make(map[challengeKey]*challenge),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the answer window
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Issue starts a challenge for the member. onExpire runs when the window
// closes without an answer, or when a newer challenge replaces this one.
func (m *Manager) Issue(ctx context.Context, req IssueRequest, onExpire func(Challenge)) (Challenge, error) {
	cfg, err := m.store.GetVerificationConfig(ctx, req.GuildID)
	if errors.Is(err, database.ErrNotFound) {
		return Challenge{}, ErrNotConfigured
	}
	if err != nil {
		return Challenge{}, err
	}
	if req.ChannelID != cfg.ChannelID {
		return Challenge{}, &WrongChannelError{ChannelID: cfg.ChannelID}
	}
	if lo.Contains(req.MemberRoles, cfg.RoleID) {
		return Challenge{}, ErrAlreadyVerified
	}

	key := challengeKey{req.GuildID, req.UserID}
	now := time.Now()

	m.mu.Lock()
	order := append([]Option(nil), Options...)
	m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	c := &challenge{
		Challenge: Challenge{
			ID:        uuid.NewString(),
			GuildID:   req.GuildID,
			ChannelID: req.ChannelID,
			UserID:    req.UserID,
			RoleID:    cfg.RoleID,
			Correct:   Options[m.rng.Intn(len(Options))],
			Order:     order,
			State:     StateIssued,
			IssuedAt:  now,
			ExpiresAt: now.Add(m.timeout),
		},
		onExpire: onExpire,
	}

	previous := m.challenges[key]
	var replaced *Challenge
	if previous != nil && previous.State == StateIssued {
		previous.timer.Stop()
		previous.State = StateExpired
		snap := previous.snapshot()
		replaced = &snap
	}
	m.challenges[key] = c
	c.timer = time.AfterFunc(m.timeout, func() { m.expire(key, c) })
	snapshot := c.snapshot()
	m.mu.Unlock()

	if replaced != nil {
		m.finish(*replaced, StateExpired)
		if previous.onExpire != nil {
			go previous.onExpire(*replaced)
		}
	}

	m.log(snapshot).Debug("Desafío de verificación emitido", "Verification")
	return snapshot, nil
}

func (m *Manager) expire(key challengeKey, c *challenge) {
	m.mu.Lock()
	if c.State != StateIssued {
		m.mu.Unlock()
		return
	}
	c.State = StateExpired
	if m.challenges[key] == c {
		delete(m.challenges, key)
	}
	snapshot := c.snapshot()
	m.mu.Unlock()

	m.finish(snapshot, StateExpired)
	if c.onExpire != nil {
		c.onExpire(snapshot)
	}
}

// Select applies a button click. It returns false when the click does not
// belong to the open challenge of the clicking user, including buttons left
// over from a replaced challenge; such clicks change nothing.
func (m *Manager) Select(ctx context.Context, guildID, clickerID, customID string) (Outcome, bool) {
	ref, err := ParseCustomID(customID)
	if err != nil || ref.UserID != clickerID {
		return Outcome{}, false
	}
	option := ref.Option

	key := challengeKey{guildID, ref.UserID}

	m.mu.Lock()
	c, ok := m.challenges[key]
	if !ok || c.State != StateIssued || c.ID != ref.ChallengeID {
		m.mu.Unlock()
		return Outcome{}, false
	}
	c.timer.Stop()
	delete(m.challenges, key)

	if option != c.Correct {
		c.State = StateFailed
		snapshot := c.snapshot()
		m.mu.Unlock()

		m.finish(snapshot, StateFailed)
		return Outcome{Challenge: snapshot, Selected: option, State: StateFailed}, true
	}

	c.State = StateVerified
	snapshot := c.snapshot()
	m.mu.Unlock()

	if err := m.granter.GrantRole(ctx, c.GuildID, c.UserID, c.RoleID); err != nil {
		m.mu.Lock()
		c.State = StateFailed
		snapshot = c.snapshot()
		m.mu.Unlock()

		m.log(snapshot).Error("No se pudo asignar el rol de verificación: "+err.Error(), "Verification")
		m.finish(snapshot, StateFailed)
		return Outcome{Challenge: snapshot, Selected: option, State: StateFailed, Err: err}, true
	}

	m.finish(snapshot, StateVerified)
	return Outcome{Challenge: snapshot, Selected: option, State: StateVerified}, true
}

// Pending returns the open challenge of a member, if any
func (m *Manager) Pending(guildID, userID string) (Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[challengeKey{guildID, userID}]
	if !ok || c.State != StateIssued {
		return Challenge{}, false
	}
	return c.snapshot(), true
}

func (m *Manager) finish(c Challenge, state State) {
	m.log(c).Info("Verificación finalizada: "+string(state), "Verification")
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishVerification(c.GuildID, c.UserID, state); err != nil {
		m.log(c).Debug("No se pudo publicar el resultado: "+err.Error(), "Verification")
	}
}

func (m *Manager) log(c Challenge) *logger.Entry {
	return logger.WithFields(logrus.Fields{"guild": c.GuildID, "user": c.UserID, "challenge": c.ID})
}
