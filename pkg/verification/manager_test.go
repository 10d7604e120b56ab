package verification

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigs map[string]*models.VerificationConfig

func (f fakeConfigs) GetVerificationConfig(_ context.Context, guildID string) (*models.VerificationConfig, error) {
	if c, ok := f[guildID]; ok {
		return c, nil
	}
	return nil, database.ErrNotFound
}

type fakeGranter struct {
	mu     sync.Mutex
	grants []string
	err    error
}

func (g *fakeGranter) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants = append(g.grants, guildID+"/"+userID+"/"+roleID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	states []State
}

func (p *fakePublisher) PublishVerification(_, _ string, state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	return nil
}

func newTestManager(timeout time.Duration) (*Manager, *fakeGranter, *fakePublisher) {
	configs := fakeConfigs{"g1": {GuildID: "g1", ChannelID: "verify", RoleID: "verified"}}
	granter := &fakeGranter{}
	pub := &fakePublisher{}
	m := NewManager(configs, granter, timeout, WithPublisher(pub), WithRand(rand.New(rand.NewSource(1))))
	return m, granter, pub
}

func issue(t *testing.T, m *Manager, onExpire func(Challenge)) Challenge {
	t.Helper()
	c, err := m.Issue(context.Background(), IssueRequest{GuildID: "g1", ChannelID: "verify", UserID: "u1"}, onExpire)
	require.NoError(t, err)
	return c
}

func wrongOption(c Challenge) Option {
	for _, o := range Options {
		if o != c.Correct {
			return o
		}
	}
	return ""
}

func TestIssueRefusals(t *testing.T) {
	m, _, _ := newTestManager(time.Minute)
	ctx := context.Background()

	_, err := m.Issue(ctx, IssueRequest{GuildID: "other", ChannelID: "verify", UserID: "u1"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = m.Issue(ctx, IssueRequest{GuildID: "g1", ChannelID: "general", UserID: "u1"}, nil)
	var wrong *WrongChannelError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "verify", wrong.ChannelID)
	assert.Contains(t, err.Error(), "<#verify>")

	_, err = m.Issue(ctx, IssueRequest{GuildID: "g1", ChannelID: "verify", UserID: "u1", MemberRoles: []string{"x", "verified"}}, nil)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	_, ok := m.Pending("g1", "u1")
	assert.False(t, ok, "refusals issue nothing")
}

func TestIssueShufflesAllOptions(t *testing.T) {
	m, _, _ := newTestManager(time.Minute)
	c := issue(t, m, nil)

	assert.ElementsMatch(t, Options, c.Order)
	assert.Contains(t, Options, c.Correct)
	assert.Equal(t, StateIssued, c.State)
	assert.Equal(t, time.Minute, c.ExpiresAt.Sub(c.IssuedAt))
	assert.NotEmpty(t, c.ID)
}

func TestCorrectSelectionVerifies(t *testing.T) {
	m, granter, pub := newTestManager(time.Minute)
	c := issue(t, m, func(Challenge) { t.Error("must not expire") })

	out, ok := m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c))
	require.True(t, ok)
	assert.Equal(t, StateVerified, out.State)
	assert.Equal(t, []string{"g1/u1/verified"}, granter.grants)
	assert.Equal(t, []State{StateVerified}, pub.states)

	_, ok = m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c))
	assert.False(t, ok, "a second click has no effect")
	assert.Len(t, granter.grants, 1)
}

func TestWrongSelectionFails(t *testing.T) {
	m, granter, _ := newTestManager(time.Minute)
	c := issue(t, m, nil)

	out, ok := m.Select(context.Background(), "g1", "u1", CustomID(wrongOption(c), c))
	require.True(t, ok)
	assert.Equal(t, StateFailed, out.State)
	assert.NoError(t, out.Err)
	assert.Empty(t, granter.grants)

	_, ok = m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c))
	assert.False(t, ok, "failed challenges are terminal")
}

func TestOtherUsersCannotAnswer(t *testing.T) {
	m, granter, _ := newTestManager(time.Minute)
	c := issue(t, m, nil)

	_, ok := m.Select(context.Background(), "g1", "intruder", CustomID(c.Correct, c))
	assert.False(t, ok)
	assert.Empty(t, granter.grants)

	pending, ok := m.Pending("g1", "u1")
	require.True(t, ok)
	assert.Equal(t, StateIssued, pending.State)
}

func TestGrantFailureFails(t *testing.T) {
	m, granter, _ := newTestManager(time.Minute)
	granter.err = errors.New("missing permissions")
	c := issue(t, m, nil)

	out, ok := m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c))
	require.True(t, ok)
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorContains(t, out.Err, "missing permissions")
}

func TestExpiry(t *testing.T) {
	m, granter, pub := newTestManager(20 * time.Millisecond)
	expired := make(chan Challenge, 1)
	c := issue(t, m, func(c Challenge) { expired <- c })

	select {
	case got := <-expired:
		assert.Equal(t, StateExpired, got.State)
		assert.Equal(t, c.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("challenge did not expire")
	}

	_, ok := m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c))
	assert.False(t, ok, "late clicks are ignored")
	assert.Empty(t, granter.grants)
	assert.Equal(t, []State{StateExpired}, pub.states)
}

func TestReissueExpiresPrevious(t *testing.T) {
	m, _, _ := newTestManager(time.Minute)
	expired := make(chan Challenge, 1)
	first := issue(t, m, func(c Challenge) { expired <- c })
	second := issue(t, m, nil)

	select {
	case got := <-expired:
		assert.Equal(t, first.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("previous challenge was not expired")
	}

	pending, ok := m.Pending("g1", "u1")
	require.True(t, ok)
	assert.Equal(t, second.ID, pending.ID)
}

func TestReissueIgnoresButtonsOfReplacedChallenge(t *testing.T) {
	m, granter, _ := newTestManager(time.Minute)
	first := issue(t, m, nil)
	second := issue(t, m, nil)

	for _, o := range Options {
		_, ok := m.Select(context.Background(), "g1", "u1", CustomID(o, first))
		assert.False(t, ok, "button %s of the replaced challenge", o)
	}
	assert.Empty(t, granter.grants)

	pending, ok := m.Pending("g1", "u1")
	require.True(t, ok)
	assert.Equal(t, second.ID, pending.ID)
	assert.Equal(t, StateIssued, pending.State)

	out, ok := m.Select(context.Background(), "g1", "u1", CustomID(second.Correct, second))
	require.True(t, ok)
	assert.Equal(t, StateVerified, out.State)
	assert.Equal(t, second.ID, out.Challenge.ID)
	assert.Equal(t, []string{"g1/u1/verified"}, granter.grants)
}

func TestExactlyOneOutcomeUnderRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		m, granter, pub := newTestManager(time.Millisecond)
		var expiries atomic.Int32
		c := issue(t, m, func(Challenge) { expiries.Add(1) })

		var wins atomic.Int32
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := m.Select(context.Background(), "g1", "u1", CustomID(c.Correct, c)); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Eventually(t, func() bool { return wins.Load()+expiries.Load() == 1 }, time.Second, time.Millisecond, "iteration %d", i)
		time.Sleep(2 * time.Millisecond)
		require.EqualValues(t, 1, wins.Load()+expiries.Load(), "iteration %d", i)
		assert.LessOrEqual(t, len(granter.grants), 1)
		pub.mu.Lock()
		assert.Len(t, pub.states, 1)
		pub.mu.Unlock()
	}
}

func TestParseCustomID(t *testing.T) {
	c := Challenge{ID: "3f1c9a2e-5b7d-4e8f-9a0b-1c2d3e4f5a6b", UserID: "123"}
	ref, err := ParseCustomID(CustomID(OptionGreen, c))
	require.NoError(t, err)
	assert.Equal(t, ButtonRef{Option: OptionGreen, UserID: "123", ChallengeID: c.ID}, ref)

	for _, bad := range []string{
		"", "verify_", "verify_start", "verify_red_1", "verify_purple_1_abc",
		"verify_red__abc", "verify_red_1_", "other_red_1_abc", "verify_red_1_abc_extra",
	} {
		_, err := ParseCustomID(bad)
		assert.Error(t, err, bad)
	}
}

func TestButtonsDoNotRevealAnswer(t *testing.T) {
	m, _, _ := newTestManager(time.Minute)
	c := issue(t, m, nil)

	rows := Buttons(c, false)
	require.Len(t, rows, 1)
	row := rows[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, len(Options))
	for i, comp := range row.Components {
		b := comp.(discordgo.Button)
		assert.Equal(t, discordgo.SecondaryButton, b.Style)
		assert.Equal(t, CustomID(c.Order[i], c), b.CustomID)
	}
	assert.Contains(t, PromptEmbed(c).Description, c.Correct.Label())
}
