package events

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	channelID string
	embed     *discordgo.MessageEmbed
	content   string
}

type fakeOutput struct {
	mu      sync.Mutex
	sent    []sent
	roles   []string
	status  string
	roleErr error
}

func (o *fakeOutput) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sent{channelID: channelID, embed: embed})
	return nil
}

func (o *fakeOutput) SendMessage(_ context.Context, channelID, content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sent{channelID: channelID, content: content})
	return nil
}

func (o *fakeOutput) AddRole(_ context.Context, _, userID, roleID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.roleErr != nil {
		return o.roleErr
	}
	o.roles = append(o.roles, userID+":"+roleID)
	return nil
}

func (o *fakeOutput) SetStatus(status string) error {
	o.status = status
	return nil
}

func setup(t *testing.T) (*Handlers, *database.Store, *fakeOutput) {
	t.Helper()
	ctx := context.Background()
	store, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Close() })

	out := &fakeOutput{}
	client := discord.NewClientWithSession(nil, discord.Options{})
	engine := leveling.NewEngine(store, leveling.Config{XPMin: 50, XPMax: 50, XPPerLevel: 100},
		leveling.WithRand(rand.New(rand.NewSource(1))))

	h := NewHandlers(client, Deps{Store: store, Output: out, Leveling: engine})
	return h, store, out
}

func member(guildID, userID string, bot bool) *discordgo.Member {
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID, Username: userID, Bot: bot}}
}

func message(guildID, channelID, userID string, bot bool) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   guildID,
		ChannelID: channelID,
		Author:    &discordgo.User{ID: userID, Bot: bot},
	}}
}

func TestRegisterAll(t *testing.T) {
	client := discord.NewClientWithSession(nil, discord.Options{})
	RegisterAll(client, Deps{})

	assert.ElementsMatch(t, []string{
		"ready", "ready", "resumed", "disconnect",
		"guildCreate", "guildDelete",
		"guildMemberAdd", "guildMemberRemove",
		"messageCreate",
	}, client.EventHandler.Registered())
}

func TestReadyLifecycle(t *testing.T) {
	h, _, out := setup(t)

	require.NoError(t, h.onReady(nil, &discordgo.Ready{
		User:   &discordgo.User{ID: "bot", Username: "Sentinel"},
		Guilds: []*discordgo.Guild{{ID: "a"}, {ID: "b"}},
	}))
	assert.True(t, h.client.IsReady())
	assert.Equal(t, "2 servers | /help", out.status)

	require.NoError(t, h.onDisconnect(nil, &discordgo.Disconnect{}))
	assert.False(t, h.client.IsReady())

	require.NoError(t, h.onResumed(nil, &discordgo.Resumed{}))
	assert.True(t, h.client.IsReady())
}

func TestGuildCreateStoresConfig(t *testing.T) {
	h, store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1", Name: "First"}}))
	require.NoError(t, h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1", Name: "Renamed"}}))

	cfg, err := store.GetGuildConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", cfg.Name)
	assert.True(t, cfg.LevelingEnabled)

	require.NoError(t, h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g2", Unavailable: true}}))
	_, err = store.GetGuildConfig(ctx, "g2")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestGuildDeleteKeepsConfig(t *testing.T) {
	h, store, _ := setup(t)
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	require.NoError(t, h.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1"}}))

	_, err = store.GetGuildConfig(ctx, "g1")
	assert.NoError(t, err)
}

func TestMemberAdd(t *testing.T) {
	h, store, out := setup(t)
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)
	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{
		WelcomeChannelID: models.Ptr("welcome"),
		AutoRoleID:       models.Ptr("newbie"),
	})
	require.NoError(t, err)

	require.NoError(t, h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: member("g1", "u1", false)}))

	assert.Equal(t, []string{"u1:newbie"}, out.roles)
	require.Len(t, out.sent, 1)
	assert.Equal(t, "welcome", out.sent[0].channelID)
	assert.Equal(t, "👋 Welcome!", out.sent[0].embed.Title)
	assert.Contains(t, out.sent[0].embed.Description, "<@u1>")

	_, err = store.GetUserRecord(ctx, "u1", "g1")
	assert.NoError(t, err, "joining creates the user record")
}

func TestMemberAddRoleFailureStillWelcomes(t *testing.T) {
	h, store, out := setup(t)
	out.roleErr = errors.New("missing permissions")
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)
	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{
		WelcomeChannelID: models.Ptr("welcome"),
		AutoRoleID:       models.Ptr("newbie"),
	})
	require.NoError(t, err)

	require.NoError(t, h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: member("g1", "u1", false)}))
	assert.Len(t, out.sent, 1)
}

func TestMemberAddIgnoresBotsAndUnknownGuilds(t *testing.T) {
	h, _, out := setup(t)

	require.NoError(t, h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: member("g1", "b1", true)}))
	require.NoError(t, h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: member("unknown", "u1", false)}))
	assert.Empty(t, out.sent)
	assert.Empty(t, out.roles)
}

func TestMemberRemove(t *testing.T) {
	h, store, out := setup(t)
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	require.NoError(t, h.onGuildMemberRemove(nil, &discordgo.GuildMemberRemove{Member: member("g1", "u1", false)}))
	assert.Empty(t, out.sent, "no channel configured")

	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{WelcomeChannelID: models.Ptr("welcome")})
	require.NoError(t, err)
	require.NoError(t, h.onGuildMemberRemove(nil, &discordgo.GuildMemberRemove{Member: member("g1", "u1", false)}))
	require.Len(t, out.sent, 1)
	assert.Equal(t, "welcome", out.sent[0].channelID)
	assert.Equal(t, "👋 Goodbye!", out.sent[0].embed.Title)

	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{GoodbyeChannelID: models.Ptr("goodbye")})
	require.NoError(t, err)
	require.NoError(t, h.onGuildMemberRemove(nil, &discordgo.GuildMemberRemove{Member: member("g1", "u1", false)}))
	require.Len(t, out.sent, 2)
	assert.Equal(t, "goodbye", out.sent[1].channelID)
}

func TestMessageCreateLevelUp(t *testing.T) {
	h, store, out := setup(t)
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "u1", false)))
	assert.Empty(t, out.sent)

	require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "u1", false)))
	require.Len(t, out.sent, 1)
	assert.Equal(t, "chat", out.sent[0].channelID)
	assert.Equal(t, leveling.LevelUpMessage("u1", 1), out.sent[0].content)

	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{LevelUpChannelID: models.Ptr("levels")})
	require.NoError(t, err)
	require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "u1", false)))
	require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "u1", false)))
	require.Len(t, out.sent, 2)
	assert.Equal(t, "levels", out.sent[1].channelID)

	u, err := store.GetUserRecord(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.EqualValues(t, 200, u.XP)
	assert.EqualValues(t, 4, u.Messages)
}

func TestMessageCreateIgnored(t *testing.T) {
	h, store, out := setup(t)
	ctx := context.Background()
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "b1", true)))
	require.NoError(t, h.onMessageCreate(nil, message("", "dm", "u1", false)))
	_, err = store.GetUserRecord(ctx, "b1", "g1")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{LevelingEnabled: models.Ptr(false)})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.onMessageCreate(nil, message("g1", "chat", "u1", false)))
	}
	assert.Empty(t, out.sent)
	_, err = store.GetUserRecord(ctx, "u1", "g1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestWelcomeEmbed(t *testing.T) {
	e := WelcomeEmbed(&discordgo.User{ID: "u1", Username: "neo"}, "Zion", 42)
	assert.Equal(t, "Welcome to **Zion**, <@u1>!", e.Description)
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "42", e.Fields[2].Value)
	_, err := time.Parse(time.RFC3339, e.Timestamp)
	assert.NoError(t, err)
}
