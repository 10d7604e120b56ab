package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/PancyStudios/SentinelGo/internal/commands/commandtest"
	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscord struct {
	mu       sync.Mutex
	channels []*discordgo.Channel
	sent     map[string][]*discordgo.MessageSend
	sendErr  error
	created  int
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{sent: map[string][]*discordgo.MessageSend{}}
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeDiscord) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Channel(nil), f.channels...), nil
}

func (f *fakeDiscord) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	ch := &discordgo.Channel{
		ID:                   fmt.Sprintf("c%d", len(f.channels)+1),
		GuildID:              guildID,
		Name:                 data.Name,
		Type:                 data.Type,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func setup(t *testing.T) (*discord.ExtendedClient, *database.Store, *fakeDiscord) {
	t.Helper()
	ctx := context.Background()
	store, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Close() })

	api := newFakeDiscord()
	client := discord.NewClientWithSession(nil, discord.Options{})
	require.NoError(t, Register(client, store, api))
	return client, store, api
}

var admin = commandtest.Invocation{GuildID: "g1", UserID: "admin"}

func TestAdminCommandsRequireAdministrator(t *testing.T) {
	client, _, _ := setup(t)
	for _, name := range []string{"setup", "setup-verification", "db-status", "config.view", "config.prefix"} {
		cmd, ok := client.Commands.Get(name)
		require.True(t, ok, name)
		assert.NotZero(t, cmd.UserPermissions&discordgo.PermissionAdministrator, name)
		assert.True(t, cmd.IsGuildOnly, name)
	}

	inv := admin
	inv.Perms = discordgo.PermissionSendMessages
	rec := commandtest.Dispatch(client, commandtest.Command("db-status", inv))
	assert.Contains(t, rec.LastEmbed().Title, "Missing permissions")
}

func TestSetupVerificationPostsPanel(t *testing.T) {
	client, store, api := setup(t)

	rec := commandtest.Dispatch(client, commandtest.Command("setup-verification", admin,
		commandtest.Channel("channel", "verify"), commandtest.Role("role", "member")))
	assert.Contains(t, rec.LastEmbed().Title, "Verification configured")

	cfg, err := store.GetVerificationConfig(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "verify", cfg.ChannelID)
	assert.Equal(t, "member", cfg.RoleID)

	require.Len(t, api.sent["verify"], 1)
	row := api.sent["verify"][0].Components[0].(discordgo.ActionsRow)
	assert.Equal(t, verification.StartButtonID, row.Components[0].(discordgo.Button).CustomID)
}

func TestSetupVerificationPanelFailureStillSaves(t *testing.T) {
	client, store, api := setup(t)
	api.sendErr = errors.New("missing access")

	rec := commandtest.Dispatch(client, commandtest.Command("setup-verification", admin,
		commandtest.Channel("channel", "verify"), commandtest.Role("role", "member")))
	assert.Contains(t, rec.LastEmbed().Description, "could not post the panel")

	_, err := store.GetVerificationConfig(context.Background(), "g1")
	assert.NoError(t, err)
}

func TestSetupCreatesChannelsOnce(t *testing.T) {
	client, store, api := setup(t)

	rec := commandtest.Dispatch(client, commandtest.Command("setup", admin))
	require.Len(t, rec.Responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, rec.Responses[0].Type)
	require.NotNil(t, rec.LastEdit())
	assert.Contains(t, (*rec.LastEdit().Embeds)[0].Title, "Setup complete")
	assert.Equal(t, 4, api.created)

	modLog := api.channels[1]
	assert.Equal(t, ModLogChannelName, modLog.Name)
	assert.Equal(t, api.channels[0].ID, modLog.ParentID)
	require.NotEmpty(t, modLog.PermissionOverwrites)
	assert.Equal(t, "g1", modLog.PermissionOverwrites[0].ID)

	cfg, err := store.GetGuildConfig(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, modLog.ID, cfg.LogChannelID)
	assert.Equal(t, cfg.WelcomeChannelID, cfg.GoodbyeChannelID)
	assert.True(t, cfg.LevelingEnabled)
	assert.True(t, cfg.EconomyEnabled)

	// a second run reuses the channels
	client2 := discord.NewClientWithSession(nil, discord.Options{})
	require.NoError(t, Register(client2, store, api))
	commandtest.Dispatch(client2, commandtest.Command("setup", admin))
	assert.Equal(t, 4, api.created)
}

func TestConfigSubcommands(t *testing.T) {
	client, store, _ := setup(t)
	ctx := context.Background()

	rec := commandtest.Dispatch(client, commandtest.Subcommand("config", "log-channel", admin, commandtest.Channel("channel", "logs")))
	assert.Equal(t, "`log-channel` set to <#logs>.", rec.LastEmbed().Description)

	commandtest.Dispatch(client, commandtest.Subcommand("config", "auto-role", admin, commandtest.Role("role", "newbie")))
	commandtest.Dispatch(client, commandtest.Subcommand("config", "leveling", admin, commandtest.Bool("enabled", false)))

	cfg, err := store.GetGuildConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "logs", cfg.LogChannelID)
	assert.Equal(t, "newbie", cfg.AutoRoleID)
	assert.False(t, cfg.LevelingEnabled)

	rec = commandtest.Dispatch(client, commandtest.Subcommand("config", "log-channel", admin))
	assert.Equal(t, "`log-channel` disabled.", rec.LastEmbed().Description)
	cfg, err = store.GetGuildConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, cfg.LogChannelID)

	rec = commandtest.Dispatch(client, commandtest.Subcommand("config", "view", admin))
	embed := rec.LastEmbed()
	require.NotNil(t, embed)
	assert.Equal(t, "❌ Disabled", embed.Fields[1].Value)
	assert.Equal(t, "<@&newbie>", embed.Fields[7].Value)
}

func TestConfigPrefixValidation(t *testing.T) {
	client, store, _ := setup(t)

	rec := commandtest.Dispatch(client, commandtest.Subcommand("config", "prefix", admin, commandtest.String("prefix", "a b")))
	assert.Contains(t, rec.LastEmbed().Title, "Invalid prefix")

	rec = commandtest.Dispatch(client, commandtest.Subcommand("config", "prefix", admin, commandtest.String("prefix", "?")))
	assert.Contains(t, rec.LastEmbed().Title, "Configuration updated")
	cfg, err := store.GetGuildConfig(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Prefix)
}

func TestDBStatus(t *testing.T) {
	client, store, _ := setup(t)
	rec := commandtest.Dispatch(client, commandtest.Command("db-status", admin))
	embed := rec.LastEmbed()
	assert.Contains(t, embed.Title, "Database online")
	assert.Contains(t, embed.Fields[0].Value, ":memory:")

	require.NoError(t, store.Close())
	client2 := discord.NewClientWithSession(nil, discord.Options{})
	require.NoError(t, Register(client2, store, newFakeDiscord()))
	rec = commandtest.Dispatch(client2, commandtest.Command("db-status", admin))
	assert.Contains(t, rec.LastEmbed().Title, "Database offline")
}
