package utils

import (
	"testing"
	"time"

	"github.com/PancyStudios/SentinelGo/internal/commands/commandtest"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *discord.ExtendedClient {
	t.Helper()
	client := discord.NewClientWithSession(nil, discord.Options{})
	require.NoError(t, Register(client))
	return client
}

func TestHelpGroupsByCategory(t *testing.T) {
	client := newClient(t)
	noop := func(*discord.CommandContext) error { return nil }
	require.NoError(t, client.CommandHandler.RegisterCommand(discord.NewCommand("ban", "Ban a user", "moderation", noop)))
	require.NoError(t, client.CommandHandler.RegisterCommand(discord.NewCommand("secret", "Hidden", "dev", noop).AsDev()))
	require.NoError(t, client.CommandHandler.RegisterGroup(
		discord.NewCommand("config", "Configure", "admin", noop),
		discord.NewCommand("view", "Show the configuration", "", noop),
	))

	embed := helpEmbed(client.Commands.All())
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Admin", embed.Fields[0].Name)
	assert.Equal(t, "`/config view` Show the configuration", embed.Fields[0].Value)
	assert.Equal(t, "Moderation", embed.Fields[1].Name)
	assert.Equal(t, "Utility", embed.Fields[2].Name)
	assert.Contains(t, embed.Fields[2].Value, "`/help`")
	assert.Contains(t, embed.Fields[2].Value, "`/ping`")
	for _, f := range embed.Fields {
		assert.NotContains(t, f.Value, "secret")
	}
}

func TestHelpIsEphemeral(t *testing.T) {
	client := newClient(t)
	rec := commandtest.Dispatch(client, commandtest.Command("help", commandtest.Invocation{UserID: "u1"}))
	require.NotNil(t, rec.Last())
	assert.NotZero(t, rec.Last().Data.Flags)
	assert.Contains(t, rec.LastEmbed().Title, "Sentinel commands")
}

func TestPing(t *testing.T) {
	client := newClient(t)
	rec := commandtest.Dispatch(client, commandtest.Command("ping", commandtest.Invocation{GuildID: "g1", UserID: "u1"}))
	assert.Contains(t, rec.LastEmbed().Description, "0ms")
}

func TestStats(t *testing.T) {
	client := newClient(t)
	rec := commandtest.Dispatch(client, commandtest.Command("stats", commandtest.Invocation{GuildID: "g1", UserID: "u1"}))
	embed := rec.LastEmbed()
	require.NotNil(t, embed)
	assert.Contains(t, embed.Title, "Statistics")
	assert.Len(t, embed.Fields, 8)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "1m 5s", formatDuration(65*time.Second))
	assert.Equal(t, "1d 2h", formatDuration(26*time.Hour))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 GiB", formatBytes(2<<30))
}
