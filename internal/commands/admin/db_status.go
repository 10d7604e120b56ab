package admin

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// createDBStatusCommand creates /db-status
func createDBStatusCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"db-status",
		"Show the database status and applied migrations",
		Category,
		func(ctx *discord.CommandContext) error { return dbStatusHandler(ctx, store) },
	)
}

// dbStatusHandler echoes raw store errors; only administrators can run it
func dbStatusHandler(ctx *discord.CommandContext, store Store) error {
	c, cancel := ctx.RequestContext()
	defer cancel()

	if err := store.Ping(c); err != nil {
		return ctx.ReplyEphemeralEmbed(embeds.Error("Database offline", "🔴 | Desconectado\n```"+err.Error()+"```"))
	}

	guilds, err := store.CountGuilds(c)
	if err != nil {
		return ctx.ReplyEphemeralEmbed(embeds.Error("Database error", "```"+err.Error()+"```"))
	}
	migrations, err := store.AppliedMigrations(c)
	if err != nil {
		return ctx.ReplyEphemeralEmbed(embeds.Error("Database error", "```"+err.Error()+"```"))
	}

	embed := embeds.Success("Database online", "🟢 | Conectado")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "📁 File", Value: "`" + store.Path() + "`"},
		{Name: "🏠 Guilds stored", Value: fmt.Sprintf("%d", guilds), Inline: true},
		{Name: "🧱 Migrations", Value: fmt.Sprintf("%d applied", len(migrations)), Inline: true},
	}
	if len(migrations) > 0 {
		names := lo.Map(migrations, func(m models.MigrationRecord, _ int) string {
			return fmt.Sprintf("`%s` <t:%d:R>", m.Name, m.ExecutedAt.Unix())
		})
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "History", Value: strings.Join(names, "\n")})
	}
	return ctx.ReplyEphemeralEmbed(embed)
}
