package levels

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// createRankCommand creates the /rank command
func createRankCommand(store Store, engine *leveling.Engine) *discord.Command {
	return discord.NewCommand(
		"rank",
		"Show your level and xp, or another member's",
		Category,
		func(ctx *discord.CommandContext) error { return rankHandler(ctx, store, engine) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to look up",
		},
	)
}

func rankHandler(ctx *discord.CommandContext, store Store, engine *leveling.Engine) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		user = ctx.User()
	}
	if user.Bot {
		return ctx.ReplyEphemeralEmbed(embeds.Error("No rank", "Bots do not earn xp."))
	}

	c, cancel := ctx.RequestContext()
	defer cancel()

	record, err := store.GetUserRecord(c, user.ID, ctx.GuildID())
	if errors.Is(err, database.ErrNotFound) {
		record = &models.UserRecord{UserID: user.ID, GuildID: ctx.GuildID()}
	} else if err != nil {
		return err
	}
	return ctx.ReplyEmbed(rankEmbed(user, record, engine))
}

func rankEmbed(user *discordgo.User, record *models.UserRecord, engine *leveling.Engine) *discordgo.MessageEmbed {
	current, needed := engine.Progress(record.XP)

	name := user.Username
	if name == "" {
		name = "<@" + user.ID + ">"
	}
	embed := embeds.Info("Rank of "+name, fmt.Sprintf("%s `%d/%d`", leveling.ProgressBar(current, needed), current, needed))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Level", Value: fmt.Sprintf("%d", record.Level), Inline: true},
		{Name: "XP", Value: fmt.Sprintf("%d", record.XP), Inline: true},
		{Name: "Messages", Value: fmt.Sprintf("%d", record.Messages), Inline: true},
		{Name: "💰 Balance", Value: fmt.Sprintf("%d", record.Balance), Inline: true},
		{Name: "🏦 Bank", Value: fmt.Sprintf("%d", record.Bank), Inline: true},
	}
	if user.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")}
	}
	return embed
}
