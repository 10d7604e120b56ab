package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// createHelpCommand creates the /help command
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"List the available commands",
		Category,
		helpHandler,
	)
}

func helpHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeralEmbed(helpEmbed(ctx.Client.Commands.All()))
}

// helpEmbed lists the registered commands, one field per category
func helpEmbed(commands map[string]*discord.Command) *discordgo.MessageEmbed {
	visible := lo.PickBy(commands, func(_ string, cmd *discord.Command) bool { return !cmd.IsDev })
	byCategory := lo.GroupBy(lo.Keys(visible), func(name string) string { return visible[name].Category })

	categories := lo.Keys(byCategory)
	sort.Strings(categories)

	embed := embeds.Info("Sentinel commands", "Here is everything I can do.")
	for _, category := range categories {
		names := byCategory[category]
		sort.Strings(names)

		lines := lo.Map(names, func(name string, _ int) string {
			return fmt.Sprintf("`/%s` %s", strings.ReplaceAll(name, ".", " "), visible[name].Description)
		})
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  categoryTitle(category),
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func categoryTitle(category string) string {
	if category == "" {
		return "Other"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}
