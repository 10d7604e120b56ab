// Package mod provides the moderation commands. Each command is in its own file.
package mod

import (
	"context"
	"errors"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
)

// Category groups these commands in /help
const Category = "moderation"

// Register registers every moderation command
func Register(client *discord.ExtendedClient, svc *moderation.Service) error {
	commands := []*discord.Command{
		createBanCommand(svc),
		createKickCommand(svc),
		createWarnCommand(svc),
		createWarningsCommand(svc),
		createClearWarnsCommand(svc),
		createCaseCommand(svc),
		createHistoryCommand(svc),
	}
	for _, cmd := range commands {
		if err := client.CommandHandler.RegisterCommand(cmd.GuildOnly()); err != nil {
			return err
		}
	}
	return nil
}

// request builds the service request for the invoking moderator
func request(ctx *discord.CommandContext, targetID, reason string) moderation.Request {
	actor := ctx.User()
	return moderation.Request{
		GuildID:  ctx.GuildID(),
		ActorID:  actor.ID,
		ActorTag: actor.String(),
		TargetID: targetID,
		Reason:   reason,
	}
}

// replyResult answers with the action embed, or turns a rejection into an
// ephemeral error. Other errors go back to the dispatcher.
func replyResult(ctx *discord.CommandContext, res *moderation.Result, err error) error {
	if err != nil {
		if r, ok := moderation.AsRejection(err); ok {
			return ctx.ReplyEphemeralEmbed(embeds.Error("Action refused", r.Message))
		}
		if errors.Is(err, moderation.ErrNothingToClear) {
			return ctx.ReplyEphemeralEmbed(embeds.Info("Nothing to clear", "That member has no matching active warnings."))
		}
		return err
	}
	return ctx.ReplyEmbed(res.Embed)
}

func withTimeout(ctx *discord.CommandContext, fn func(context.Context) error) error {
	c, cancel := ctx.RequestContext()
	defer cancel()
	return fn(c)
}
