// Package verify provides /verify and the verification buttons
package verify

import (
	"errors"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	apperrors "github.com/PancyStudios/SentinelGo/pkg/errors"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
)

// Category groups these commands in /help
const Category = "verification"

// Register registers /verify and routes the verification buttons
func Register(client *discord.ExtendedClient, mgr *verification.Manager) error {
	cmd := discord.NewCommand(
		"verify",
		"Verify yourself to access the server",
		Category,
		func(ctx *discord.CommandContext) error { return start(ctx, mgr) },
	).GuildOnly()
	if err := client.CommandHandler.RegisterCommand(cmd); err != nil {
		return err
	}

	client.RegisterComponent(verification.StartButtonID, func(ctx *discord.CommandContext) error {
		return start(ctx, mgr)
	})
	client.RegisterComponent(verification.CustomIDPrefix, func(ctx *discord.CommandContext) error {
		return selectOption(ctx, mgr)
	})
	return nil
}

// start issues a challenge and shows it to the member only
func start(ctx *discord.CommandContext, mgr *verification.Manager) error {
	if ctx.GuildID() == "" {
		return ctx.ReplyEphemeralEmbed(embeds.Error("Server only", "Verification only works inside a server."))
	}

	var roles []string
	if m := ctx.Member(); m != nil {
		roles = m.Roles
	}

	c, cancel := ctx.RequestContext()
	defer cancel()

	challenge, err := mgr.Issue(c, verification.IssueRequest{
		GuildID:     ctx.GuildID(),
		ChannelID:   ctx.Interaction.ChannelID,
		UserID:      ctx.User().ID,
		MemberRoles: roles,
	}, func(expired verification.Challenge) {
		defer apperrors.RecoverMiddleware()()
		if err := ctx.EditReplyComponents(verification.OutcomeEmbed(verification.StateExpired, nil), verification.Buttons(expired, true)); err != nil {
			logger.Debug("No se pudo actualizar el desafío expirado: "+err.Error(), "Verification")
		}
	})
	if err != nil {
		return replyIssueError(ctx, err)
	}

	return ctx.ReplyComponents(verification.PromptEmbed(challenge), verification.Buttons(challenge, false), true)
}

func replyIssueError(ctx *discord.CommandContext, err error) error {
	var wrong *verification.WrongChannelError
	switch {
	case errors.Is(err, verification.ErrNotConfigured):
		return ctx.ReplyEphemeralEmbed(embeds.Error("Verification unavailable", "Verification is not configured. An administrator must run `/setup-verification`."))
	case errors.As(err, &wrong):
		return ctx.ReplyEphemeralEmbed(embeds.Error("Wrong channel", "Verification is only available in <#"+wrong.ChannelID+">."))
	case errors.Is(err, verification.ErrAlreadyVerified):
		return ctx.ReplyEphemeralEmbed(embeds.Info("Already verified", "You are already verified."))
	}
	return err
}

// selectOption applies a click. Clicks that do not belong to an open
// challenge of the clicking member are acknowledged and ignored.
func selectOption(ctx *discord.CommandContext, mgr *verification.Manager) error {
	c, cancel := ctx.RequestContext()
	defer cancel()

	outcome, ok := mgr.Select(c, ctx.GuildID(), ctx.User().ID, ctx.CustomID())
	if !ok {
		return ctx.DeferUpdate()
	}
	return ctx.UpdateMessage(verification.OutcomeEmbed(outcome.State, outcome.Err), verification.Buttons(outcome.Challenge, true))
}
