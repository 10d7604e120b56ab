// Package embeds builds the message embeds shared by commands and events.
package embeds

import (
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const (
	ColorSuccess = 0x57F287
	ColorError   = 0xED4245
	ColorWarning = 0xFEE75C
	ColorInfo    = 0x5865F2
	ColorBan     = 0xC0392B
	ColorKick    = 0xE67E22
	ColorWarn    = 0xF1C40F

	FooterText = "🛡️ Sentinel"
)

func base(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: FooterText},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// Success builds a green confirmation embed
func Success(title, description string) *discordgo.MessageEmbed {
	return base("✅ "+title, description, ColorSuccess)
}

// Error builds a red error embed
func Error(title, description string) *discordgo.MessageEmbed {
	return base("❌ "+title, description, ColorError)
}

// Warning builds a yellow warning embed
func Warning(title, description string) *discordgo.MessageEmbed {
	return base("⚠️ "+title, description, ColorWarning)
}

// Info builds a blurple information embed
func Info(title, description string) *discordgo.MessageEmbed {
	return base("ℹ️ "+title, description, ColorInfo)
}

func actionColor(kind models.ActionKind) int {
	switch kind {
	case models.ActionBan:
		return ColorBan
	case models.ActionKick:
		return ColorKick
	case models.ActionWarn:
		return ColorWarn
	default:
		return ColorInfo
	}
}

// ModerationOptions holds the data shown in a moderation embed
type ModerationOptions struct {
	Kind        models.ActionKind
	Target      *discordgo.User
	TargetID    string
	ModeratorID string
	Reason      string
	CaseNumber  int64
	Extra       []*discordgo.MessageEmbedField
}

// Moderation builds the embed posted for a completed moderation case
func Moderation(opts ModerationOptions) *discordgo.MessageEmbed {
	embed := base(opts.Kind.Emoji()+" "+opts.Kind.Title(), "", actionColor(opts.Kind))

	target := fmt.Sprintf("<@%s>\n`%s`", opts.TargetID, opts.TargetID)
	if opts.Target != nil {
		target = fmt.Sprintf("%s\n`%s`", opts.Target.String(), opts.Target.ID)
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: opts.Target.AvatarURL("128")}
	}

	reason := opts.Reason
	if reason == "" {
		reason = models.DefaultReason
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "👤 User", Value: target, Inline: true},
		{Name: "👮 Moderator", Value: fmt.Sprintf("<@%s>\n`%s`", opts.ModeratorID, opts.ModeratorID), Inline: true},
		{Name: "📝 Reason", Value: reason},
	}
	embed.Fields = append(embed.Fields, opts.Extra...)

	if opts.CaseNumber > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", opts.CaseNumber)}
	}
	return embed
}

// LeaderboardEntry is one row of a leaderboard embed
type LeaderboardEntry struct {
	UserID string
	XP     int64
	Level  int64
}

var medals = []string{"🥇", "🥈", "🥉"}

// Leaderboard renders the top users by xp
func Leaderboard(title string, entries []LeaderboardEntry) *discordgo.MessageEmbed {
	if len(entries) == 0 {
		return base("🏆 "+title, "Nobody has earned XP yet.", ColorInfo)
	}

	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		rank := fmt.Sprintf("**%d.**", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		lines = append(lines, fmt.Sprintf("%s <@%s> • %d XP (Level %d)", rank, e.UserID, e.XP, e.Level))
	}
	return base("🏆 "+title, strings.Join(lines, "\n"), ColorInfo)
}
