package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

var permissionNames = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionAdministrator, "Administrator"},
	{discordgo.PermissionManageGuild, "Manage Server"},
	{discordgo.PermissionManageRoles, "Manage Roles"},
	{discordgo.PermissionManageChannels, "Manage Channels"},
	{discordgo.PermissionBanMembers, "Ban Members"},
	{discordgo.PermissionKickMembers, "Kick Members"},
	{discordgo.PermissionModerateMembers, "Moderate Members"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
	{discordgo.PermissionViewAuditLogs, "View Audit Log"},
	{discordgo.PermissionViewChannel, "View Channel"},
	{discordgo.PermissionSendMessages, "Send Messages"},
	{discordgo.PermissionEmbedLinks, "Embed Links"},
	{discordgo.PermissionReadMessageHistory, "Read Message History"},
	{discordgo.PermissionMentionEveryone, "Mention Everyone"},
}

// MissingPermissions lists the names of the required permissions not
// contained in have. Administrator implies every permission.
func MissingPermissions(have, required int64) []string {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	missing := required &^ have
	if missing == 0 {
		return nil
	}

	var names []string
	for _, p := range permissionNames {
		if missing&p.bit != 0 {
			names = append(names, p.name)
			missing &^= p.bit
		}
	}
	if missing != 0 {
		names = append(names, "Other")
	}
	return names
}

// FormatPermissions renders permission names as inline code
func FormatPermissions(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
