package moderation

import (
	"strings"
	"unicode/utf8"

	"github.com/PancyStudios/SentinelGo/pkg/models"
)

// DefaultReasonMaxLength is the longest reason stored or sent to Discord
const DefaultReasonMaxLength = 512

const ellipsis = "..."

// NormalizeReason trims the reason, falls back to the default text when it
// is empty and cuts it to max runes, ending in "..." when shortened.
func NormalizeReason(reason string, max int) string {
	if max <= len(ellipsis) {
		max = DefaultReasonMaxLength
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.DefaultReason
	}
	if utf8.RuneCountInString(reason) <= max {
		return reason
	}
	runes := []rune(reason)
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// auditReason prefixes the moderator tag for the guild audit log
func auditReason(actorTag, reason string, max int) string {
	if actorTag == "" {
		return reason
	}
	return NormalizeReason(actorTag+": "+reason, max)
}
