package models

import "time"

// ActionKind identifica el tipo de acción de moderación registrada
type ActionKind string

const (
	ActionBan    ActionKind = "ban"
	ActionKick   ActionKind = "kick"
	ActionWarn   ActionKind = "warn"
	ActionUnwarn ActionKind = "unwarn"
)

// Emoji returns the icon used in moderation embeds.
func (k ActionKind) Emoji() string {
	switch k {
	case ActionBan:
		return "🔨"
	case ActionKick:
		return "👢"
	case ActionWarn:
		return "⚠️"
	case ActionUnwarn:
		return "🧹"
	default:
		return "📋"
	}
}

// Title returns the human readable action name.
func (k ActionKind) Title() string {
	switch k {
	case ActionBan:
		return "Member Banned"
	case ActionKick:
		return "Member Kicked"
	case ActionWarn:
		return "Member Warned"
	case ActionUnwarn:
		return "Warnings Cleared"
	default:
		return "Moderation Action"
	}
}

// ModerationCase es una entrada inmutable del registro de casos
type ModerationCase struct {
	ID          int64      `json:"id"`
	GuildID     string     `json:"guildId"`
	CaseNumber  int64      `json:"caseNumber"`
	Action      ActionKind `json:"action"`
	TargetID    string     `json:"targetId"`
	ModeratorID string     `json:"moderatorId"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Warning representa una advertencia; nunca se borra, solo se desactiva
type Warning struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	GuildID     string    `json:"guildId"`
	ModeratorID string    `json:"moderatorId"`
	Reason      string    `json:"reason"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MigrationRecord es una fila del ledger de migraciones
type MigrationRecord struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ExecutedAt time.Time `json:"executedAt"`
}

// DefaultReason se usa cuando el moderador no indica una razón
const DefaultReason = "No reason provided"
