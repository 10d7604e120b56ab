package models

import "time"

// GuildConfig representa la configuración persistida de un servidor.
// Las referencias a canales y roles quedan vacías hasta que se configuran.
type GuildConfig struct {
	GuildID               string    `json:"guildId" yaml:"guildId"`
	Name                  string    `json:"name" yaml:"name"`
	Prefix                string    `json:"prefix" yaml:"prefix"`
	LogChannelID          string    `json:"logChannelId,omitempty" yaml:"logChannelId,omitempty"`
	WelcomeChannelID      string    `json:"welcomeChannelId,omitempty" yaml:"welcomeChannelId,omitempty"`
	GoodbyeChannelID      string    `json:"goodbyeChannelId,omitempty" yaml:"goodbyeChannelId,omitempty"`
	LevelUpChannelID      string    `json:"levelUpChannelId,omitempty" yaml:"levelUpChannelId,omitempty"`
	AutoRoleID            string    `json:"autoRoleId,omitempty" yaml:"autoRoleId,omitempty"`
	VerificationChannelID string    `json:"verificationChannelId,omitempty" yaml:"verificationChannelId,omitempty"`
	VerificationRoleID    string    `json:"verificationRoleId,omitempty" yaml:"verificationRoleId,omitempty"`
	LevelingEnabled       bool      `json:"levelingEnabled" yaml:"levelingEnabled"`
	EconomyEnabled        bool      `json:"economyEnabled" yaml:"economyEnabled"`
	CreatedAt             time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// GuildPatch describe una actualización parcial. Los campos nil no se tocan;
// una cadena vacía limpia la referencia.
type GuildPatch struct {
	Name                  *string
	Prefix                *string
	LogChannelID          *string
	WelcomeChannelID      *string
	GoodbyeChannelID      *string
	LevelUpChannelID      *string
	AutoRoleID            *string
	VerificationChannelID *string
	VerificationRoleID    *string
	LevelingEnabled       *bool
	EconomyEnabled        *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p GuildPatch) IsEmpty() bool {
	return p.Name == nil && p.Prefix == nil && p.LogChannelID == nil &&
		p.WelcomeChannelID == nil && p.GoodbyeChannelID == nil && p.LevelUpChannelID == nil &&
		p.AutoRoleID == nil && p.VerificationChannelID == nil && p.VerificationRoleID == nil &&
		p.LevelingEnabled == nil && p.EconomyEnabled == nil
}

// VerificationConfig es el par canal+rol requerido por /verify
type VerificationConfig struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	RoleID    string `json:"roleId"`
}

// Ptr devuelve un puntero al valor, útil para construir GuildPatch.
func Ptr[T any](v T) *T {
	return &v
}
