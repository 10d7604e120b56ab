package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
)

// CaseEvent is published on events/moderation/<guildId>
type CaseEvent struct {
	GuildID     string `json:"guildId"`
	CaseNumber  int64  `json:"caseNumber"`
	Action      string `json:"action"`
	TargetID    string `json:"targetId"`
	ModeratorID string `json:"moderatorId"`
	Reason      string `json:"reason"`
	CreatedAt   int64  `json:"createdAt"`
}

// VerificationEvent is published on events/verification/<guildId>
type VerificationEvent struct {
	GuildID string `json:"guildId"`
	UserID  string `json:"userId"`
	State   string `json:"state"`
	At      int64  `json:"at"`
}

func caseTopic(guildID string) string         { return "events/moderation/" + guildID }
func verificationTopic(guildID string) string { return "events/verification/" + guildID }

// PublishCase announces a recorded moderation case
func (b *Bridge) PublishCase(c *models.ModerationCase) error {
	if c == nil {
		return errors.New("mqtt: nil case")
	}
	return b.Publish(caseTopic(c.GuildID), newCaseEvent(c))
}

func newCaseEvent(c *models.ModerationCase) CaseEvent {
	return CaseEvent{
		GuildID:     c.GuildID,
		CaseNumber:  c.CaseNumber,
		Action:      string(c.Action),
		TargetID:    c.TargetID,
		ModeratorID: c.ModeratorID,
		Reason:      c.Reason,
		CreatedAt:   c.CreatedAt.Unix(),
	}
}

// PublishVerification announces a finished verification challenge
func (b *Bridge) PublishVerification(guildID, userID string, state verification.State) error {
	return b.Publish(verificationTopic(guildID), VerificationEvent{
		GuildID: guildID,
		UserID:  userID,
		State:   string(state),
		At:      time.Now().Unix(),
	})
}

// GuildConfigReader is the slice of the store the bridge can expose
type GuildConfigReader interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
}

// ServeGuildConfig answers request/guild/config with the stored configuration.
// The request payload must carry "guildId".
func (b *Bridge) ServeGuildConfig(store GuildConfigReader, timeout time.Duration) error {
	return b.On("guild/config", guildConfigHandler(store, timeout))
}

func guildConfigHandler(store GuildConfigReader, timeout time.Duration) RequestHandler {
	return func(payload map[string]any) (any, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, errors.New("guildId is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, err := store.GetGuildConfig(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("guild %s: %w", guildID, err)
		}
		return cfg, nil
	}
}
