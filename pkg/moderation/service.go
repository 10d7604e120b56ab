// Package moderation implements ban, kick and warn with their safety checks,
// the per-guild case log and the mod-log embed.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// DefaultMaxWarnings is the active warning limit when none is configured
const DefaultMaxWarnings = 3

// ErrNothingToClear is returned when a clear request matches no active warning
var ErrNothingToClear = errors.New("no active warnings to clear")

// Store is the persistence the service relies on
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	RecordModerationCase(ctx context.Context, guildID string, kind models.ActionKind, targetID, actorID, reason string) (int64, error)
	GetModerationCase(ctx context.Context, guildID string, number int64) (*models.ModerationCase, error)
	ListModerationCases(ctx context.Context, guildID, targetID string, limit int) ([]models.ModerationCase, error)
	AddWarning(ctx context.Context, userID, guildID, moderatorID, reason string) (int64, error)
	CountActiveWarnings(ctx context.Context, userID, guildID string) (int, error)
	ListWarnings(ctx context.Context, userID, guildID string, activeOnly bool) ([]models.Warning, error)
	ClearWarning(ctx context.Context, userID, guildID string, warningID int64) (bool, error)
	ClearWarnings(ctx context.Context, userID, guildID string) (int64, error)
}

// Publisher receives every recorded case
type Publisher interface {
	PublishCase(c *models.ModerationCase) error
}

// Config holds the service limits
type Config struct {
	MaxWarnings     int
	ReasonMaxLength int
	HistoryLimit    int
}

// Request describes one moderation action
type Request struct {
	GuildID    string
	ActorID    string
	ActorTag   string
	TargetID   string
	Reason     string
	DeleteDays int
}

// Result is returned for every successful action
type Result struct {
	Kind           models.ActionKind
	CaseNumber     int64
	Reason         string
	WarningID      int64
	ActiveWarnings int
	Cleared        int64
	Target         *discordgo.User
	Embed          *discordgo.MessageEmbed
}

// Service performs moderation actions
type Service struct {
	store     Store
	gateway   Gateway
	publisher Publisher
	cfg       Config
}

// Option configures a Service
type Option func(*Service)

// WithPublisher forwards recorded cases to p
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a moderation service
func NewService(store Store, gateway Gateway, cfg Config, opts ...Option) *Service {
	if cfg.MaxWarnings <= 0 {
		cfg.MaxWarnings = DefaultMaxWarnings
	}
	if cfg.ReasonMaxLength <= 0 {
		cfg.ReasonMaxLength = DefaultReasonMaxLength
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 25
	}
	s := &Service{store: store, gateway: gateway, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxWarnings returns the configured active warning limit
func (s *Service) MaxWarnings() int {
	return s.cfg.MaxWarnings
}

func (s *Service) log(req Request, kind models.ActionKind) *logger.Entry {
	return logger.WithFields(logrus.Fields{
		"action": string(kind),
		"guild":  req.GuildID,
		"actor":  req.ActorID,
		"target": req.TargetID,
	})
}

// rank orders members for hierarchy checks; the guild owner outranks everyone
func (s *Service) rank(ctx context.Context, guildID, ownerID string, m *discordgo.Member, userID string) (int, error) {
	if userID == ownerID {
		return math.MaxInt, nil
	}
	if m == nil {
		return 0, nil
	}
	return s.gateway.HighestRolePosition(ctx, guildID, m.Roles)
}

// checkTarget runs the checks shared by every action and returns the target
// member, nil when the target is not in the guild.
func (s *Service) checkTarget(ctx context.Context, req Request, requireMember bool) (*discordgo.Member, error) {
	if req.TargetID == req.ActorID {
		return nil, reject(RejectSelf, "You cannot moderate yourself.")
	}
	botID := s.gateway.BotID()
	if req.TargetID == botID {
		return nil, reject(RejectBot, "I cannot moderate myself.")
	}

	target, err := s.gateway.Member(ctx, req.GuildID, req.TargetID)
	if err != nil && !errors.Is(err, ErrNotMember) {
		return nil, err
	}

	if target != nil {
		ownerID, err := s.gateway.OwnerID(ctx, req.GuildID)
		if err != nil {
			return nil, err
		}
		if req.TargetID == ownerID {
			return nil, reject(RejectActorHierarchy, "You cannot moderate the server owner.")
		}

		targetRank, err := s.rank(ctx, req.GuildID, ownerID, target, req.TargetID)
		if err != nil {
			return nil, err
		}

		actor, err := s.gateway.Member(ctx, req.GuildID, req.ActorID)
		if err != nil && !errors.Is(err, ErrNotMember) {
			return nil, err
		}
		actorRank, err := s.rank(ctx, req.GuildID, ownerID, actor, req.ActorID)
		if err != nil {
			return nil, err
		}
		if actorRank <= targetRank {
			return nil, reject(RejectActorHierarchy, "You cannot moderate a member with an equal or higher role.")
		}

		bot, err := s.gateway.Member(ctx, req.GuildID, botID)
		if err != nil && !errors.Is(err, ErrNotMember) {
			return nil, err
		}
		botRank, err := s.rank(ctx, req.GuildID, ownerID, bot, botID)
		if err != nil {
			return nil, err
		}
		if botRank <= targetRank {
			return nil, reject(RejectBotHierarchy, "My highest role must be above the target's highest role.")
		}
	}

	if requireMember && target == nil {
		return nil, reject(RejectNotMember, "That user is not a member of this server.")
	}
	return target, nil
}

func (s *Service) targetUser(ctx context.Context, m *discordgo.Member, userID string) *discordgo.User {
	if m != nil && m.User != nil {
		return m.User
	}
	if u, err := s.gateway.User(ctx, userID); err == nil {
		return u
	}
	return nil
}

// notify sends a best-effort DM to the target
func (s *Service) notify(ctx context.Context, req Request, kind models.ActionKind, reason string) {
	guildName := s.gateway.GuildName(ctx, req.GuildID)
	var title string
	switch kind {
	case models.ActionBan:
		title = "You have been banned from " + guildName
	case models.ActionKick:
		title = "You have been kicked from " + guildName
	default:
		title = "You have been warned in " + guildName
	}
	embed := embeds.Warning(title, "**Reason:** "+reason)
	if err := s.gateway.SendDM(ctx, req.TargetID, embed); err != nil {
		s.log(req, kind).Debug("No se pudo enviar el DM: "+err.Error(), "Moderation")
	}
}

// finish records the case, posts the mod-log embed and publishes the case
func (s *Service) finish(ctx context.Context, req Request, kind models.ActionKind, reason string, target *discordgo.User, extra ...*discordgo.MessageEmbedField) (*Result, error) {
	number, err := s.store.RecordModerationCase(ctx, req.GuildID, kind, req.TargetID, req.ActorID, reason)
	if err != nil {
		return nil, fmt.Errorf("record %s case: %w", kind, err)
	}

	embed := embeds.Moderation(embeds.ModerationOptions{
		Kind:        kind,
		Target:      target,
		TargetID:    req.TargetID,
		ModeratorID: req.ActorID,
		Reason:      reason,
		CaseNumber:  number,
		Extra:       extra,
	})

	cfg, err := s.store.GetGuildConfig(ctx, req.GuildID)
	switch {
	case err == nil && cfg.LogChannelID != "":
		if err := s.gateway.SendEmbed(ctx, cfg.LogChannelID, embed); err != nil {
			s.log(req, kind).Warn("No se pudo enviar al canal de logs: "+err.Error(), "Moderation")
		}
	case err != nil && !errors.Is(err, database.ErrNotFound):
		s.log(req, kind).Warn("No se pudo leer la configuración: "+err.Error(), "Moderation")
	}

	if s.publisher != nil {
		c := &models.ModerationCase{
			GuildID:     req.GuildID,
			CaseNumber:  number,
			Action:      kind,
			TargetID:    req.TargetID,
			ModeratorID: req.ActorID,
			Reason:      reason,
			CreatedAt:   time.Now(),
		}
		if err := s.publisher.PublishCase(c); err != nil {
			s.log(req, kind).Debug("No se pudo publicar el caso: "+err.Error(), "Moderation")
		}
	}

	s.log(req, kind).Info(fmt.Sprintf("Caso #%d registrado", number), "Moderation")
	return &Result{Kind: kind, CaseNumber: number, Reason: reason, Target: target, Embed: embed}, nil
}

// Ban bans the target, member or not
func (s *Service) Ban(ctx context.Context, req Request) (*Result, error) {
	reason := NormalizeReason(req.Reason, s.cfg.ReasonMaxLength)

	target, err := s.checkTarget(ctx, req, false)
	if err != nil {
		return nil, err
	}

	banned, err := s.gateway.IsBanned(ctx, req.GuildID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, reject(RejectAlreadyBanned, "That user is already banned.")
	}

	days := min(max(req.DeleteDays, 0), 7)
	user := s.targetUser(ctx, target, req.TargetID)

	if target != nil {
		s.notify(ctx, req, models.ActionBan, reason)
	}
	if err := s.gateway.Ban(ctx, req.GuildID, req.TargetID, auditReason(req.ActorTag, reason, s.cfg.ReasonMaxLength), days); err != nil {
		return nil, fmt.Errorf("ban %s: %w", req.TargetID, err)
	}

	return s.finish(ctx, req, models.ActionBan, reason, user)
}

// Kick removes a member from the guild
func (s *Service) Kick(ctx context.Context, req Request) (*Result, error) {
	reason := NormalizeReason(req.Reason, s.cfg.ReasonMaxLength)

	target, err := s.checkTarget(ctx, req, true)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, req, models.ActionKick, reason)
	if err := s.gateway.Kick(ctx, req.GuildID, req.TargetID, auditReason(req.ActorTag, reason, s.cfg.ReasonMaxLength)); err != nil {
		return nil, fmt.Errorf("kick %s: %w", req.TargetID, err)
	}

	return s.finish(ctx, req, models.ActionKick, reason, s.targetUser(ctx, target, req.TargetID))
}

// Warn stores a warning for a member, refusing once the active limit is reached
func (s *Service) Warn(ctx context.Context, req Request) (*Result, error) {
	reason := NormalizeReason(req.Reason, s.cfg.ReasonMaxLength)

	target, err := s.checkTarget(ctx, req, true)
	if err != nil {
		return nil, err
	}

	active, err := s.store.CountActiveWarnings(ctx, req.TargetID, req.GuildID)
	if err != nil {
		return nil, err
	}
	if active >= s.cfg.MaxWarnings {
		return nil, reject(RejectMaxWarnings,
			fmt.Sprintf("That member already has %d/%d active warnings. Consider a stronger action.", active, s.cfg.MaxWarnings))
	}

	warningID, err := s.store.AddWarning(ctx, req.TargetID, req.GuildID, req.ActorID, reason)
	if err != nil {
		return nil, fmt.Errorf("add warning: %w", err)
	}
	active++

	res, err := s.finish(ctx, req, models.ActionWarn, reason, s.targetUser(ctx, target, req.TargetID),
		&discordgo.MessageEmbedField{Name: "⚠️ Warnings", Value: fmt.Sprintf("%d/%d", active, s.cfg.MaxWarnings), Inline: true})
	if err != nil {
		return nil, err
	}
	res.WarningID = warningID
	res.ActiveWarnings = active

	s.notify(ctx, req, models.ActionWarn, reason)
	return res, nil
}

// Warnings lists the active warnings of a user
func (s *Service) Warnings(ctx context.Context, guildID, userID string) ([]models.Warning, error) {
	return s.store.ListWarnings(ctx, userID, guildID, true)
}

// ClearWarning deactivates one warning and logs an unwarn case
func (s *Service) ClearWarning(ctx context.Context, req Request, warningID int64) (*Result, error) {
	ok, err := s.store.ClearWarning(ctx, req.TargetID, req.GuildID, warningID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNothingToClear
	}
	req.Reason = fmt.Sprintf("Warning #%d cleared", warningID)
	res, err := s.finish(ctx, req, models.ActionUnwarn, req.Reason, s.targetUser(ctx, nil, req.TargetID))
	if err != nil {
		return nil, err
	}
	res.Cleared = 1
	return res, nil
}

// ClearWarnings deactivates every active warning of the target
func (s *Service) ClearWarnings(ctx context.Context, req Request) (*Result, error) {
	n, err := s.store.ClearWarnings(ctx, req.TargetID, req.GuildID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNothingToClear
	}
	req.Reason = fmt.Sprintf("%d warning(s) cleared", n)
	res, err := s.finish(ctx, req, models.ActionUnwarn, req.Reason, s.targetUser(ctx, nil, req.TargetID))
	if err != nil {
		return nil, err
	}
	res.Cleared = n
	return res, nil
}

// Case returns one case by its guild-local number
func (s *Service) Case(ctx context.Context, guildID string, number int64) (*models.ModerationCase, error) {
	return s.store.GetModerationCase(ctx, guildID, number)
}

// History returns the most recent cases against a user
func (s *Service) History(ctx context.Context, guildID, userID string) ([]models.ModerationCase, error) {
	return s.store.ListModerationCases(ctx, guildID, userID, s.cfg.HistoryLimit)
}
