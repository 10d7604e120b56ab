package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/models"
)

const guildColumns = `guild_id, name, prefix, log_channel_id, welcome_channel_id, goodbye_channel_id,
	level_up_channel_id, auto_role_id, verification_channel_id, verification_role_id,
	leveling_enabled, economy_enabled, created_at, updated_at`

func scanGuild(row scanner) (*models.GuildConfig, error) {
	var (
		g                                       models.GuildConfig
		logCh, welcome, goodbye, levelUp        sql.NullString
		autoRole, verifyChannel, verifyRole     sql.NullString
		leveling, economy, createdAt, updatedAt int64
	)

	err := row.Scan(
		&g.GuildID, &g.Name, &g.Prefix, &logCh, &welcome, &goodbye,
		&levelUp, &autoRole, &verifyChannel, &verifyRole,
		&leveling, &economy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.LogChannelID = logCh.String
	g.WelcomeChannelID = welcome.String
	g.GoodbyeChannelID = goodbye.String
	g.LevelUpChannelID = levelUp.String
	g.AutoRoleID = autoRole.String
	g.VerificationChannelID = verifyChannel.String
	g.VerificationRoleID = verifyRole.String
	g.LevelingEnabled = leveling != 0
	g.EconomyEnabled = economy != 0
	g.CreatedAt = unix(createdAt)
	g.UpdatedAt = unix(updatedAt)
	return &g, nil
}

// GetGuildConfig returns the stored configuration or ErrNotFound.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	if cfg, ok := s.guilds.get(guildID); ok {
		return cfg, nil
	}

	gen := s.guilds.generation(guildID)
	cfg, err := scanGuild(s.db.QueryRowContext(ctx,
		`SELECT `+guildColumns+` FROM guilds WHERE guild_id = ?`, guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get guild %s: %w", guildID, err)
	}

	s.guilds.put(cfg, gen)
	return cfg, nil
}

// EnsureGuild creates the guild row on first contact. A non-empty name
// refreshes the stored display name.
func (s *Store) EnsureGuild(ctx context.Context, guildID, name string) (*models.GuildConfig, error) {
	if guildID == "" {
		return nil, errors.New("ensure guild: empty guild id")
	}
	if cfg, ok := s.guilds.get(guildID); ok && (name == "" || cfg.Name == name) {
		return cfg, nil
	}

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO guilds (guild_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
		WHERE excluded.name != '' AND excluded.name != guilds.name`,
		guildID, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure guild %s: %w", guildID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.guilds.invalidate(guildID)
	}

	return s.GetGuildConfig(ctx, guildID)
}

type assignment struct {
	column string
	value  any
}

func patchAssignments(p models.GuildPatch) []assignment {
	var out []assignment
	text := func(column string, v *string, nullIfEmpty bool) {
		if v == nil {
			return
		}
		if nullIfEmpty {
			out = append(out, assignment{column, nullable(*v)})
			return
		}
		out = append(out, assignment{column, *v})
	}
	flag := func(column string, v *bool) {
		if v != nil {
			out = append(out, assignment{column, boolInt(*v)})
		}
	}

	text("name", p.Name, false)
	text("prefix", p.Prefix, false)
	text("log_channel_id", p.LogChannelID, true)
	text("welcome_channel_id", p.WelcomeChannelID, true)
	text("goodbye_channel_id", p.GoodbyeChannelID, true)
	text("level_up_channel_id", p.LevelUpChannelID, true)
	text("auto_role_id", p.AutoRoleID, true)
	text("verification_channel_id", p.VerificationChannelID, true)
	text("verification_role_id", p.VerificationRoleID, true)
	flag("leveling_enabled", p.LevelingEnabled)
	flag("economy_enabled", p.EconomyEnabled)
	return out
}

// UpsertGuildConfig creates the guild if needed and applies the patch.
func (s *Store) UpsertGuildConfig(ctx context.Context, guildID string, patch models.GuildPatch) (*models.GuildConfig, error) {
	if _, err := s.EnsureGuild(ctx, guildID, ""); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetGuildConfig(ctx, guildID)
	}

	sets := patchAssignments(patch)
	clauses := make([]string, 0, len(sets)+1)
	args := make([]any, 0, len(sets)+2)
	for _, a := range sets {
		clauses = append(clauses, a.column+" = ?")
		args = append(args, a.value)
	}
	clauses = append(clauses, "updated_at = ?")
	args = append(args, time.Now().Unix(), guildID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE guilds SET `+strings.Join(clauses, ", ")+` WHERE guild_id = ?`, args...)
	s.guilds.invalidate(guildID)
	if err != nil {
		return nil, fmt.Errorf("update guild %s: %w", guildID, err)
	}

	return s.GetGuildConfig(ctx, guildID)
}

// SetVerificationConfig stores the verification channel and role.
func (s *Store) SetVerificationConfig(ctx context.Context, guildID, channelID, roleID string) error {
	if channelID == "" || roleID == "" {
		return errors.New("set verification config: channel and role are required")
	}
	_, err := s.UpsertGuildConfig(ctx, guildID, models.GuildPatch{
		VerificationChannelID: &channelID,
		VerificationRoleID:    &roleID,
	})
	return err
}

// GetVerificationConfig returns ErrNotFound unless both channel and role are set.
func (s *Store) GetVerificationConfig(ctx context.Context, guildID string) (*models.VerificationConfig, error) {
	cfg, err := s.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg.VerificationChannelID == "" || cfg.VerificationRoleID == "" {
		return nil, ErrNotFound
	}
	return &models.VerificationConfig{
		GuildID:   guildID,
		ChannelID: cfg.VerificationChannelID,
		RoleID:    cfg.VerificationRoleID,
	}, nil
}

// CountGuilds returns how many guild rows exist, retained ones included.
func (s *Store) CountGuilds(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guilds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count guilds: %w", err)
	}
	return n, nil
}
