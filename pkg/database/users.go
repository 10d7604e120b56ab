package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/models"
)

const userColumns = `user_id, guild_id, xp, level, balance, bank, messages, created_at, updated_at`

func scanUser(row scanner) (*models.UserRecord, error) {
	var u models.UserRecord
	var createdAt, updatedAt int64
	if err := row.Scan(&u.UserID, &u.GuildID, &u.XP, &u.Level, &u.Balance, &u.Bank,
		&u.Messages, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = unix(createdAt)
	u.UpdatedAt = unix(updatedAt)
	return &u, nil
}

// GetUserRecord returns the per-guild record or ErrNotFound.
func (s *Store) GetUserRecord(ctx context.Context, userID, guildID string) (*models.UserRecord, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = ? AND guild_id = ?`, userID, guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s/%s: %w", guildID, userID, err)
	}
	return u, nil
}

// EnsureUser creates an empty record if none exists.
func (s *Store) EnsureUser(ctx context.Context, userID, guildID string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, guild_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, guild_id) DO NOTHING`,
		userID, guildID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure user %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// UpsertUserRecord writes the whole record.
func (s *Store) UpsertUserRecord(ctx context.Context, u *models.UserRecord) error {
	if u == nil || u.UserID == "" || u.GuildID == "" {
		return errors.New("upsert user: user and guild ids are required")
	}
	if u.XP < 0 || u.Level < 0 {
		return fmt.Errorf("upsert user %s/%s: xp and level must be non-negative", u.GuildID, u.UserID)
	}

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, guild_id, xp, level, balance, bank, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			balance = excluded.balance,
			bank = excluded.bank,
			messages = excluded.messages,
			updated_at = excluded.updated_at`,
		u.UserID, u.GuildID, u.XP, u.Level, u.Balance, u.Bank, u.Messages, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert user %s/%s: %w", u.GuildID, u.UserID, err)
	}
	return nil
}

// AddXP adds amount to the user's xp in one statement, creating the record
// when needed, and recomputes the level. It returns the updated record and
// the level held before the increment.
func (s *Store) AddXP(ctx context.Context, userID, guildID string, amount, xpPerLevel int64) (*models.UserRecord, int64, error) {
	if amount < 0 {
		return nil, 0, fmt.Errorf("add xp: negative amount %d", amount)
	}
	if xpPerLevel <= 0 {
		return nil, 0, fmt.Errorf("add xp: invalid xp per level %d", xpPerLevel)
	}

	now := time.Now().Unix()
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, guild_id, xp, level, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET
			xp = users.xp + excluded.xp,
			level = (users.xp + excluded.xp) / ?,
			messages = users.messages + 1,
			updated_at = excluded.updated_at
		RETURNING `+userColumns,
		userID, guildID, amount, models.LevelFor(amount, xpPerLevel), now, now, xpPerLevel,
	))
	if err != nil {
		return nil, 0, fmt.Errorf("add xp %s/%s: %w", guildID, userID, err)
	}

	return u, models.LevelFor(u.XP-amount, xpPerLevel), nil
}

// TopUsers returns the guild leaderboard ordered by xp.
func (s *Store) TopUsers(ctx context.Context, guildID string, limit int) ([]models.UserRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE guild_id = ? ORDER BY xp DESC, user_id LIMIT ?`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("top users %s: %w", guildID, err)
	}
	defer rows.Close()

	var out []models.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
