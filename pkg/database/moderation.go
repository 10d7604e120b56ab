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

// RecordModerationCase appends a case and returns its per-guild number.
func (s *Store) RecordModerationCase(ctx context.Context, guildID string, kind models.ActionKind, targetID, actorID, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		reason = models.DefaultReason
	}

	var number int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO moderation_cases (guild_id, case_number, action, target_id, moderator_id, reason, created_at)
		SELECT ?, COALESCE(MAX(case_number), 0) + 1, ?, ?, ?, ?, ?
		FROM moderation_cases WHERE guild_id = ?
		RETURNING case_number`,
		guildID, string(kind), targetID, actorID, reason, time.Now().Unix(), guildID,
	).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("record %s case in %s: %w", kind, guildID, err)
	}
	return number, nil
}

const caseColumns = `id, guild_id, case_number, action, target_id, moderator_id, reason, created_at`

func scanCase(row scanner) (*models.ModerationCase, error) {
	var c models.ModerationCase
	var action string
	var createdAt int64
	if err := row.Scan(&c.ID, &c.GuildID, &c.CaseNumber, &action, &c.TargetID,
		&c.ModeratorID, &c.Reason, &createdAt); err != nil {
		return nil, err
	}
	c.Action = models.ActionKind(action)
	c.CreatedAt = unix(createdAt)
	return &c, nil
}

// GetModerationCase looks a case up by its per-guild number.
func (s *Store) GetModerationCase(ctx context.Context, guildID string, number int64) (*models.ModerationCase, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM moderation_cases WHERE guild_id = ? AND case_number = ?`,
		guildID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %d in %s: %w", number, guildID, err)
	}
	return c, nil
}

// ListModerationCases returns the most recent cases against a target, or
// against anyone in the guild when targetID is empty.
func (s *Store) ListModerationCases(ctx context.Context, guildID, targetID string, limit int) ([]models.ModerationCase, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM moderation_cases WHERE guild_id = ? AND (? = '' OR target_id = ?)
		 ORDER BY case_number DESC LIMIT ?`, guildID, targetID, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list cases for %s in %s: %w", targetID, guildID, err)
	}
	defer rows.Close()

	var out []models.ModerationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// AddWarning stores an active warning and returns its id.
func (s *Store) AddWarning(ctx context.Context, userID, guildID, moderatorID, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		reason = models.DefaultReason
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (user_id, guild_id, moderator_id, reason, active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		userID, guildID, moderatorID, reason, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("add warning %s/%s: %w", guildID, userID, err)
	}
	return res.LastInsertId()
}

// CountActiveWarnings counts warnings that have not been cleared.
func (s *Store) CountActiveWarnings(ctx context.Context, userID, guildID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM warnings WHERE user_id = ? AND guild_id = ? AND active = 1`,
		userID, guildID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count warnings %s/%s: %w", guildID, userID, err)
	}
	return n, nil
}

// ListWarnings returns a member's warnings, newest first.
func (s *Store) ListWarnings(ctx context.Context, userID, guildID string, activeOnly bool) ([]models.Warning, error) {
	query := `SELECT id, user_id, guild_id, moderator_id, reason, active, created_at
		FROM warnings WHERE user_id = ? AND guild_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("list warnings %s/%s: %w", guildID, userID, err)
	}
	defer rows.Close()

	var out []models.Warning
	for rows.Next() {
		var w models.Warning
		var active, createdAt int64
		if err := rows.Scan(&w.ID, &w.UserID, &w.GuildID, &w.ModeratorID, &w.Reason, &active, &createdAt); err != nil {
			return nil, err
		}
		w.Active = active != 0
		w.CreatedAt = unix(createdAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ClearWarning deactivates one warning of the member. It reports false when
// no active warning with that id belongs to the member.
func (s *Store) ClearWarning(ctx context.Context, userID, guildID string, warningID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE warnings SET active = 0 WHERE id = ? AND user_id = ? AND guild_id = ? AND active = 1`,
		warningID, userID, guildID)
	if err != nil {
		return false, fmt.Errorf("clear warning %d: %w", warningID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearWarnings deactivates every active warning of the member.
func (s *Store) ClearWarnings(ctx context.Context, userID, guildID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE warnings SET active = 0 WHERE user_id = ? AND guild_id = ? AND active = 1`,
		userID, guildID)
	if err != nil {
		return 0, fmt.Errorf("clear warnings %s/%s: %w", guildID, userID, err)
	}
	return res.RowsAffected()
}
