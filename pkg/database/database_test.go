package database

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func countColumn(t *testing.T, s *Store, table, column string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n))
	return n
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Migrate(ctx))

	applied, err := store.AppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, "0001_init.sql", applied[0].Name)
	assert.Equal(t, "0002_verification.sql", applied[1].Name)
	assert.Equal(t, "0003_level_up_channel.sql", applied[2].Name)

	assert.Equal(t, 1, countColumn(t, store, "guilds", "verification_channel_id"))
	assert.Equal(t, 1, countColumn(t, store, "guilds", "verification_role_id"))
	assert.Equal(t, 1, countColumn(t, store, "guilds", "level_up_channel_id"))
}

func TestMigrateToleratesExistingColumn(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	// Un esquema previo que ya tenía la columna de verificación.
	_, err = store.db.Exec(`CREATE TABLE guilds (
		guild_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		prefix TEXT NOT NULL DEFAULT '!',
		log_channel_id TEXT,
		welcome_channel_id TEXT,
		goodbye_channel_id TEXT,
		auto_role_id TEXT,
		leveling_enabled INTEGER NOT NULL DEFAULT 1,
		economy_enabled INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		verification_channel_id TEXT
	)`)
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))
	assert.Equal(t, 1, countColumn(t, store, "guilds", "verification_channel_id"))
	assert.Equal(t, 1, countColumn(t, store, "guilds", "verification_role_id"))
}

func TestMigrationFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	fsys := fstest.MapFS{
		"m/0001_ok.sql":     {Data: []byte("CREATE TABLE first (id INTEGER);")},
		"m/0002_broken.sql": {Data: []byte("CREATE TABLE second (id INTEGER);\nINSERT INTO missing VALUES (1);")},
	}

	err = store.migrateFS(ctx, fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_broken.sql")

	applied, err := store.AppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "0001_ok.sql", applied[0].Name)

	var n int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'second'`).Scan(&n))
	assert.Zero(t, n, "statements of a failed migration must not persist")
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INTEGER); -- trailing\n\nALTER TABLE a ADD COLUMN y TEXT;\n")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x INTEGER)", stmts[0])
	assert.Equal(t, "ALTER TABLE a ADD COLUMN y TEXT", stmts[1])
}

func TestGuildConfigLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetGuildConfig(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg, err := store.EnsureGuild(ctx, "g1", "Guild One")
	require.NoError(t, err)
	assert.Equal(t, "Guild One", cfg.Name)
	assert.Equal(t, "!", cfg.Prefix)
	assert.True(t, cfg.LevelingEnabled)
	assert.False(t, cfg.EconomyEnabled)
	assert.Empty(t, cfg.LogChannelID)

	cfg, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{
		LogChannelID:    models.Ptr("c-log"),
		EconomyEnabled:  models.Ptr(true),
		LevelingEnabled: models.Ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "c-log", cfg.LogChannelID)
	assert.True(t, cfg.EconomyEnabled)
	assert.False(t, cfg.LevelingEnabled)
	assert.Equal(t, "Guild One", cfg.Name, "untouched fields keep their value")

	cfg, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{LogChannelID: models.Ptr("")})
	require.NoError(t, err)
	assert.Empty(t, cfg.LogChannelID, "empty string clears the reference")

	cfg, err = store.EnsureGuild(ctx, "g1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", cfg.Name)

	n, err := store.CountGuilds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGuildCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cfg, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)
	cfg.Name = "mutated"

	again, err := store.GetGuildConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Guild", again.Name)
}

func TestGuildCacheEvictsOldest(t *testing.T) {
	c := newGuildCache(2)
	c.put(&models.GuildConfig{GuildID: "a"}, c.generation("a"))
	c.put(&models.GuildConfig{GuildID: "b"}, c.generation("b"))
	_, _ = c.get("a")
	c.put(&models.GuildConfig{GuildID: "c"}, c.generation("c"))

	assert.Equal(t, 2, c.len())
	_, ok := c.get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
}

func TestGuildCacheSkipsReadsOverlappingAWrite(t *testing.T) {
	c := newGuildCache(4)

	gen := c.generation("g1")
	c.invalidate("g1")
	assert.False(t, c.put(&models.GuildConfig{GuildID: "g1", Name: "old"}, gen))
	_, ok := c.get("g1")
	assert.False(t, ok, "a row read before the write must not be cached")

	assert.True(t, c.put(&models.GuildConfig{GuildID: "g1", Name: "new"}, c.generation("g1")))
	cfg, ok := c.get("g1")
	require.True(t, ok)
	assert.Equal(t, "new", cfg.Name)

	gen = c.generation("g2")
	c.invalidate("g1")
	assert.True(t, c.put(&models.GuildConfig{GuildID: "g2"}, gen), "other guilds are unaffected")

	gen = c.generation("g3")
	c.purge()
	assert.False(t, c.put(&models.GuildConfig{GuildID: "g3"}, gen))
}

func TestGuildConfigNotStaleAfterConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = store.GetGuildConfig(ctx, "g1")
			}
		}()
	}
	for i := 0; i < 100; i++ {
		_, err := store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{Prefix: models.Ptr(strconv.Itoa(i % 10))})
		require.NoError(t, err)
	}
	_, err = store.UpsertGuildConfig(ctx, "g1", models.GuildPatch{Prefix: models.Ptr("?")})
	require.NoError(t, err)
	wg.Wait()

	cfg, err := store.GetGuildConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Prefix)
}

func TestVerificationConfig(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetVerificationConfig(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetVerificationConfig(ctx, "g1", "chan-C", "role-R"))

	vc, err := store.GetVerificationConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "chan-C", vc.ChannelID)
	assert.Equal(t, "role-R", vc.RoleID)

	assert.Error(t, store.SetVerificationConfig(ctx, "g1", "", "role-R"))
}

func TestUserRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetUserRecord(ctx, "u1", "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.EnsureUser(ctx, "u1", "g1"))
	require.NoError(t, store.EnsureUser(ctx, "u1", "g1"))

	u, err := store.GetUserRecord(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Zero(t, u.XP)

	u.Balance = 50
	u.Bank = 200
	require.NoError(t, store.UpsertUserRecord(ctx, u))

	u, err = store.GetUserRecord(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.EqualValues(t, 50, u.Balance)
	assert.EqualValues(t, 200, u.Bank)

	assert.Error(t, store.UpsertUserRecord(ctx, &models.UserRecord{UserID: "u1", GuildID: "g1", XP: -1}))
}

func TestAddXPTracksLevels(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u, prev, err := store.AddXP(ctx, "u1", "g1", 60, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, prev)
	assert.EqualValues(t, 60, u.XP)
	assert.EqualValues(t, 0, u.Level)
	assert.EqualValues(t, 1, u.Messages)

	u, prev, err = store.AddXP(ctx, "u1", "g1", 45, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, prev)
	assert.EqualValues(t, 105, u.XP)
	assert.EqualValues(t, 1, u.Level)
	assert.EqualValues(t, 2, u.Messages)

	_, _, err = store.AddXP(ctx, "u1", "g1", -5, 100)
	assert.Error(t, err)

	_, _, err = store.AddXP(ctx, "u2", "g1", 250, 100)
	require.NoError(t, err)

	top, err := store.TopUsers(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u2", top[0].UserID)
	assert.EqualValues(t, 2, top[0].Level)
}

func TestModerationCasesArePerGuildSequences(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	n1, err := store.RecordModerationCase(ctx, "g1", models.ActionBan, "t1", "m1", "spam")
	require.NoError(t, err)
	n2, err := store.RecordModerationCase(ctx, "g1", models.ActionKick, "t1", "m1", "")
	require.NoError(t, err)
	other, err := store.RecordModerationCase(ctx, "g2", models.ActionWarn, "t9", "m9", "x")
	require.NoError(t, err)

	assert.EqualValues(t, 1, n1)
	assert.EqualValues(t, 2, n2)
	assert.EqualValues(t, 1, other)

	c, err := store.GetModerationCase(ctx, "g1", 2)
	require.NoError(t, err)
	assert.Equal(t, models.ActionKick, c.Action)
	assert.Equal(t, models.DefaultReason, c.Reason)

	_, err = store.GetModerationCase(ctx, "g1", 99)
	assert.ErrorIs(t, err, ErrNotFound)

	cases, err := store.ListModerationCases(ctx, "g1", "t1", 10)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.EqualValues(t, 2, cases[0].CaseNumber)
}

func TestWarningsAreDeactivatedNotDeleted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id1, err := store.AddWarning(ctx, "u1", "g1", "m1", "first")
	require.NoError(t, err)
	_, err = store.AddWarning(ctx, "u1", "g1", "m1", "second")
	require.NoError(t, err)
	_, err = store.AddWarning(ctx, "u1", "g2", "m1", "elsewhere")
	require.NoError(t, err)

	n, err := store.CountActiveWarnings(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := store.ClearWarning(ctx, "u1", "g1", id1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClearWarning(ctx, "u1", "g1", id1)
	require.NoError(t, err)
	assert.False(t, ok, "already cleared")

	n, err = store.CountActiveWarnings(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cleared, err := store.ClearWarnings(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	all, err := store.ListWarnings(ctx, "u1", "g1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2, "cleared warnings remain stored")
	for _, w := range all {
		assert.False(t, w.Active)
	}

	n, err = store.CountActiveWarnings(ctx, "u1", "g2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatus(t *testing.T) {
	store := newTestStore(t)
	status, ok := store.Status(context.Background())
	assert.True(t, ok)
	assert.Contains(t, status, "Conectado")

	require.NoError(t, store.Close())
	_, ok = store.Status(context.Background())
	assert.False(t, ok)
}
