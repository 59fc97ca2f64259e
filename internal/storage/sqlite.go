package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"grebbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetSubscription(ctx context.Context, guildID string) (Subscription, bool, error) {
	var (
		sub       Subscription
		enabled   int
		notify    int
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT guild_id, guild_name, channel_id, channel_name, enabled, notify_start, updated_at
		 FROM sea_of_thieves_subscriptions WHERE guild_id = ?`, guildID,
	).Scan(&sub.GuildID, &sub.GuildName, &sub.ChannelID, &sub.ChannelName, &enabled, &notify, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, err
	}
	sub.Enabled = enabled != 0
	sub.NotifyStart = notify != 0
	sub.UpdatedAt = parseTime(updatedAt)
	return sub, true, nil
}

func (s *sqliteStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	if strings.TrimSpace(sub.GuildID) == "" {
		return errors.New("guild id is required")
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sea_of_thieves_subscriptions
		   (guild_id, guild_name, channel_id, channel_name, enabled, notify_start, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(guild_id) DO UPDATE SET
		   guild_name=excluded.guild_name,
		   channel_id=excluded.channel_id,
		   channel_name=excluded.channel_name,
		   enabled=excluded.enabled,
		   notify_start=excluded.notify_start,
		   updated_at=excluded.updated_at`,
		sub.GuildID, sub.GuildName, sub.ChannelID, sub.ChannelName,
		boolInt(sub.Enabled), boolInt(sub.NotifyStart), sub.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AllEnabledSubscriptions(ctx context.Context) (map[string]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guild_id, guild_name, channel_id, channel_name, enabled, notify_start, updated_at
		 FROM sea_of_thieves_subscriptions WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Subscription)
	for rows.Next() {
		var (
			sub       Subscription
			enabled   int
			notify    int
			updatedAt string
		)
		if err := rows.Scan(&sub.GuildID, &sub.GuildName, &sub.ChannelID, &sub.ChannelName,
			&enabled, &notify, &updatedAt); err != nil {
			return nil, err
		}
		sub.Enabled = enabled != 0
		sub.NotifyStart = notify != 0
		sub.UpdatedAt = parseTime(updatedAt)
		out[sub.GuildID] = sub
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetDMSubscription(ctx context.Context, userID, guildID string) (DMSubscription, bool, error) {
	var (
		sub       DMSubscription
		enabled   int
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, guild_id, enabled, updated_at
		 FROM dm_subscriptions WHERE user_id = ? AND guild_id = ?`, userID, guildID,
	).Scan(&sub.UserID, &sub.GuildID, &enabled, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DMSubscription{}, false, nil
	}
	if err != nil {
		return DMSubscription{}, false, err
	}
	sub.Enabled = enabled != 0
	sub.UpdatedAt = parseTime(updatedAt)
	return sub, true, nil
}

func (s *sqliteStore) SaveDMSubscription(ctx context.Context, userID, guildID string, enabled bool) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(guildID) == "" {
		return errors.New("user id and guild id are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dm_subscriptions (user_id, guild_id, enabled, updated_at)
		 VALUES (?,?,?,?)
		 ON CONFLICT(user_id, guild_id) DO UPDATE SET
		   enabled=excluded.enabled,
		   updated_at=excluded.updated_at`,
		userID, guildID, boolInt(enabled), time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) DMSubscribers(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM dm_subscriptions
		 WHERE guild_id = ? AND enabled = 1 ORDER BY rowid`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DMSubscriptionsForUser(ctx context.Context, userID string) ([]DMSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, guild_id, enabled, updated_at FROM dm_subscriptions
		 WHERE user_id = ? AND enabled = 1 ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DMSubscription
	for rows.Next() {
		var (
			sub       DMSubscription
			enabled   int
			updatedAt string
		)
		if err := rows.Scan(&sub.UserID, &sub.GuildID, &enabled, &updatedAt); err != nil {
			return nil, err
		}
		sub.Enabled = enabled != 0
		sub.UpdatedAt = parseTime(updatedAt)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendNotification(ctx context.Context, rec NotificationRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_log (at, guild_id, member_id, member_name, kind, target, outcome, err, took_ms)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.At.Format(time.RFC3339Nano), rec.GuildID, rec.MemberID, rec.MemberName,
		rec.Kind, rec.Target, rec.Outcome, nullStr(rec.Error), rec.TookMS,
	)
	return err
}

func (s *sqliteStore) RecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, guild_id, member_id, member_name, kind, target, outcome, err, took_ms
		 FROM notification_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	for rows.Next() {
		var (
			rec    NotificationRecord
			at     string
			errStr sql.NullString
		)
		if err := rows.Scan(&at, &rec.GuildID, &rec.MemberID, &rec.MemberName,
			&rec.Kind, &rec.Target, &rec.Outcome, &errStr, &rec.TookMS); err != nil {
			return nil, err
		}
		rec.At = parseTime(at)
		rec.Error = errStr.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PruneNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_log WHERE at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
