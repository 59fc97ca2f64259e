package storage

import (
	"context"
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "memory": in-process store, lost on restart (tests, dev)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Subscription is one guild's notification configuration. At most one record
// exists per guild id; writes are upserts (latest wins, no history). Records
// are disabled on unsubscribe, never hard-deleted.
type Subscription struct {
	GuildID     string    `json:"guild_id"`
	GuildName   string    `json:"guild_name"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Enabled     bool      `json:"enabled"`
	NotifyStart bool      `json:"notify_start"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DMSubscription is one user's per-guild DM opt-in, unique per
// (user, guild). It is independent of the user's current guild membership.
type DMSubscription struct {
	UserID    string    `json:"user_id"`
	GuildID   string    `json:"guild_id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationRecord is one delivery attempt, kept for the dashboard.
type NotificationRecord struct {
	At         time.Time `json:"at"`
	GuildID    string    `json:"guild_id"`
	MemberID   string    `json:"member_id"`
	MemberName string    `json:"member_name"`
	Kind       string    `json:"kind"` // "channel" or "dm"
	Target     string    `json:"target"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
}

// Store is the persistence API used by the dispatcher, the command layer and
// the dashboard. Any call may fail (connectivity, timeout); callers treat a
// failure as "no data available" and continue.
type Store interface {
	GetSubscription(ctx context.Context, guildID string) (Subscription, bool, error)
	SaveSubscription(ctx context.Context, sub Subscription) error
	// AllEnabledSubscriptions returns only records with Enabled set, keyed
	// by guild id.
	AllEnabledSubscriptions(ctx context.Context) (map[string]Subscription, error)

	GetDMSubscription(ctx context.Context, userID, guildID string) (DMSubscription, bool, error)
	SaveDMSubscription(ctx context.Context, userID, guildID string, enabled bool) error
	// DMSubscribers returns the user ids with an enabled DM opt-in for the
	// guild, in stable (insertion) order.
	DMSubscribers(ctx context.Context, guildID string) ([]string, error)
	// DMSubscriptionsForUser returns the user's enabled DM opt-ins across
	// all guilds.
	DMSubscriptionsForUser(ctx context.Context, userID string) ([]DMSubscription, error)

	AppendNotification(ctx context.Context, rec NotificationRecord) error
	RecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error)
	PruneNotifications(ctx context.Context, olderThan time.Duration) (int64, error)

	Close() error
}
