package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownChannel is returned when a channel id no longer resolves
	// (deleted channel, bot removed from the guild).
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrUnknownUser is returned when a user id no longer resolves.
	ErrUnknownUser = errors.New("unknown user")

	// ErrForbidden is returned when the platform rejects a delivery
	// (e.g. the recipient has direct messages disabled).
	ErrForbidden = errors.New("delivery forbidden")
)

type EventKind string

const (
	EventReady    EventKind = "ready"
	EventPresence EventKind = "presence"
	EventCommand  EventKind = "command"
)

// Event is one already-parsed platform event. Exactly one payload field is
// set, matching Kind.
type Event struct {
	Kind     EventKind
	Ready    *Ready
	Presence *PresenceUpdate
	Command  *CommandMessage
}

type Ready struct {
	BotUserID   string
	BotUsername string
	GuildCount  int
}

// PresenceUpdate carries the before/after activity snapshots for one member.
// An empty activity name means the member is not playing anything.
type PresenceUpdate struct {
	Member Member
	Before string
	After  string
}

// CommandMessage is a command-prefixed chat message addressed to the bot.
type CommandMessage struct {
	GuildID   string // empty for direct messages
	GuildName string
	ChannelID string
	Author    Member
	IsAdmin   bool // author holds the manage-guild permission
	Command   string
	Args      []string
}

// Member identifies a person; the ID is stable across guilds.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Name returns the display name, falling back to the username.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// Mention renders a platform mention for the member.
func (m Member) Mention() string { return "<@" + m.ID + ">" }

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

type User struct {
	ID       string
	Username string
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is the structured notification payload handed to the platform for
// rendering. The core never renders text itself.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Timestamp   time.Time    `json:"timestamp,omitzero"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      string       `json:"footer,omitempty"`
}

// Gateway is the platform boundary consumed by the core. Implementations
// deliver already-parsed events on the channel passed to Start and perform
// sends/queries against the live platform.
type Gateway interface {
	Start(ctx context.Context, out chan<- Event) error
	Stop(ctx context.Context) error

	// IsMember reports whether the user currently belongs to the guild's
	// live roster.
	IsMember(ctx context.Context, guildID, userID string) (bool, error)

	ResolveChannel(ctx context.Context, channelID string) (Channel, error)
	ResolveUser(ctx context.Context, userID string) (User, error)

	SendChannelMessage(ctx context.Context, channelID string, e Embed) error
	SendDirectMessage(ctx context.Context, userID string, e Embed) error
}
