package wsgateway

import (
	"encoding/json"
	"fmt"

	"grebbot/internal/platform"
)

// Wire protocol: one JSON frame per websocket text message. The bridge
// delivers already-parsed platform events and answers correlated
// requests; no chat protocol details cross this boundary.
const (
	opEvent    = "event"
	opRequest  = "request"
	opResponse = "response"
)

type frame struct {
	Op    string          `json:"op"`
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Request methods understood by the bridge.
const (
	methodIsMember       = "is_member"
	methodResolveChannel = "resolve_channel"
	methodResolveUser    = "resolve_user"
	methodSendChannel    = "send_channel"
	methodSendDM         = "send_dm"
)

// Error strings the bridge returns for well-known conditions.
const (
	wireErrUnknownChannel = "unknown_channel"
	wireErrUnknownUser    = "unknown_user"
	wireErrForbidden      = "forbidden"
)

func wireError(s string) error {
	switch s {
	case wireErrUnknownChannel:
		return platform.ErrUnknownChannel
	case wireErrUnknownUser:
		return platform.ErrUnknownUser
	case wireErrForbidden:
		return platform.ErrForbidden
	default:
		return fmt.Errorf("bridge: %s", s)
	}
}

type wireMember struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (w wireMember) member() platform.Member {
	return platform.Member{
		ID:          w.ID,
		Username:    w.Username,
		DisplayName: w.DisplayName,
		AvatarURL:   w.AvatarURL,
	}
}

type readyEvent struct {
	BotUserID   string `json:"bot_user_id"`
	BotUsername string `json:"bot_username"`
	GuildCount  int    `json:"guild_count"`
}

type presenceEvent struct {
	Member wireMember `json:"member"`
	Before string     `json:"before"`
	After  string     `json:"after"`
}

type commandEvent struct {
	GuildID   string     `json:"guild_id,omitempty"`
	GuildName string     `json:"guild_name,omitempty"`
	ChannelID string     `json:"channel_id"`
	Author    wireMember `json:"author"`
	IsAdmin   bool       `json:"is_admin"`
	Command   string     `json:"command"`
	Args      []string   `json:"args,omitempty"`
}

// decodeEvent maps one event frame to a platform.Event. Unknown event
// types are skipped (ok=false) so newer bridges stay compatible.
func decodeEvent(f frame) (platform.Event, bool, error) {
	switch f.Type {
	case "ready":
		var e readyEvent
		if err := json.Unmarshal(f.Data, &e); err != nil {
			return platform.Event{}, false, err
		}
		return platform.Event{Kind: platform.EventReady, Ready: &platform.Ready{
			BotUserID:   e.BotUserID,
			BotUsername: e.BotUsername,
			GuildCount:  e.GuildCount,
		}}, true, nil
	case "presence":
		var e presenceEvent
		if err := json.Unmarshal(f.Data, &e); err != nil {
			return platform.Event{}, false, err
		}
		return platform.Event{Kind: platform.EventPresence, Presence: &platform.PresenceUpdate{
			Member: e.Member.member(),
			Before: e.Before,
			After:  e.After,
		}}, true, nil
	case "command":
		var e commandEvent
		if err := json.Unmarshal(f.Data, &e); err != nil {
			return platform.Event{}, false, err
		}
		return platform.Event{Kind: platform.EventCommand, Command: &platform.CommandMessage{
			GuildID:   e.GuildID,
			GuildName: e.GuildName,
			ChannelID: e.ChannelID,
			Author:    e.Author.member(),
			IsAdmin:   e.IsAdmin,
			Command:   e.Command,
			Args:      e.Args,
		}}, true, nil
	default:
		return platform.Event{}, false, nil
	}
}
