package dispatch

import (
	"time"

	"grebbot/internal/platform"
)

type Config struct {
	// GameName is the tracked game, shown in notification embeds.
	GameName string
	// RatePerSec caps outbound sends across channel and DM deliveries.
	// 0 disables the limiter.
	RatePerSec int
	// LogRetention bounds the persisted notification log; records older
	// than this are pruned by the maintenance job.
	LogRetention time.Duration
}

// Status tags the outcome of one delivery decision.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Skip and failure reasons carried in Delivery.Reason.
const (
	ReasonNotMember         = "not_member"
	ReasonNotifyOff         = "notify_off"
	ReasonCooldown          = "cooldown"
	ReasonChannelUnresolved = "channel_unresolved"
	ReasonUserUnresolved    = "user_unresolved"
	ReasonSelf              = "self"
	ReasonForbidden         = "dm_forbidden"
	ReasonSendFailed        = "send_failed"
	ReasonMembershipCheck   = "membership_check"
)

// Delivery is the outcome of one channel or DM decision. Skipped and
// failed outcomes carry a reason; failures also carry the error.
type Delivery struct {
	Kind    string // "channel" or "dm"
	GuildID string
	Target  string // channel id or user id
	Status  Status
	Reason  string
	Err     error
	// Remaining is set for cooldown skips.
	Remaining time.Duration
	Took      time.Duration
}

// GuildResult is everything that happened for one guild during a single
// start event.
type GuildResult struct {
	GuildID string
	Channel Delivery
	DMs     []Delivery
}

// Result is the full outcome of one HandleStart invocation.
type Result struct {
	Member platform.Member
	At     time.Time
	Guilds []GuildResult
}

// DeliveredChannels counts guilds whose channel notification went out.
func (r Result) DeliveredChannels() int {
	n := 0
	for _, g := range r.Guilds {
		if g.Channel.Status == StatusDelivered {
			n++
		}
	}
	return n
}

// DeliveredDMs counts direct messages that went out across all guilds.
func (r Result) DeliveredDMs() int {
	n := 0
	for _, g := range r.Guilds {
		for _, d := range g.DMs {
			if d.Status == StatusDelivered {
				n++
			}
		}
	}
	return n
}
