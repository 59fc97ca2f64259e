package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"grebbot/internal/cooldown"
	"grebbot/internal/eventbus"
	"grebbot/internal/platform"
	"grebbot/internal/presence"
	"grebbot/internal/storage"
	"grebbot/pkg/logx"
)

// Platform is the slice of the gateway the dispatcher needs.
type Platform interface {
	IsMember(ctx context.Context, guildID, userID string) (bool, error)
	ResolveChannel(ctx context.Context, channelID string) (platform.Channel, error)
	ResolveUser(ctx context.Context, userID string) (platform.User, error)
	SendChannelMessage(ctx context.Context, channelID string, e platform.Embed) error
	SendDirectMessage(ctx context.Context, userID string, e platform.Embed) error
}

type Deps struct {
	Store     storage.Store
	Gateway   Platform
	Cooldowns *cooldown.Tracker
	Bus       eventbus.Bus
	Metrics   *Metrics
	Log       logx.Logger
}

// Dispatcher turns one start event into zero or more deliveries:
// one channel message per eligible guild, then DMs to that guild's
// opted-in users. Failures are isolated per recipient; nothing here
// is fatal to the process.
type Dispatcher struct {
	cfg     Config
	store   storage.Store
	gw      Platform
	cds     *cooldown.Tracker
	bus     eventbus.Bus
	metrics *Metrics
	log     logx.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

func New(cfg Config, deps Deps) *Dispatcher {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   deps.Store,
		gw:      deps.Gateway,
		cds:     deps.Cooldowns,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		log:     deps.Log.With(logx.String("svc", "dispatch")),
		limiter: lim,
		now:     time.Now,
	}
}

// WithClock replaces the dispatcher's clock. Tests only.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// HandleStart runs the fan-out for one detected start event. The only
// error it returns is a subscription read failure, which aborts the
// whole dispatch with no cooldown mutation; every per-guild and
// per-recipient problem is captured in the Result instead.
func (d *Dispatcher) HandleStart(ctx context.Context, ev presence.StartEvent) (Result, error) {
	if d.metrics != nil {
		d.metrics.StartEvents.Inc()
	}
	res := Result{Member: ev.Member, At: ev.At}
	if res.At.IsZero() {
		res.At = d.now()
	}

	subs, err := d.store.AllEnabledSubscriptions(ctx)
	if err != nil {
		d.log.Error("subscription read failed, dropping start event",
			logx.String("member", ev.Member.ID), logx.Err(err))
		return res, fmt.Errorf("load subscriptions: %w", err)
	}

	for guildID, sub := range subs {
		res.Guilds = append(res.Guilds, d.handleGuild(ctx, ev, guildID, sub))
	}

	d.log.Info("start event dispatched",
		logx.String("member", ev.Member.ID),
		logx.String("game", ev.Game),
		logx.Int("guilds", len(res.Guilds)),
		logx.Int("channels", res.DeliveredChannels()),
		logx.Int("dms", res.DeliveredDMs()))
	return res, nil
}

func (d *Dispatcher) handleGuild(ctx context.Context, ev presence.StartEvent, guildID string, sub storage.Subscription) GuildResult {
	gr := GuildResult{GuildID: guildID}

	member := ev.Member
	ok, err := d.gw.IsMember(ctx, guildID, member.ID)
	if err != nil {
		gr.Channel = d.finish(Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID,
			Status: StatusSkipped, Reason: ReasonMembershipCheck, Err: err}, member)
		return gr
	}
	if !ok {
		gr.Channel = d.finish(Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID,
			Status: StatusSkipped, Reason: ReasonNotMember}, member)
		return gr
	}
	if !sub.NotifyStart {
		gr.Channel = d.finish(Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID,
			Status: StatusSkipped, Reason: ReasonNotifyOff}, member)
		return gr
	}
	if d.cds.IsOnCooldown(member.ID, guildID) {
		remaining := d.cds.Remaining(member.ID, guildID)
		d.log.Info("notification suppressed by cooldown",
			logx.String("member", member.ID),
			logx.String("guild", guildID),
			logx.Duration("remaining", remaining))
		gr.Channel = d.finish(Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID,
			Status: StatusSkipped, Reason: ReasonCooldown, Remaining: remaining}, member)
		return gr
	}
	if _, err := d.gw.ResolveChannel(ctx, sub.ChannelID); err != nil {
		gr.Channel = d.finish(Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID,
			Status: StatusSkipped, Reason: ReasonChannelUnresolved, Err: err}, member)
		return gr
	}

	gr.Channel = d.sendChannel(ctx, member, guildID, sub, ev)

	// One cooldown update per guild per start event, after the channel
	// attempt regardless of its outcome. DM fan-out never touches it.
	d.cds.Update(member.ID, guildID)

	gr.DMs = d.fanOutDMs(ctx, member, guildID, sub, ev)
	return gr
}

func (d *Dispatcher) sendChannel(ctx context.Context, member platform.Member, guildID string, sub storage.Subscription, ev presence.StartEvent) Delivery {
	del := Delivery{Kind: "channel", GuildID: guildID, Target: sub.ChannelID}
	start := d.now()
	if err := d.wait(ctx); err != nil {
		del.Status, del.Reason, del.Err = StatusFailed, ReasonSendFailed, err
		return d.finish(del, member)
	}
	err := d.gw.SendChannelMessage(ctx, sub.ChannelID, startChannelEmbed(member, d.cfg.GameName, ev.At))
	del.Took = d.now().Sub(start)
	if err != nil {
		del.Status, del.Reason, del.Err = StatusFailed, ReasonSendFailed, err
		d.log.Warn("channel notification failed",
			logx.String("guild", guildID),
			logx.String("channel", sub.ChannelID),
			logx.Err(err))
	} else {
		del.Status = StatusDelivered
	}
	return d.finish(del, member)
}

func (d *Dispatcher) fanOutDMs(ctx context.Context, member platform.Member, guildID string, sub storage.Subscription, ev presence.StartEvent) []Delivery {
	userIDs, err := d.store.DMSubscribers(ctx, guildID)
	if err != nil {
		d.log.Warn("dm subscriber read failed",
			logx.String("guild", guildID), logx.Err(err))
		return nil
	}

	var out []Delivery
	for _, userID := range userIDs {
		del := Delivery{Kind: "dm", GuildID: guildID, Target: userID}
		if userID == member.ID {
			del.Status, del.Reason = StatusSkipped, ReasonSelf
			out = append(out, d.finish(del, member))
			continue
		}
		if _, err := d.gw.ResolveUser(ctx, userID); err != nil {
			del.Status, del.Reason, del.Err = StatusFailed, ReasonUserUnresolved, err
			out = append(out, d.finish(del, member))
			continue
		}
		start := d.now()
		if err := d.wait(ctx); err != nil {
			del.Status, del.Reason, del.Err = StatusFailed, ReasonSendFailed, err
			out = append(out, d.finish(del, member))
			continue
		}
		err := d.gw.SendDirectMessage(ctx, userID, startDMEmbed(member, d.cfg.GameName, sub.GuildName, ev.At))
		del.Took = d.now().Sub(start)
		switch {
		case err == nil:
			del.Status = StatusDelivered
		case errors.Is(err, platform.ErrForbidden):
			del.Status, del.Reason, del.Err = StatusFailed, ReasonForbidden, err
			d.log.Debug("dm rejected, recipient has dms closed",
				logx.String("guild", guildID), logx.String("user", userID))
		default:
			del.Status, del.Reason, del.Err = StatusFailed, ReasonSendFailed, err
			d.log.Warn("dm notification failed",
				logx.String("guild", guildID),
				logx.String("user", userID),
				logx.Err(err))
		}
		out = append(out, d.finish(del, member))
	}
	return out
}

// finish records one decision: metrics, bus event and, for actual
// delivery attempts, a persisted notification-log row.
func (d *Dispatcher) finish(del Delivery, member platform.Member) Delivery {
	d.metrics.observe(del)
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{Type: eventbus.TypeNotification, Data: map[string]any{
			"kind":   del.Kind,
			"guild":  del.GuildID,
			"target": del.Target,
			"status": string(del.Status),
			"reason": del.Reason,
		}})
	}
	if del.Status == StatusDelivered || del.Status == StatusFailed {
		rec := storage.NotificationRecord{
			At:         d.now(),
			GuildID:    del.GuildID,
			MemberID:   member.ID,
			MemberName: member.Name(),
			Kind:       del.Kind,
			Target:     del.Target,
			Outcome:    string(del.Status),
			TookMS:     del.Took.Milliseconds(),
		}
		if del.Err != nil {
			rec.Error = del.Err.Error()
		}
		if err := d.store.AppendNotification(context.Background(), rec); err != nil {
			d.log.Debug("notification log append failed", logx.Err(err))
		}
	}
	return del
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}
