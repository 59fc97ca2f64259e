package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grebbot/internal/bot"
	"grebbot/internal/cooldown"
	"grebbot/internal/eventbus"
	"grebbot/internal/runtime/supervisor"
	"grebbot/internal/storage"
	"grebbot/pkg/logx"
)

// StatusSource is the bot-side view the dashboard reads.
type StatusSource interface {
	Status() bot.Status
}

// LogSource exposes the in-memory ring of recent log entries.
type LogSource interface {
	Recent() []logx.Entry
}

// EventSource exposes the retained bus events for the activity feed.
type EventSource interface {
	Recent() []eventbus.Event
}

type RouterDeps struct {
	Bot       StatusSource
	Store     storage.Store
	Cooldowns *cooldown.Tracker
	Logs      LogSource
	Events    EventSource
	Registry  *prometheus.Registry
	// Goroutines reports supervisor counters for /api/status; nil omits them.
	Goroutines func() supervisor.Counters
	Version    string
	StartedAt  time.Time
	Log        logx.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Mount("/debug", middleware.Profiler())
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/subscriptions", h.subscriptions)
		r.Get("/cooldowns", h.cooldowns)
		r.Get("/notifications", h.notifications)
		r.Get("/events", h.events)
		r.Get("/logs", h.logs)
	})
	return r
}

type handlers struct {
	deps RouterDeps
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.deps.Log.Debug("response encode failed", logx.Err(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Version    string               `json:"version"`
		Uptime     string               `json:"uptime"`
		Bot        bot.Status           `json:"bot"`
		Window     int64                `json:"cooldown_window_seconds"`
		Subs       int                  `json:"enabled_subscriptions"`
		Goroutines *supervisor.Counters `json:"goroutines,omitempty"`
	}{
		Version: h.deps.Version,
		Uptime:  time.Since(h.deps.StartedAt).Truncate(time.Second).String(),
	}
	if h.deps.Bot != nil {
		resp.Bot = h.deps.Bot.Status()
	}
	if h.deps.Goroutines != nil {
		c := h.deps.Goroutines()
		resp.Goroutines = &c
	}
	if h.deps.Cooldowns != nil {
		resp.Window = int64(h.deps.Cooldowns.Window() / time.Second)
	}
	if subs, err := h.deps.Store.AllEnabledSubscriptions(r.Context()); err == nil {
		resp.Subs = len(subs)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) subscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.Store.AllEnabledSubscriptions(r.Context())
	if err != nil {
		h.deps.Log.Warn("subscription read failed", logx.Err(err))
		h.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	out := make([]storage.Subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(out),
		"subscriptions": out,
	})
}

func (h *handlers) cooldowns(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.Cooldowns.Active(r.URL.Query().Get("guild"))
	if entries == nil {
		entries = []cooldown.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(entries),
		"cooldowns": entries,
	})
}

func (h *handlers) notifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be 1..500")
			return
		}
		limit = n
	}
	recs, err := h.deps.Store.RecentNotifications(r.Context(), limit)
	if err != nil {
		h.deps.Log.Warn("notification read failed", logx.Err(err))
		h.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if recs == nil {
		recs = []storage.NotificationRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(recs),
		"notifications": recs,
	})
}

func (h *handlers) events(w http.ResponseWriter, _ *http.Request) {
	var evs []eventbus.Event
	if h.deps.Events != nil {
		evs = h.deps.Events.Recent()
	}
	if evs == nil {
		evs = []eventbus.Event{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(evs),
		"events": evs,
	})
}

func (h *handlers) logs(w http.ResponseWriter, _ *http.Request) {
	var entries []logx.Entry
	if h.deps.Logs != nil {
		entries = h.deps.Logs.Recent()
	}
	if entries == nil {
		entries = []logx.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"logs":  entries,
	})
}
