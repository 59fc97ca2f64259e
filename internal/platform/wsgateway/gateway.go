// Package wsgateway implements the platform boundary against a bridge
// process over a JSON-over-websocket feed. The bridge owns the chat
// protocol; this side sees parsed events and correlated request/response
// pairs only.
package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grebbot/internal/eventbus"
	"grebbot/internal/platform"
	"grebbot/pkg/logx"
)

type Config struct {
	// URL of the bridge websocket endpoint (ws:// or wss://).
	URL string
	// Token is sent as a bearer header on dial.
	Token string
	// RequestTimeout bounds one correlated request. 0 means 10s.
	RequestTimeout time.Duration
	// PingInterval keeps the connection alive. 0 means 20s.
	PingInterval time.Duration
}

// Gateway is a reconnecting websocket client for the platform bridge.
type Gateway struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	mu      sync.Mutex
	conn    *websocket.Conn
	out     chan<- platform.Event
	stopped bool

	wmu sync.Mutex // serializes websocket writes

	pendMu  sync.Mutex
	pending map[string]chan frame

	runCtx    context.Context
	runCancel context.CancelFunc
	done      chan struct{}
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("bridge url is empty")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gateway{
		cfg:     cfg,
		log:     log.With(logx.String("svc", "wsgateway")),
		bus:     bus,
		pending: map[string]chan frame{},
	}, nil
}

// Start dials the bridge and begins delivering events on out. The read
// loop reconnects with backoff until ctx is canceled or Stop is called.
func (g *Gateway) Start(ctx context.Context, out chan<- platform.Event) error {
	g.mu.Lock()
	if g.runCancel != nil {
		g.mu.Unlock()
		return errors.New("gateway already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.runCtx, g.runCancel = runCtx, cancel
	g.out = out
	g.done = make(chan struct{})
	g.stopped = false
	g.mu.Unlock()

	conn, err := g.dial(runCtx)
	if err != nil {
		cancel()
		g.mu.Lock()
		g.runCancel = nil
		g.mu.Unlock()
		return err
	}
	g.setConn(conn)
	g.publishState("connected")

	go g.readLoop(runCtx)
	return nil
}

func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	g.stopped = true
	cancel := g.runCancel
	done := g.done
	g.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	g.closeConn()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) dial(ctx context.Context) (*websocket.Conn, error) {
	hdr := http.Header{}
	if g.cfg.Token != "" {
		hdr.Set("Authorization", "Bearer "+g.cfg.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.cfg.URL, hdr)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(3 * g.cfg.PingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * g.cfg.PingInterval))
	})
	return conn, nil
}

func (g *Gateway) readLoop(ctx context.Context) {
	defer close(g.done)
	defer g.closeConn()

	go g.pingLoop(ctx)

	backoff := time.Second
	for {
		conn := g.currentConn()
		if conn == nil {
			if !g.reconnect(ctx, &backoff) {
				return
			}
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || g.isStopped() {
				return
			}
			g.log.Warn("bridge read failed", logx.Err(err))
			g.publishState("disconnected")
			g.closeConn()
			g.failPending(errors.New("connection lost"))
			if !g.reconnect(ctx, &backoff) {
				return
			}
			continue
		}
		backoff = time.Second
		_ = conn.SetReadDeadline(time.Now().Add(3 * g.cfg.PingInterval))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			g.log.Warn("bridge frame malformed", logx.Err(err))
			continue
		}
		g.handleFrame(f)
	}
}

func (g *Gateway) handleFrame(f frame) {
	switch f.Op {
	case opResponse:
		g.pendMu.Lock()
		ch, ok := g.pending[f.ID]
		if ok {
			delete(g.pending, f.ID)
		}
		g.pendMu.Unlock()
		if ok {
			ch <- f
		}
	case opEvent:
		ev, ok, err := decodeEvent(f)
		if err != nil {
			g.log.Warn("bridge event malformed", logx.String("type", f.Type), logx.Err(err))
			return
		}
		if !ok {
			g.log.Debug("bridge event ignored", logx.String("type", f.Type))
			return
		}
		// Non-blocking: a stalled consumer drops events rather than
		// stalling the read loop.
		select {
		case g.out <- ev:
		default:
			g.log.Warn("event dropped, consumer is slow", logx.String("kind", string(ev.Kind)))
		}
	}
}

func (g *Gateway) reconnect(ctx context.Context, backoff *time.Duration) bool {
	for {
		if ctx.Err() != nil || g.isStopped() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(*backoff):
		}
		conn, err := g.dial(ctx)
		if err != nil {
			g.log.Warn("bridge reconnect failed",
				logx.Duration("backoff", *backoff), logx.Err(err))
			if *backoff < 30*time.Second {
				*backoff *= 2
				if *backoff > 30*time.Second {
					*backoff = 30 * time.Second
				}
			}
			continue
		}
		g.setConn(conn)
		g.publishState("connected")
		g.log.Info("bridge reconnected")
		*backoff = time.Second
		return true
	}
}

func (g *Gateway) pingLoop(ctx context.Context) {
	t := time.NewTicker(g.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			conn := g.currentConn()
			if conn == nil {
				continue
			}
			g.wmu.Lock()
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			g.wmu.Unlock()
		}
	}
}

func (g *Gateway) currentConn() *websocket.Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn
}

func (g *Gateway) setConn(conn *websocket.Conn) {
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
}

func (g *Gateway) isStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

func (g *Gateway) closeConn() {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	_ = conn.Close()
}

func (g *Gateway) publishState(state string) {
	if g.bus == nil {
		return
	}
	g.bus.Publish(eventbus.Event{Type: eventbus.TypeGatewayState, Data: state})
}
