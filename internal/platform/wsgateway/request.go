package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"grebbot/internal/platform"
)

var errNotConnected = errors.New("bridge not connected")

// request sends one correlated frame and waits for the matching
// response or the context/timeout, whichever comes first.
func (g *Gateway) request(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	conn := g.currentConn()
	if conn == nil {
		return nil, errNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	f := frame{Op: opRequest, ID: id, Type: method, Data: data}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	ch := make(chan frame, 1)
	g.pendMu.Lock()
	g.pending[id] = ch
	g.pendMu.Unlock()

	g.wmu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	werr := conn.WriteMessage(websocket.TextMessage, raw)
	g.wmu.Unlock()
	if werr != nil {
		g.dropPending(id)
		return nil, werr
	}

	timeout := time.NewTimer(g.cfg.RequestTimeout)
	defer timeout.Stop()
	select {
	case <-ctx.Done():
		g.dropPending(id)
		return nil, ctx.Err()
	case <-timeout.C:
		g.dropPending(id)
		return nil, errors.New("bridge request timed out")
	case resp := <-ch:
		if resp.Error != "" {
			return nil, wireError(resp.Error)
		}
		return resp.Data, nil
	}
}

func (g *Gateway) dropPending(id string) {
	g.pendMu.Lock()
	delete(g.pending, id)
	g.pendMu.Unlock()
}

// failPending answers every in-flight request with err; called when the
// connection drops so callers do not wait out their full timeout.
func (g *Gateway) failPending(err error) {
	g.pendMu.Lock()
	defer g.pendMu.Unlock()
	for id, ch := range g.pending {
		ch <- frame{Op: opResponse, ID: id, Error: err.Error()}
		delete(g.pending, id)
	}
}

func (g *Gateway) IsMember(ctx context.Context, guildID, userID string) (bool, error) {
	data, err := g.request(ctx, methodIsMember, map[string]string{
		"guild_id": guildID,
		"user_id":  userID,
	})
	if err != nil {
		return false, err
	}
	var resp struct {
		Member bool `json:"member"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return false, err
	}
	return resp.Member, nil
}

func (g *Gateway) ResolveChannel(ctx context.Context, channelID string) (platform.Channel, error) {
	data, err := g.request(ctx, methodResolveChannel, map[string]string{"channel_id": channelID})
	if err != nil {
		return platform.Channel{}, err
	}
	var resp struct {
		ID      string `json:"id"`
		GuildID string `json:"guild_id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return platform.Channel{}, err
	}
	return platform.Channel{ID: resp.ID, GuildID: resp.GuildID, Name: resp.Name}, nil
}

func (g *Gateway) ResolveUser(ctx context.Context, userID string) (platform.User, error) {
	data, err := g.request(ctx, methodResolveUser, map[string]string{"user_id": userID})
	if err != nil {
		return platform.User{}, err
	}
	var resp struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return platform.User{}, err
	}
	return platform.User{ID: resp.ID, Username: resp.Username}, nil
}

func (g *Gateway) SendChannelMessage(ctx context.Context, channelID string, e platform.Embed) error {
	_, err := g.request(ctx, methodSendChannel, map[string]any{
		"channel_id": channelID,
		"embed":      e,
	})
	return err
}

func (g *Gateway) SendDirectMessage(ctx context.Context, userID string, e platform.Embed) error {
	_, err := g.request(ctx, methodSendDM, map[string]any{
		"user_id": userID,
		"embed":   e,
	})
	return err
}
