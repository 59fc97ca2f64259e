// Package alerts delivers operator alerts to a Telegram chat. It backs
// the logging service's alert sink: WARN+ log lines end up here.
package alerts

import (
	"context"
	"errors"
	"time"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
	// Timeout bounds a single send. 0 means 10s.
	Timeout time.Duration
}

// Telegram sends plain-text alerts to a single operator chat. It never
// polls for updates; the bot is send-only.
type Telegram struct {
	cfg Config
	bot *tele.Bot
}

func NewTelegram(cfg Config) (*Telegram, error) {
	if !cfg.Enabled {
		return nil, errors.New("alerts disabled")
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: false,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{cfg: cfg, bot: bot}, nil
}

// SendAlert implements logx.AlertSender.
func (t *Telegram) SendAlert(ctx context.Context, text string) error {
	if t == nil || t.bot == nil {
		return nil
	}
	// telebot sends are not context-aware; run in a goroutine and bound
	// the wait ourselves.
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), text, &tele.SendOptions{
			DisableWebPagePreview: true,
		})
		done <- err
	}()

	timeout := time.NewTimer(t.cfg.Timeout)
	defer timeout.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return errors.New("alert send timed out")
	case err := <-done:
		return err
	}
}
