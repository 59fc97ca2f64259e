package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"grebbot/internal/config"
	"grebbot/internal/cooldown"
	"grebbot/internal/storage"
	logx "grebbot/pkg/logx"
)

const (
	defaultSweepSpec = "@every 5m"
	defaultPruneSpec = "@every 1h"
)

// validateMaintenanceSpecs rejects malformed cron specs before a config
// commit, so a bad hot reload never reaches the scheduler.
func validateMaintenanceSpecs(cfg config.MaintenanceConfig) error {
	for _, f := range []struct{ path, spec string }{
		{"maintenance.cooldown_sweep", cfg.CooldownSweep},
		{"maintenance.log_prune", cfg.LogPrune},
	} {
		if f.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(f.spec); err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
	}
	return nil
}

type maintenanceDeps struct {
	Cooldowns *cooldown.Tracker
	Store     storage.Store
	Retention time.Duration
	Log       logx.Logger
}

// maintenance runs periodic housekeeping: expired cooldown entries are
// swept from memory and old notification log records are pruned.
type maintenance struct {
	enabled bool
	cron    *cron.Cron
	log     logx.Logger
}

func newMaintenance(cfg config.MaintenanceConfig, deps maintenanceDeps) (*maintenance, error) {
	m := &maintenance{enabled: cfg.Enabled, log: deps.Log}
	if !cfg.Enabled {
		return m, nil
	}

	sweepSpec := cfg.CooldownSweep
	if sweepSpec == "" {
		sweepSpec = defaultSweepSpec
	}
	pruneSpec := cfg.LogPrune
	if pruneSpec == "" {
		pruneSpec = defaultPruneSpec
	}

	c := cron.New()
	if _, err := c.AddFunc(sweepSpec, func() {
		if n := deps.Cooldowns.Sweep(); n > 0 {
			deps.Log.Debug("cooldown sweep", logx.Int("removed", n))
		}
	}); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(pruneSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := deps.Store.PruneNotifications(ctx, deps.Retention)
		if err != nil {
			deps.Log.Warn("notification log prune failed", logx.Err(err))
			return
		}
		if n > 0 {
			deps.Log.Debug("notification log pruned", logx.Int64("removed", n))
		}
	}); err != nil {
		return nil, err
	}

	m.cron = c
	return m, nil
}

func (m *maintenance) Start() {
	if m == nil || m.cron == nil {
		return
	}
	m.cron.Start()
	m.log.Info("maintenance jobs scheduled")
}

// Stop waits for running jobs up to the ctx deadline.
func (m *maintenance) Stop(ctx context.Context) error {
	if m == nil || m.cron == nil {
		return nil
	}
	done := m.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
