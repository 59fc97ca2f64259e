package storage

import (
	"context"
	"sync"
	"time"
)

type dmKey struct {
	userID  string
	guildID string
}

// memoryStore keeps everything in maps. Used by tests and the
// "memory" driver for running without a database file.
type memoryStore struct {
	mu      sync.Mutex
	subs    map[string]Subscription
	dms     map[dmKey]DMSubscription
	dmOrder []dmKey
	log     []NotificationRecord
}

// NewMemory returns an empty in-memory Store.
func NewMemory() Store {
	return &memoryStore{
		subs: make(map[string]Subscription),
		dms:  make(map[dmKey]DMSubscription),
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) GetSubscription(_ context.Context, guildID string) (Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[guildID]
	return sub, ok, nil
}

func (m *memoryStore) SaveSubscription(_ context.Context, sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}
	m.subs[sub.GuildID] = sub
	return nil
}

func (m *memoryStore) AllEnabledSubscriptions(_ context.Context) (map[string]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Subscription)
	for id, sub := range m.subs {
		if sub.Enabled {
			out[id] = sub
		}
	}
	return out, nil
}

func (m *memoryStore) GetDMSubscription(_ context.Context, userID, guildID string) (DMSubscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.dms[dmKey{userID, guildID}]
	return sub, ok, nil
}

func (m *memoryStore) SaveDMSubscription(_ context.Context, userID, guildID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dmKey{userID, guildID}
	if _, ok := m.dms[k]; !ok {
		m.dmOrder = append(m.dmOrder, k)
	}
	m.dms[k] = DMSubscription{
		UserID:    userID,
		GuildID:   guildID,
		Enabled:   enabled,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *memoryStore) DMSubscribers(_ context.Context, guildID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, k := range m.dmOrder {
		if k.guildID != guildID {
			continue
		}
		if sub := m.dms[k]; sub.Enabled {
			out = append(out, k.userID)
		}
	}
	return out, nil
}

func (m *memoryStore) DMSubscriptionsForUser(_ context.Context, userID string) ([]DMSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DMSubscription
	for _, k := range m.dmOrder {
		if k.userID != userID {
			continue
		}
		if sub := m.dms[k]; sub.Enabled {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *memoryStore) AppendNotification(_ context.Context, rec NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	m.log = append(m.log, rec)
	return nil
}

func (m *memoryStore) RecentNotifications(_ context.Context, limit int) ([]NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []NotificationRecord
	for i := len(m.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.log[i])
	}
	return out, nil
}

func (m *memoryStore) PruneNotifications(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	kept := m.log[:0]
	var removed int64
	for _, rec := range m.log {
		if rec.At.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.log = kept
	return removed, nil
}
