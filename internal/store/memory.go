package store

import (
	"sync"
	"time"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Each operation holds the table lock for its whole duration, so a
// submission and a concurrent read never observe a half-updated user.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*User
	historyLimit int
	now          func() time.Time

	subscribers map[chan UserReading]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a store that keeps at most historyLimit readings
// per user. A non-positive limit selects [DefaultHistoryLimit].
func NewMemoryStore(historyLimit int) *MemoryStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &MemoryStore{
		users:        make(map[string]*User),
		historyLimit: historyLimit,
		now:          time.Now,
		subscribers:  make(map[chan UserReading]struct{}),
	}
}

// HistoryLimit returns the per-user history bound.
func (m *MemoryStore) HistoryLimit() int {
	return m.historyLimit
}

// Submit appends a reading stamped with the current time and notifies
// subscribers. The oldest readings are evicted once the history exceeds
// the configured limit.
func (m *MemoryStore) Submit(name string, heartRate float64) (UserReading, error) {
	// zero is rejected along with a missing value
	if name == "" || heartRate == 0 {
		return UserReading{}, ErrValidation
	}

	m.mu.Lock()
	ts := FormatTimestamp(m.now())
	u, ok := m.users[name]
	if !ok {
		u = &User{Name: name, HeartRateHistory: []Reading{}}
		m.users[name] = u
	}

	u.HeartRateHistory = append(u.HeartRateHistory, Reading{HeartRate: heartRate, Timestamp: ts})
	u.LastHeartRate = heartRate
	u.LastUpdate = ts

	if over := len(u.HeartRateHistory) - m.historyLimit; over > 0 {
		// copy so the evicted prefix can be collected
		trimmed := make([]Reading, m.historyLimit)
		copy(trimmed, u.HeartRateHistory[over:])
		u.HeartRateHistory = trimmed
	}

	result := UserReading{Name: u.Name, HeartRate: u.LastHeartRate, Timestamp: u.LastUpdate}
	m.mu.Unlock()

	m.notifySubscribers(result)
	return result, nil
}

// Users returns a deep copy of the table.
func (m *MemoryStore) Users() map[string]User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]User, len(m.users))
	for name, u := range m.users {
		cp := *u
		cp.HeartRateHistory = append([]Reading(nil), u.HeartRateHistory...)
		out[name] = cp
	}
	return out
}

// Latest returns the last recorded reading for name.
func (m *MemoryStore) Latest(name string) (UserReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[name]
	if !ok {
		return UserReading{}, ErrNotFound
	}
	return UserReading{Name: u.Name, HeartRate: u.LastHeartRate, Timestamp: u.LastUpdate}, nil
}

// History returns a copy of the selected tail of the user's history.
// See [Store.History] for how n is interpreted.
func (m *MemoryStore) History(name string, n int) ([]Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[name]
	if !ok {
		return nil, ErrNotFound
	}

	h := u.HeartRateHistory
	start := 0
	switch {
	case n > 0:
		start = max(len(h)-n, 0)
	case n < 0:
		start = min(-n, len(h))
	}

	out := make([]Reading, len(h)-start)
	copy(out, h[start:])
	return out, nil
}

// Subscribe creates a new subscription and returns a channel for readings.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new readings are dropped for this subscriber.
func (m *MemoryStore) Subscribe() <-chan UserReading {
	ch := make(chan UserReading, subscriberBuffer)
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan UserReading) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers fans a reading out without blocking on slow consumers.
func (m *MemoryStore) notifySubscribers(r UserReading) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- r:
		default:
			// subscriber is slow, drop the reading
		}
	}
}
