package store

import (
	"context"
	"sync"

	"github.com/BatmanBruc/ofmbot/types"
)

// MemoryStats mirrors the counters of PostgresStore in RAM. Values reset on restart.
type MemoryStats struct {
	mu       sync.Mutex
	users    map[int64]types.User
	counters map[string]int64
	resumes  []types.ResumeRecord
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		users:    make(map[int64]types.User),
		counters: make(map[string]int64),
	}
}

func (m *MemoryStats) TrackUser(_ context.Context, user types.User) error {
	m.mu.Lock()
	m.users[user.UserID] = user
	m.mu.Unlock()
	return nil
}

func (m *MemoryStats) ActiveUsers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *MemoryStats) Incr(_ context.Context, counter string) error {
	m.mu.Lock()
	m.counters[counter]++
	m.mu.Unlock()
	return nil
}

func (m *MemoryStats) Counters(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.counters))
	for _, name := range types.CounterNames() {
		out[name] = 0
	}
	for k, v := range m.counters {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStats) SaveResume(_ context.Context, rec types.ResumeRecord) error {
	m.mu.Lock()
	m.resumes = append(m.resumes, rec)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStats) Resumes() []types.ResumeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ResumeRecord(nil), m.resumes...)
}
