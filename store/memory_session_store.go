package store

import (
	"context"
	"sync"
	"time"

	"github.com/BatmanBruc/ofmbot/types"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL   = 24 * time.Hour
	DefaultPendingLimit = 25
)

type pendingEntry struct {
	files     []types.FileRef
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. State is lost on restart.
type MemorySessionStore struct {
	mu           sync.Mutex
	sessions     map[int64]*types.Session
	pending      map[int64]*pendingEntry
	ttl          time.Duration
	pendingLimit int
	now          func() time.Time
}

func NewMemorySessionStore(ttl time.Duration, pendingLimit int) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if pendingLimit <= 0 {
		pendingLimit = DefaultPendingLimit
	}
	return &MemorySessionStore{
		sessions:     make(map[int64]*types.Session),
		pending:      make(map[int64]*pendingEntry),
		ttl:          ttl,
		pendingLimit: pendingLimit,
		now:          time.Now,
	}
}

func (s *MemorySessionStore) Get(_ context.Context, userID int64) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.ExpiresAt.After(s.now()) {
		delete(s.sessions, userID)
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *MemorySessionStore) Open(_ context.Context, userID, chatID int64, op types.Operation, lang string) (*types.Session, error) {
	now := s.now()
	session := &types.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ChatID:    chatID,
		Op:        op,
		Files:     []types.FileRef{},
		Params:    map[string]string{},
		Lang:      lang,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[userID] = session.Clone()
	s.mu.Unlock()
	return session, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *types.Session) error {
	now := s.now()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	s.sessions[session.UserID] = session.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Drop(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) AddPending(_ context.Context, userID int64, file types.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.pending[userID]
	if !ok || !entry.expiresAt.After(now) {
		entry = &pendingEntry{}
		s.pending[userID] = entry
	}
	entry.files = appendBounded(entry.files, file, s.pendingLimit)
	entry.expiresAt = now.Add(s.ttl)
	return nil
}

func (s *MemorySessionStore) PendingCount(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[userID]
	if !ok || !entry.expiresAt.After(s.now()) {
		return 0, nil
	}
	return len(entry.files), nil
}

func (s *MemorySessionStore) TakePending(_ context.Context, userID int64) ([]types.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[userID]
	delete(s.pending, userID)
	if !ok || !entry.expiresAt.After(s.now()) {
		return []types.FileRef{}, nil
	}
	return append([]types.FileRef{}, entry.files...), nil
}

// Sweep drops expired sessions and pending buffers. It returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	for id, entry := range s.pending {
		if !entry.expiresAt.After(now) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed
}
