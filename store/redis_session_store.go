package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/BatmanBruc/ofmbot/types"
	"github.com/google/uuid"
)

type RedisSessionStore struct {
	client       *RedisClient
	ttl          time.Duration
	pendingLimit int
}

func NewRedisSessionStore(redisClient *RedisClient, ttl time.Duration, pendingLimit int) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if pendingLimit <= 0 {
		pendingLimit = DefaultPendingLimit
	}
	return &RedisSessionStore{
		client:       redisClient,
		ttl:          ttl,
		pendingLimit: pendingLimit,
	}
}

func (s *RedisSessionStore) sessionKey(userID int64) string {
	return s.client.generateKey("session", strconv.FormatInt(userID, 10))
}

func (s *RedisSessionStore) pendingKey(userID int64) string {
	return s.client.generateKey("pending", strconv.FormatInt(userID, 10))
}

func (s *RedisSessionStore) Get(ctx context.Context, userID int64) (*types.Session, error) {
	var session types.Session
	if err := s.client.Get(ctx, s.sessionKey(userID), &session); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Open(ctx context.Context, userID, chatID int64, op types.Operation, lang string) (*types.Session, error) {
	now := time.Now()
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
	if err := s.client.Set(ctx, s.sessionKey(userID), session, s.ttl); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *types.Session) error {
	session.UpdatedAt = time.Now()
	session.ExpiresAt = session.UpdatedAt.Add(s.ttl)
	return s.client.Set(ctx, s.sessionKey(session.UserID), session, s.ttl)
}

func (s *RedisSessionStore) Drop(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.sessionKey(userID))
}

func (s *RedisSessionStore) AddPending(ctx context.Context, userID int64, file types.FileRef) error {
	key := s.pendingKey(userID)
	var pending []types.FileRef
	if err := s.client.Get(ctx, key, &pending); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	pending = appendBounded(pending, file, s.pendingLimit)
	return s.client.Set(ctx, key, pending, s.ttl)
}

func (s *RedisSessionStore) PendingCount(ctx context.Context, userID int64) (int, error) {
	var pending []types.FileRef
	if err := s.client.Get(ctx, s.pendingKey(userID), &pending); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(pending), nil
}

func (s *RedisSessionStore) TakePending(ctx context.Context, userID int64) ([]types.FileRef, error) {
	var pending []types.FileRef
	if err := s.client.GetDel(ctx, s.pendingKey(userID), &pending); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []types.FileRef{}, nil
		}
		return nil, err
	}
	if pending == nil {
		pending = []types.FileRef{}
	}
	return pending, nil
}

func appendBounded(list []types.FileRef, file types.FileRef, limit int) []types.FileRef {
	list = append(list, file)
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}
