package types

import (
	"context"
	"time"
)

type FileRef struct {
	FileID string   `json:"file_id"`
	Name   string   `json:"name"`
	Size   int64    `json:"size,omitempty"`
	MIME   string   `json:"mime,omitempty"`
	Kind   FileKind `json:"kind,omitempty"`
}

type Session struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"user_id"`
	ChatID    int64             `json:"chat_id"`
	Op        Operation         `json:"op"`
	Files     []FileRef         `json:"files"`
	Params    map[string]string `json:"params"`
	Lang      string            `json:"lang,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (s *Session) Param(key string) string {
	if s == nil || s.Params == nil {
		return ""
	}
	return s.Params[key]
}

func (s *Session) SetParam(key, value string) {
	if s.Params == nil {
		s.Params = map[string]string{}
	}
	s.Params[key] = value
}

// Clone returns a deep copy safe to hand to a worker.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Files = append([]FileRef(nil), s.Files...)
	c.Params = make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		c.Params[k] = v
	}
	return &c
}

type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Open(ctx context.Context, userID, chatID int64, op Operation, lang string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Drop(ctx context.Context, userID int64) error

	AddPending(ctx context.Context, userID int64, file FileRef) error
	PendingCount(ctx context.Context, userID int64) (int, error)
	TakePending(ctx context.Context, userID int64) ([]FileRef, error)
}
