package types

import (
	"context"
	"time"
)

type User struct {
	UserID       int64
	ChatID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ResumeRecord struct {
	TelegramID int64
	FullName   string
	Phone      string
	Payload    []byte
	HasPDF     bool
	CreatedAt  time.Time
}

type StatsStore interface {
	TrackUser(ctx context.Context, user User) error
	ActiveUsers(ctx context.Context) (int, error)
	Incr(ctx context.Context, counter string) error
	Counters(ctx context.Context) (map[string]int64, error)
	SaveResume(ctx context.Context, rec ResumeRecord) error
}
