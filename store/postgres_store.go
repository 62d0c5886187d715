package store

import (
	"context"
	"embed"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/BatmanBruc/ofmbot/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

type PostgresParams struct {
	DSN      string
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

func NewPostgresStore(ctx context.Context, p PostgresParams) (*PostgresStore, error) {
	dsn := strings.TrimSpace(p.DSN)
	if dsn == "" {
		dsn = BuildPostgresDSN(p)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func BuildPostgresDSN(p PostgresParams) string {
	host := strings.TrimSpace(p.Host)
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(p.Port)
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(p.DB)
	if db == "" {
		db = "ofmbot"
	}
	user := strings.TrimSpace(p.User)
	if user == "" {
		user = "ofmbot"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, p.Password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *PostgresStore) TrackUser(ctx context.Context, user types.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, chat_id, username, first_name, last_name, language_code)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  language_code = EXCLUDED.language_code,
  updated_at = NOW();
`, user.UserID, user.ChatID, strings.TrimSpace(user.Username), strings.TrimSpace(user.FirstName),
		strings.TrimSpace(user.LastName), strings.TrimSpace(user.LanguageCode))
	return err
}

func (s *PostgresStore) ActiveUsers(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) Incr(ctx context.Context, counter string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO usage_counters (name, value)
VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET
  value = usage_counters.value + 1,
  updated_at = NOW();
`, counter)
	return err
}

func (s *PostgresStore) Counters(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out := make(map[string]int64)
	for _, name := range types.CounterNames() {
		out[name] = 0
	}
	rows, err := s.pool.Query(ctx, `SELECT name, value FROM usage_counters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveResume(ctx context.Context, rec types.ResumeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tgID *int64
	if rec.TelegramID != 0 {
		id := rec.TelegramID
		tgID = &id
	}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO resumes (telegram_id, full_name, phone, payload, has_pdf)
VALUES ($1, $2, $3, $4, $5)
`, tgID, rec.FullName, rec.Phone, string(payload), rec.HasPDF)
	return err
}
