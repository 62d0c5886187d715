package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/resume"
	"github.com/BatmanBruc/ofmbot/types"
)

// ResumeSubmitter renders and delivers a submitted resume form.
type ResumeSubmitter interface {
	Submit(ctx context.Context, f *resume.Form) error
}

type Config struct {
	WebhookSecret string
	TemplatesDir  string
	AdminToken    string
	// WebhookURL builds the webhook address from an optional base override.
	WebhookURL func(base string) string
	// UpdateTimeout bounds how long one webhook update may be handled.
	UpdateTimeout time.Duration
}

type Server struct {
	bot     *bot.Bot
	handler bot.HandlerFunc
	resumes ResumeSubmitter
	stats   types.StatsStore
	cfg     Config
	log     zerolog.Logger
}

func NewServer(b *bot.Bot, handler bot.HandlerFunc, resumes ResumeSubmitter, stats types.StatsStore, cfg Config) *Server {
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = 60 * time.Second
	}
	return &Server{
		bot:     b,
		handler: handler,
		resumes: resumes,
		stats:   stats,
		cfg:     cfg,
		log:     logger.Component("web"),
	}
}

// Handler returns the full route table wrapped in recovery and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /bot/webhook", s.handleWebhook)
	mux.HandleFunc("GET /bot/set_webhook", s.handleSetWebhook)
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("GET /debug/ping", s.handlePing)
	mux.HandleFunc("GET /debug/getme", s.handleGetMe)
	mux.HandleFunc("GET /form", s.handleForm)
	mux.HandleFunc("POST /send_resume_data", s.handleSubmitResume)

	return s.withRecover(cors.Default().Handler(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

// withRecover answers 200 with an error payload instead of dropping the connection on a panic.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("request panicked")
				writeJSON(w, map[string]interface{}{
					"status": "error",
					"error":  fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.bot.GetMe(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("getMe failed")
		writeJSON(w, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]interface{}{"id": me.ID, "username": me.Username})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
