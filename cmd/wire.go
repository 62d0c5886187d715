package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/config"
	"github.com/BatmanBruc/ofmbot/internal/converter"
	"github.com/BatmanBruc/ofmbot/internal/files"
	"github.com/BatmanBruc/ofmbot/internal/handlers"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/middleware"
	"github.com/BatmanBruc/ofmbot/internal/ocr"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/resume"
	"github.com/BatmanBruc/ofmbot/internal/scheduler"
	"github.com/BatmanBruc/ofmbot/internal/translate"
	"github.com/BatmanBruc/ofmbot/internal/web"
	"github.com/BatmanBruc/ofmbot/store"
	"github.com/BatmanBruc/ofmbot/types"
)

const pollTimeout = 50 * time.Second

type app struct {
	cfg       *config.Config
	bot       *bot.Bot
	sessions  types.SessionStore
	stats     types.StatsStore
	sweeper   *store.MemorySessionStore
	scheduler *scheduler.Scheduler
	handler   bot.HandlerFunc
	server    *web.Server
	log       zerolog.Logger
	closers   []func()
}

func newBot(cfg *config.Config, opts ...bot.Option) (*bot.Bot, error) {
	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	opts = append([]bot.Option{
		bot.WithServerURL(cfg.Bot.APIURL),
		bot.WithHTTPClient(pollTimeout, httpClient),
	}, opts...)
	b, err := bot.New(cfg.Bot.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return b, nil
}

// wireApp builds every component from cfg. Close releases what it opened.
func wireApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logger.Component("app")}

	if err := a.wireStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	b, err := newBot(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bot = b

	conv := converter.NewDefaultConverter(converter.Tools{
		Soffice:  cfg.Tools.Soffice,
		Pdftoppm: cfg.Tools.Pdftoppm,
	})
	translator := translate.NewClient(cfg.Translate.Endpoint)
	executor := operations.NewExecutor(
		conv,
		ocr.NewTesseract(cfg.Tools.Tesseract, cfg.OCR.Languages, cfg.OCR.Fallback),
		translator,
		cfg.Translate.DefaultTarget,
	)

	a.scheduler = scheduler.NewScheduler(
		b,
		files.NewDownloader(b, cfg.Bot.APIURL, cfg.Bot.Token),
		executor,
		a.stats,
		scheduler.Config{
			Workers:    cfg.Scheduler.Workers,
			JobTimeout: cfg.Scheduler.JobTimeout,
			TmpDir:     cfg.App.TmpDir,
		},
	)

	h := handlers.NewHandlers(a.sessions, a.stats, a.scheduler, translator, handlers.Config{
		BaseURL:       cfg.App.BaseURL,
		DefaultTarget: cfg.Translate.DefaultTarget,
	})
	a.handler = middleware.Chain(h.MainHandler, middleware.NewMessageAnalyzer().All()...)

	resumes := resume.NewService(b, conv, a.stats, resume.Config{
		TemplatesDir:  cfg.App.TemplatesDir,
		TmpDir:        cfg.App.TmpDir,
		ArchiveChatID: cfg.Bot.ArchiveChatID,
	})
	a.server = web.NewServer(b, a.handler, resumes, a.stats, web.Config{
		WebhookSecret: cfg.Bot.WebhookSecret,
		TemplatesDir:  cfg.App.TemplatesDir,
		AdminToken:    cfg.App.AdminToken,
		WebhookURL:    cfg.WebhookURL,
	})
	return a, nil
}

// wireStores picks Redis for sessions when configured (memory otherwise) and
// Postgres for users and counters when configured (memory otherwise).
func (a *app) wireStores(ctx context.Context) error {
	cfg := a.cfg

	if cfg.Redis.Enabled() {
		rdb, err := store.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.sessions = store.NewRedisSessionStore(rdb, cfg.Session.TTL, cfg.Session.PendingLimit)
		a.log.Info().Str("addr", cfg.Redis.Addr()).Msg("sessions in redis")
	} else {
		mem := store.NewMemorySessionStore(cfg.Session.TTL, cfg.Session.PendingLimit)
		a.sessions = mem
		a.sweeper = mem
		a.log.Info().Msg("sessions in memory")
	}

	if cfg.Postgres.Enabled() {
		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		a.stats = pg
		a.log.Info().Msg("stats in postgres")
	} else {
		a.stats = store.NewMemoryStats()
		a.log.Info().Msg("stats in memory")
	}
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*store.PostgresStore, error) {
	pg, err := store.NewPostgresStore(ctx, store.PostgresParams{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		DB:       cfg.Postgres.DB,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, nil
}

// sweepLoop evicts expired in-memory sessions until ctx is done.
func (a *app) sweepLoop(ctx context.Context, every time.Duration) {
	if a.sweeper == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sweeper.Sweep(); n > 0 {
				a.log.Debug().Int("evicted", n).Msg("expired sessions swept")
			}
		}
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
