package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	polling bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, resume form and worker pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.polling, "polling", false, "receive updates by long polling instead of the webhook")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := wireApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(cfg.App.TmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}

	a.scheduler.Start()
	defer a.scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.sweepLoop(gctx, 10*time.Minute)
		return nil
	})
	g.Go(func() error {
		return a.server.Run(gctx, cfg.HTTP.Addr)
	})
	if opts.polling {
		if err := a.startPolling(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			a.bot.Start(gctx)
			return nil
		})
	}

	a.log.Info().Bool("polling", opts.polling).Str("addr", cfg.HTTP.Addr).Msg("bot started")
	return g.Wait()
}

// startPolling drops the webhook so getUpdates works, then routes updates through the same chain as the webhook.
func (a *app) startPolling(ctx context.Context) error {
	if _, err := a.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	a.bot.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, a.handler)

	a.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, a.handler)
	return nil
}
