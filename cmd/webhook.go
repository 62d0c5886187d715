package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BatmanBruc/ofmbot/internal/web"
)

func newSetWebhookCmd(root *rootOptions) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Register <base>/bot/webhook with Telegram",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := runSetWebhook(cmd.Context(), root, base)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "public base URL (defaults to app.base_url)")
	return cmd
}

func runSetWebhook(ctx context.Context, root *rootOptions, base string) (string, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	b, err := newBot(cfg)
	if err != nil {
		return "", err
	}
	url := cfg.WebhookURL(base)
	if err := web.RegisterWebhook(ctx, b, url, cfg.Bot.WebhookSecret); err != nil {
		return "", err
	}
	return url, nil
}
