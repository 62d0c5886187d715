package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BatmanBruc/ofmbot/internal/config"
	"github.com/BatmanBruc/ofmbot/internal/logger"
)

type rootOptions struct {
	configPath string
}

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "ofmbot",
		Short:         "OFM bot: Telegram document utilities",
		Long:          "ofmbot runs the OFM Telegram bot: resume generation, format conversion, PDF merge/split/numbering/watermark, OCR and translation.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default ./ofmbot.yaml if present)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newSetWebhookCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

// loadConfig reads the configuration and sets up the global logger from it.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
