package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/staffmail/staffmail/internal/config"
	"github.com/staffmail/staffmail/internal/email"
	"github.com/staffmail/staffmail/internal/logger"
	"github.com/staffmail/staffmail/internal/repository"
	"github.com/staffmail/staffmail/internal/service"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "staffmail",
		Short:         "Send one email to every contact in the employee store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: config.yaml in ., ./config or /etc/staffmail)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().
		Str("version", version).
		Str("driver", cfg.Database.Driver).
		Str("provider", cfg.Email.Provider).
		Msg("starting staffmail")

	dispatcher, err := email.NewDispatcher(cfg, log)
	if err != nil {
		return err
	}

	svc := service.NewDispatchService(repository.NewContactRepository(cfg.Database), dispatcher, log)
	return svc.Run(ctx)
}
